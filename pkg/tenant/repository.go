package tenant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads club rows the scheduler fans out over. The core never
// writes through this type — clubs are created and edited by the
// collaborating admin flow.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps an existing connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListActiveClubs returns every club with status = active, the population
// the Tenant Scheduler fans out over on each trigger.
func (r *Repository) ListActiveClubs(ctx context.Context) ([]Club, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, subdomain, timezone, status, base_url, encrypted_username, encrypted_password
		FROM clubs
		WHERE status = 'active'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("tenant: listing active clubs: %w", err)
	}
	defer rows.Close()

	return scanClubs(rows)
}

// GetClub loads a single club by id regardless of status, so callers can
// distinguish "not found" from "not active".
func (r *Repository) GetClub(ctx context.Context, id uuid.UUID) (Club, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, subdomain, timezone, status, base_url, encrypted_username, encrypted_password
		FROM clubs
		WHERE id = $1
	`, id)

	var c Club
	err := row.Scan(&c.ID, &c.Name, &c.Subdomain, &c.Timezone, &c.Status,
		&c.DataSource.BaseURL, &c.DataSource.EncryptedUsername, &c.DataSource.EncryptedPassword)
	if err != nil {
		return Club{}, fmt.Errorf("tenant: loading club %s: %w", id, err)
	}
	return c, nil
}

func scanClubs(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Club, error) {
	var out []Club
	for rows.Next() {
		var c Club
		if err := rows.Scan(&c.ID, &c.Name, &c.Subdomain, &c.Timezone, &c.Status,
			&c.DataSource.BaseURL, &c.DataSource.EncryptedUsername, &c.DataSource.EncryptedPassword); err != nil {
			return nil, fmt.Errorf("tenant: scanning club row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
