package scheduler

import (
	"context"
	"sync"
	"time"
)

// DistributedLock is the cross-process half of the singleton run gate. A
// nil DistributedLock leaves the gate process-local only, which is
// sufficient for a single-instance deployment.
type DistributedLock interface {
	// TryLock attempts to acquire key for ttl, returning false if already
	// held by another holder.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock releases key. The run gate calls it only after a successful
	// TryLock; RedisLock deletes the key without checking who holds it.
	Unlock(ctx context.Context, key string) error
}

const gateKey = "scrapecore:fanout:lock"
const gateTTL = 10 * time.Minute

// runGate ensures at most one fan-out runs at a time. The local mutex
// guards this process; the optional DistributedLock extends the same
// guarantee across a horizontally-scaled deployment.
type runGate struct {
	mu   sync.Mutex
	held bool
	lock DistributedLock
}

func newRunGate(lock DistributedLock) *runGate {
	return &runGate{lock: lock}
}

// tryAcquire attempts to acquire both the local and (if configured)
// distributed lock. acquired is false if either is already held; release
// is always safe to call, including when acquired is false.
func (g *runGate) tryAcquire(ctx context.Context) (release func(), acquired bool, err error) {
	g.mu.Lock()
	if g.held {
		g.mu.Unlock()
		return func() {}, false, nil
	}
	g.held = true
	g.mu.Unlock()

	releaseLocal := func() {
		g.mu.Lock()
		g.held = false
		g.mu.Unlock()
	}

	if g.lock == nil {
		return releaseLocal, true, nil
	}

	ok, err := g.lock.TryLock(ctx, gateKey, gateTTL)
	if err != nil {
		releaseLocal()
		return func() {}, false, err
	}
	if !ok {
		releaseLocal()
		return func() {}, false, nil
	}

	return func() {
		_ = g.lock.Unlock(ctx, gateKey)
		releaseLocal()
	}, true, nil
}
