// Package vault encrypts and decrypts upstream scheduling-provider
// credentials at rest using a single, operator-supplied key.
package vault

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrConfiguration indicates the vault's encryption key is missing or
// malformed. A club's credentials can never be decrypted in this state.
var ErrConfiguration = errors.New("vault: invalid encryption key configuration")

// ErrDecryption indicates a ciphertext could not be decrypted with the
// configured key, either because it was encrypted under a different key or
// has been corrupted or truncated.
var ErrDecryption = errors.New("vault: decryption failed")

// Vault encrypts and decrypts credential payloads with ChaCha20-Poly1305
// AEAD under a single 32-byte key. Ciphertexts are base64-encoded so they
// can be stored in a text column alongside the rest of a club's row.
type Vault struct {
	aead cipher.AEAD
}

// New builds a Vault from a base64-encoded 32-byte key. Returns
// ErrConfiguration if the key cannot be decoded or is the wrong length.
func New(encodedKey string) (*Vault, error) {
	if encodedKey == "" {
		return nil, fmt.Errorf("%w: encryption key is empty", ErrConfiguration)
	}

	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: key is not valid base64: %v", ErrConfiguration, err)
	}

	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrConfiguration, chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext (a club's upstream username or password) into a
// base64-encoded nonce||ciphertext string safe for storage in a text column.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: generating nonce: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers the plaintext sealed by Encrypt. Returns ErrDecryption if
// the ciphertext is malformed, truncated, or was sealed under a different key.
func (v *Vault) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: not valid base64", ErrDecryption)
	}

	nonceSize := v.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext shorter than nonce", ErrDecryption)
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w", ErrDecryption)
	}

	return string(plaintext), nil
}

// Credentials holds a club's decrypted upstream login for the duration of a
// single sync transaction. Callers must not persist or log these values.
type Credentials struct {
	Username string
	Password string
}

// String redacts both fields so a Credentials value never leaks through
// fmt verbs or a logger.
func (c Credentials) String() string { return "vault.Credentials{redacted}" }

// GoString redacts both fields for %#v as well.
func (c Credentials) GoString() string { return "vault.Credentials{redacted}" }

// DecryptCredentials decrypts a club's stored encrypted username and
// password in one call, returning ErrDecryption if either fails.
func (v *Vault) DecryptCredentials(encryptedUsername, encryptedPassword string) (Credentials, error) {
	username, err := v.Decrypt(encryptedUsername)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypting username: %w", err)
	}

	password, err := v.Decrypt(encryptedPassword)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypting password: %w", err)
	}

	return Credentials{Username: username, Password: password}, nil
}
