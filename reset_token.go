package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// DefaultResetTokenTTL is the reset window
	DefaultResetTokenTTL = 10 * time.Minute
	resetSecretBytes     = 32
)

// ResetTokenGenerator creates single use reset secrets. Only the SHA-256
// digest of a secret is meant to be stored.
type ResetTokenGenerator struct {
	ttl   time.Duration
	clock Clock
}

// NewResetTokenGenerator returns a generator with the given window
func NewResetTokenGenerator(ttl time.Duration, clock Clock) *ResetTokenGenerator {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &ResetTokenGenerator{ttl: ttl, clock: clock}
}

// TTL returns the reset window
func (g *ResetTokenGenerator) TTL() time.Duration {
	return g.ttl
}

// Generate returns the plaintext secret, its digest and the expiration
func (g *ResetTokenGenerator) Generate() (secret string, hash string, expiresAt time.Time, err error) {
	buf := make([]byte, resetSecretBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read random bytes")
	}

	secret = hex.EncodeToString(buf)
	return secret, HashSecret(secret), g.clock.now().Add(g.ttl), nil
}

// Match reports whether candidate hashes to storedHash and the window is
// still open. Expiry and mismatch both return false.
func (g *ResetTokenGenerator) Match(candidate, storedHash string, storedExpiresAt time.Time) bool {
	if candidate == "" || storedHash == "" {
		return false
	}

	if g.clock.now().After(storedExpiresAt) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(HashSecret(candidate)), []byte(storedHash)) == 1
}

// Expired reports whether expiresAt has passed
func (g *ResetTokenGenerator) Expired(expiresAt time.Time) bool {
	return g.clock.now().After(expiresAt)
}

// HashSecret returns the hex encoded SHA-256 digest of secret
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
