package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims are the claims carried by a session token
type SessionClaims struct {
	jwt.RegisteredClaims
	// IssuedAtMillis is iat in unix milliseconds
	IssuedAtMillis int64 `json:"iat_ms,omitempty"`
}

// SubjectID returns the subject claim
func (c *SessionClaims) SubjectID() string {
	return c.RegisteredClaims.Subject
}

// SubjectUUID parses the subject claim
func (c *SessionClaims) SubjectUUID() (uuid.UUID, error) {
	return uuid.Parse(c.RegisteredClaims.Subject)
}

// IssuedAt returns the issue time at millisecond precision. Tokens without
// a matching iat_ms claim are treated as issued at the last millisecond of
// their iat second.
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}

	iat := c.RegisteredClaims.IssuedAt.Time
	if c.IssuedAtMillis > 0 && c.IssuedAtMillis/1000 == iat.Unix() {
		return time.UnixMilli(c.IssuedAtMillis)
	}

	return iat.Add(time.Second - time.Millisecond)
}

// Expires returns the expiration claim, or the zero time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}
