package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Logger is the logging contract used across the package
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config exposes the settings consumed by the identity services
type Config interface {
	GetSigningKey() []byte
	GetTokenTTL() time.Duration
	GetResetTokenTTL() time.Duration
	GetPasswordCost() int
	GetIssuer() string
	GetAudience() []string
	GetCookieName() string
	GetTokenLookup() string
	GetAuthScheme() string
	GetResetURLBase() string
	GetConcealUnknownEmail() bool
	GetUseHashid() bool
	GetOperationTimeout() time.Duration
}

// CredentialStore persists principals. Find* methods exclude inactive
// principals and return ErrNotFound when nothing matches.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*Principal, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Principal, error)
	FindByResetTokenHash(ctx context.Context, hash string) (*Principal, error)
	Create(ctx context.Context, principal *Principal) (*Principal, error)
	Update(ctx context.Context, id uuid.UUID, changes PrincipalChanges) (*Principal, error)
	// ConsumeResetToken applies changes only while the stored reset token
	// hash still equals hash. It returns ErrResetTokenConsumed otherwise.
	ConsumeResetToken(ctx context.Context, id uuid.UUID, hash string, changes PrincipalChanges) (*Principal, error)
}

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// TokenIssuer creates and verifies session tokens
type TokenIssuer interface {
	Issue(subjectID string) (string, time.Time, error)
	Verify(token string) (*SessionClaims, error)
}

// Clock returns the current time
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
