package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenTTL is how long a session token stays valid
const DefaultTokenTTL = 90 * 24 * time.Hour

// DefaultCookieName is the session cookie used when none is configured
const DefaultCookieName = "jwt"

var _ TokenIssuer = &TokenService{}

// TokenService issues and verifies HS256 session tokens. The signing key is
// fixed for the lifetime of the service.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	clock      Clock
	logger     Logger
}

// TokenServiceOption configures a TokenService
type TokenServiceOption func(*TokenService)

// WithTokenClock overrides the time source
func WithTokenClock(clock Clock) TokenServiceOption {
	return func(ts *TokenService) {
		ts.clock = clock
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService builds a TokenService from configuration
func NewTokenService(cfg Config, opts ...TokenServiceOption) *TokenService {
	key := make([]byte, len(cfg.GetSigningKey()))
	copy(key, cfg.GetSigningKey())

	ttl := cfg.GetTokenTTL()
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	ts := &TokenService{
		signingKey: key,
		ttl:        ttl,
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		logger:     defLogger{},
	}

	for _, opt := range opts {
		opt(ts)
	}

	return ts
}

// TTL returns the configured session lifetime
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a token for subjectID and returns it with its expiration
func (ts *TokenService) Issue(subjectID string) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, goerrors.New("subject must not be empty", goerrors.CategoryInternal)
	}

	now := ts.clock.now()
	expiresAt := now.Add(ts.ttl)

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subjectID,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		IssuedAtMillis: now.UnixMilli(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return signed, expiresAt, nil
}

// Verify checks signature and lifetime. It returns ErrInvalidToken or
// ErrExpiredToken, never a raw parser error.
func (ts *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.clock.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		ts.logger.Debug("session token rejected: %v", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject == "" || claims.RegisteredClaims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}

	// exp is signed by us, but lifetime is bound to the configured TTL
	if ts.clock.now().After(claims.IssuedAt().Add(ts.ttl)) {
		return nil, ErrExpiredToken
	}

	return claims, nil
}
