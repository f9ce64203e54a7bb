package identity

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity/middleware/sessionware"
)

// AuthenticationGate resolves a session token to an active principal
type AuthenticationGate struct {
	tokens    TokenIssuer
	store     CredentialStore
	transport *CookieTransport
	logger    Logger
}

// NewAuthenticationGate builds the gate
func NewAuthenticationGate(tokens TokenIssuer, store CredentialStore, transport *CookieTransport, logger Logger) *AuthenticationGate {
	return &AuthenticationGate{
		tokens:    tokens,
		store:     store,
		transport: transport,
		logger:    normalizeLogger(logger),
	}
}

// Authenticate verifies rawToken, loads its subject and rejects sessions
// issued before the subject's last password change.
func (g *AuthenticationGate) Authenticate(ctx context.Context, rawToken string) (*Principal, *SessionClaims, error) {
	if rawToken == "" {
		return nil, nil, ErrUnauthenticated
	}

	claims, err := g.tokens.Verify(rawToken)
	if err != nil {
		return nil, nil, err
	}

	subjectID, err := claims.SubjectUUID()
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	principal, err := g.store.FindByID(ctx, subjectID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, nil, ErrUnauthenticated
		}
		g.logger.Error("authentication gate lookup failed: %v", err)
		return nil, nil, err
	}

	if !principal.Active {
		return nil, nil, ErrUnauthenticated
	}

	if PasswordChangedAfter(principal, claims.IssuedAt()) {
		return nil, nil, ErrStaleSession
	}

	return principal, claims, nil
}

// PasswordChangedAfter reports whether the principal changed its password
// after issuedAt, compared at millisecond precision.
func PasswordChangedAfter(principal *Principal, issuedAt time.Time) bool {
	if principal == nil || principal.PasswordChangedAt == nil {
		return false
	}
	return principal.PasswordChangedAt.Truncate(time.Millisecond).After(issuedAt.Truncate(time.Millisecond))
}

// Protect returns a fiber middleware that rejects unauthenticated requests
// and binds the principal to the request.
func (g *AuthenticationGate) Protect(cfg ...sessionware.Config) fiber.Handler {
	var c sessionware.Config
	if len(cfg) > 0 {
		c = cfg[0]
	}

	if c.TokenLookup == "" {
		c.TokenLookup = g.transport.TokenLookup()
	}

	if c.AuthScheme == "" {
		c.AuthScheme = g.transport.AuthScheme()
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = func(ctx *fiber.Ctx, err error) error {
			return sendError(ctx, toUnauthenticated(err))
		}
	}

	c.Resolver = func(ctx *fiber.Ctx, token string) error {
		principal, claims, err := g.Authenticate(ctx.UserContext(), token)
		if err != nil {
			return err
		}
		bindPrincipal(ctx, principal.Scrubbed(), claims)
		return nil
	}

	return sessionware.New(c)
}

func toUnauthenticated(err error) error {
	if err == nil {
		return nil
	}

	if IsUnauthenticated(err) {
		return err
	}

	if goerrors.IsInternal(err) {
		return err
	}

	return ErrUnauthenticated
}
