package identity

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var principalCtxKey = &contextKey{"principal"}
var claimsCtxKey = &contextKey{"claims"}

// LocalsPrincipalKey is the fiber locals key holding the authenticated principal
const LocalsPrincipalKey = "principal"

// LocalsClaimsKey is the fiber locals key holding the session claims
const LocalsClaimsKey = "session_claims"

type contextKey struct {
	name string
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext finds the principal from the context
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok && raw != nil
}

// WithClaims sets the session claims in the given context
func WithClaims(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the session claims from the context
func ClaimsFromContext(ctx context.Context) (*SessionClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*SessionClaims)
	return raw, ok && raw != nil
}

// PrincipalFromFiber reads the principal bound by the authentication gate
func PrincipalFromFiber(c *fiber.Ctx) (*Principal, bool) {
	raw, ok := c.Locals(LocalsPrincipalKey).(*Principal)
	return raw, ok && raw != nil
}

func bindPrincipal(c *fiber.Ctx, principal *Principal, claims *SessionClaims) {
	c.Locals(LocalsPrincipalKey, principal)
	c.Locals(LocalsClaimsKey, claims)

	ctx := WithPrincipal(c.UserContext(), principal)
	ctx = WithClaims(ctx, claims)
	c.SetUserContext(ctx)
}
