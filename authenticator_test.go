package identity_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	identity "github.com/goliatone/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticationGate_Authenticate(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t, nil)
	signed := f.signup(t, "gate@example.com", "pass1234")

	principal, claims, err := f.gate.Authenticate(ctx, signed.Token)
	require.NoError(t, err)
	assert.Equal(t, signed.Principal.ID, principal.ID)
	assert.Equal(t, signed.Principal.ID.String(), claims.SubjectID())

	ghost, _, err := f.tokens.Issue(uuid.NewString())
	require.NoError(t, err)

	notUUID, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		IssuedAt:  jwt.NewNumericDate(f.clock.Now()),
		ExpiresAt: jwt.NewNumericDate(f.clock.Now().Add(time.Hour)),
	}).SignedString([]byte(f.cfg.SigningKey))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"missing", "", identity.ErrUnauthenticated},
		{"malformed", "abc.def.ghi", identity.ErrInvalidToken},
		{"unknown subject", ghost, identity.ErrUnauthenticated},
		{"subject not a uuid", notUUID, identity.ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, claims, err := f.gate.Authenticate(ctx, tt.token)
			assert.Nil(t, principal)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, identity.IsUnauthenticated(err))
		})
	}

	t.Run("expired", func(t *testing.T) {
		f.clock.Advance(identity.DefaultTokenTTL + time.Second)
		_, _, err := f.gate.Authenticate(ctx, signed.Token)
		assert.ErrorIs(t, err, identity.ErrExpiredToken)
	})
}

func TestPasswordChangedAfter(t *testing.T) {
	issuedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := issuedAt.Add(d)
		return &v
	}

	tests := []struct {
		name      string
		changedAt *time.Time
		want      bool
	}{
		{"never changed", nil, false},
		{"changed before", at(-time.Hour), false},
		{"same millisecond", at(400 * time.Microsecond), false},
		{"later in the same second", at(500 * time.Millisecond), true},
		{"next second", at(time.Second), true},
		{"much later", at(time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &identity.Principal{PasswordChangedAt: tt.changedAt}
			assert.Equal(t, tt.want, identity.PasswordChangedAfter(p, issuedAt))
		})
	}

	assert.False(t, identity.PasswordChangedAfter(nil, issuedAt))
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   struct {
		Category string `json:"category"`
		Code     int    `json:"code"`
		TextCode string `json:"text_code"`
		Source   string `json:"source"`
	} `json:"error"`
}

func TestAuthenticationGate_Protect(t *testing.T) {
	ctx := context.Background()
	f := newLifecycleFixture(t, nil)
	signed := f.signup(t, "protect@example.com", "pass1234")

	app := fiber.New()
	app.Get("/private", f.gate.Protect(), func(c *fiber.Ctx) error {
		principal, ok := identity.PrincipalFromFiber(c)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		fromCtx, ok := identity.PrincipalFromContext(c.UserContext())
		if !ok || fromCtx.ID != principal.ID {
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		if _, ok := identity.ClaimsFromContext(c.UserContext()); !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}

		return c.JSON(fiber.Map{"id": principal.ID.String(), "hash": principal.PasswordHash})
	})

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/private", nil)
		req.Header.Set("Authorization", "Bearer "+signed.Token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, signed.Principal.ID.String(), body["id"])
		assert.Empty(t, body["hash"])
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/private", nil)
		req.Header.Set("Cookie", "jwt="+signed.Token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("missing token", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/private", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var body errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "fail", body.Status)
		assert.Equal(t, identity.TextCodeUnauthenticated, body.Error.TextCode)
	})

	t.Run("stale session", func(t *testing.T) {
		f.clock.Advance(time.Second)
		_, err := f.lifecycle.ChangePassword(ctx, identity.ChangePasswordMessage{
			PrincipalID:     signed.Principal.ID,
			CurrentPassword: "pass1234",
			Password:        "pass5678",
			PasswordConfirm: "pass5678",
		})
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/private", nil)
		req.Header.Set("Authorization", "Bearer "+signed.Token)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var body errorBody
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, identity.TextCodeStaleSession, body.Error.TextCode)
		assert.Empty(t, body.Error.Source)
	})
}
