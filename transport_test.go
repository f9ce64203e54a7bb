package identity_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == "jwt" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

func TestCookieTransport_Attach(t *testing.T) {
	clock := newTestClock()
	transport := identity.NewCookieTransport(testOptions(), clock.Now)

	app := fiber.New()
	app.Get("/attach", func(c *fiber.Ctx) error {
		transport.Attach(c, "token-value", time.Hour)
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/clear", func(c *fiber.Ctx) error {
		transport.Clear(c)
		return c.SendStatus(fiber.StatusOK)
	})

	tests := []struct {
		name       string
		target     string
		wantSecure bool
	}{
		{"localhost", "http://localhost/attach", false},
		{"localhost with port", "http://localhost:3000/attach", false},
		{"subdomain of localhost", "http://app.localhost/attach", false},
		{"loopback ip", "http://127.0.0.1:8080/attach", false},
		{"public host", "http://example.com/attach", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tt.target, nil))
			require.NoError(t, err)

			cookie := sessionCookie(t, resp)
			assert.Equal(t, "token-value", cookie.Value)
			assert.True(t, cookie.HttpOnly)
			assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
			assert.Equal(t, "/", cookie.Path)
			assert.Equal(t, 3600, cookie.MaxAge)
			assert.Equal(t, tt.wantSecure, cookie.Secure)
		})
	}

	t.Run("clear", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "http://localhost/clear", nil))
		require.NoError(t, err)

		cookie := sessionCookie(t, resp)
		assert.Empty(t, cookie.Value)
		assert.True(t, cookie.HttpOnly)
		assert.True(t, cookie.Expires.Before(clock.Now()))
	})
}

func TestCookieTransport_Extract(t *testing.T) {
	transport := identity.NewCookieTransport(testOptions(), nil)

	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		token, ok := transport.Extract(c)
		if !ok {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.SendString(token)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	req.Header.Set("Cookie", "jwt=from-cookie")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	assert.Equal(t, "header:Authorization,cookie:jwt", transport.TokenLookup())
	assert.Equal(t, "Bearer", transport.AuthScheme())
}

func TestCookieTransport_CustomCookieName(t *testing.T) {
	opts, err := identity.LoadOptionsFrom(map[string]string{
		"IDENTITY_SIGNING_KEY": testSigningKey,
		"IDENTITY_COOKIE_NAME": "session",
	})
	require.NoError(t, err)

	transport := identity.NewCookieTransport(opts, newTestClock().Now)
	assert.Equal(t, "header:Authorization,cookie:session", transport.TokenLookup())

	app := fiber.New()
	app.Post("/login", func(c *fiber.Ctx) error {
		transport.Attach(c, "signed-token", time.Hour)
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/whoami", func(c *fiber.Ctx) error {
		token, ok := transport.Extract(c)
		if !ok {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendString(token)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)

	var attached *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "session" {
			attached = c
		}
	}
	require.NotNil(t, attached)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.AddCookie(attached)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
