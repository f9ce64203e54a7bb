package identity

import (
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-identity/middleware/sessionware"
)

// SessionTransport carries session tokens between the caller and the server
type SessionTransport interface {
	Attach(c *fiber.Ctx, token string, ttl time.Duration)
	Extract(c *fiber.Ctx) (string, bool)
	Clear(c *fiber.Ctx)
}

var _ SessionTransport = &CookieTransport{}

// CookieTransport writes the token to an HttpOnly, SameSite=Strict cookie and
// reads it back from the configured lookups (Authorization header first).
type CookieTransport struct {
	cookieName  string
	tokenLookup string
	authScheme  string
	extractors  []sessionware.Extractor
	clock       Clock
}

// NewCookieTransport builds a transport from configuration
func NewCookieTransport(cfg Config, clock Clock) *CookieTransport {
	name := cfg.GetCookieName()
	if name == "" {
		name = DefaultCookieName
	}

	lookup := cfg.GetTokenLookup()
	if lookup == "" {
		lookup = "header:Authorization,cookie:" + name
	}

	scheme := cfg.GetAuthScheme()
	if scheme == "" {
		scheme = "Bearer"
	}

	return &CookieTransport{
		cookieName:  name,
		tokenLookup: lookup,
		authScheme:  scheme,
		extractors:  sessionware.GetExtractors(lookup, scheme),
		clock:       clock,
	}
}

// Attach sets the session cookie. Secure is set unless the request targets
// a loopback host.
func (t *CookieTransport) Attach(c *fiber.Ctx, token string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     t.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  t.clock.now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   !isLocalRequest(c),
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (t *CookieTransport) Extract(c *fiber.Ctx) (string, bool) {
	token, err := sessionware.ExtractToken(c, t.extractors)
	if err != nil {
		return "", false
	}
	return token, true
}

// Clear expires the session cookie
func (t *CookieTransport) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     t.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  t.clock.now().Add(-24 * time.Hour),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   !isLocalRequest(c),
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (t *CookieTransport) TokenLookup() string {
	return t.tokenLookup
}

func (t *CookieTransport) AuthScheme() string {
	return t.authScheme
}

func isLocalRequest(c *fiber.Ctx) bool {
	if c.Protocol() == "https" {
		return false
	}

	host := strings.ToLower(c.Hostname())
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}

	return false
}
