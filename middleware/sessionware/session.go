// Package sessionware extracts session tokens from fiber requests and hands
// them to a resolver before letting the request through.
package sessionware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultTokenLookup = "header:Authorization,cookie:jwt"
	defaultAuthScheme  = "Bearer"
)

// ErrSessionMissing is returned when no extractor found a token
var ErrSessionMissing = errors.New("missing or malformed session token")

// Resolver validates token and binds the result to the request. A non nil
// error rejects the request.
type Resolver func(c *fiber.Ctx, token string) error

type Config struct {
	// Filter skips the middleware when it returns true
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	// TokenLookup is a comma separated list of source:name pairs, sources
	// are header, cookie, query and param
	TokenLookup string
	AuthScheme  string
	Resolver    Resolver
}

func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := GetExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		token, err := ExtractToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		if err := cfg.Resolver(c, token); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		return cfg.SuccessHandler(c)
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).SendString("Invalid or expired session")
		}
	}

	if cfg.Resolver == nil {
		panic("IDENTITY: session middleware configuration: Resolver is required.")
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = defaultAuthScheme
	}

	return cfg
}

// ExtractToken returns the first token found by extractors
func ExtractToken(c *fiber.Ctx, extractors []Extractor) (string, error) {
	for _, extractor := range extractors {
		if raw, err := extractor(c); raw != "" && err == nil {
			return raw, nil
		}
	}
	return "", ErrSessionMissing
}

type Extractor func(c *fiber.Ctx) (string, error)

// GetExtractors parses lookups such as
// "header:Authorization,cookie:jwt,query:auth_token,param:token"
func GetExtractors(tokenLookup string, authSchemes ...string) []Extractor {
	extractors := make([]Extractor, 0)

	authScheme := defaultAuthScheme
	if len(authSchemes) > 0 && strings.TrimSpace(authSchemes[0]) != "" {
		authScheme = strings.TrimSpace(authSchemes[0])
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(rootPart), ":", 2)
		if len(parts) != 2 {
			continue
		}

		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if name == "" {
			continue
		}

		switch source {
		case "header":
			extractors = append(extractors, fromHeader(name, authScheme))
		case "query":
			extractors = append(extractors, fromQuery(name))
		case "param":
			extractors = append(extractors, fromParam(name))
		case "cookie":
			extractors = append(extractors, fromCookie(name))
		}
	}

	return extractors
}

// fromHeader expects "<scheme> <token>"
func fromHeader(header string, authScheme string) Extractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			if token := strings.TrimSpace(a[l:]); token != "" {
				return token, nil
			}
		}
		return "", ErrSessionMissing
	}
}

func fromQuery(param string) Extractor {
	return func(c *fiber.Ctx) (string, error) {
		if token := c.Query(param); token != "" {
			return token, nil
		}
		return "", ErrSessionMissing
	}
}

func fromParam(param string) Extractor {
	return func(c *fiber.Ctx) (string, error) {
		if token := c.Params(param); token != "" {
			return token, nil
		}
		return "", ErrSessionMissing
	}
}

func fromCookie(name string) Extractor {
	return func(c *fiber.Ctx) (string, error) {
		if token := c.Cookies(name); token != "" {
			return token, nil
		}
		return "", ErrSessionMissing
	}
}
