package identity

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/crypto/bcrypt"
)

const minSigningKeyLength = 32

var knownWeakSecrets = []string{
	"change-me", "secret", "my-ultra-secure-and-ultra-long-secret", "password",
}

var _ Config = &Options{}

// Options is the environment backed Config implementation
type Options struct {
	SigningKey          string        `env:"IDENTITY_SIGNING_KEY,required"`
	TokenTTL            time.Duration `env:"IDENTITY_TOKEN_TTL" envDefault:"2160h"`
	ResetTokenTTL       time.Duration `env:"IDENTITY_RESET_TOKEN_TTL" envDefault:"10m"`
	PasswordCost        int           `env:"IDENTITY_PASSWORD_COST" envDefault:"12"`
	Issuer              string        `env:"IDENTITY_ISSUER"`
	Audience            []string      `env:"IDENTITY_AUDIENCE" envSeparator:","`
	CookieName          string        `env:"IDENTITY_COOKIE_NAME" envDefault:"jwt"`
	TokenLookup         string        `env:"IDENTITY_TOKEN_LOOKUP"`
	AuthScheme          string        `env:"IDENTITY_AUTH_SCHEME" envDefault:"Bearer"`
	ResetURLBase        string        `env:"IDENTITY_RESET_URL_BASE" envDefault:"http://localhost:8080/api/v1/users/reset-password"`
	ConcealUnknownEmail bool          `env:"IDENTITY_CONCEAL_UNKNOWN_EMAIL" envDefault:"false"`
	UseHashid           bool          `env:"IDENTITY_USE_HASHID" envDefault:"false"`
	OperationTimeout    time.Duration `env:"IDENTITY_OPERATION_TIMEOUT" envDefault:"10s"`
}

// LoadOptions reads Options from the process environment
func LoadOptions() (*Options, error) {
	return LoadOptionsFrom(nil)
}

// LoadOptionsFrom reads Options from environment, or from the process
// environment when it is nil
func LoadOptionsFrom(environment map[string]string) (*Options, error) {
	opts := &Options{}

	parseOpts := env.Options{}
	if environment != nil {
		parseOpts.Environment = environment
	}

	if err := env.ParseWithOptions(opts, parseOpts); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "failed to parse identity options")
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// Validate checks the options are usable
func (o *Options) Validate() error {
	fields := map[string]string{}

	key := strings.TrimSpace(o.SigningKey)
	switch {
	case len(key) < minSigningKeyLength:
		fields["IDENTITY_SIGNING_KEY"] = "must be at least 32 characters"
	case isWeakSecret(key):
		fields["IDENTITY_SIGNING_KEY"] = "is a known weak default"
	}

	if o.TokenTTL <= 0 {
		fields["IDENTITY_TOKEN_TTL"] = "must be positive"
	}

	if o.ResetTokenTTL <= 0 {
		fields["IDENTITY_RESET_TOKEN_TTL"] = "must be positive"
	}

	if o.PasswordCost < bcrypt.MinCost || o.PasswordCost > bcrypt.MaxCost {
		fields["IDENTITY_PASSWORD_COST"] = "must be a valid bcrypt cost"
	}

	if o.OperationTimeout <= 0 {
		fields["IDENTITY_OPERATION_TIMEOUT"] = "must be positive"
	}

	if name, ok := lookupCookieName(o.TokenLookup); ok && name != o.GetCookieName() {
		fields["IDENTITY_TOKEN_LOOKUP"] = "cookie source must match IDENTITY_COOKIE_NAME"
	}

	if len(fields) > 0 {
		return goerrors.NewValidationFromMap("invalid identity options", fields)
	}

	return nil
}

func isWeakSecret(value string) bool {
	for _, weak := range knownWeakSecrets {
		if strings.EqualFold(value, weak) {
			return true
		}
	}
	return false
}

func (o *Options) GetSigningKey() []byte {
	return []byte(o.SigningKey)
}

func (o *Options) GetTokenTTL() time.Duration {
	return o.TokenTTL
}

func (o *Options) GetResetTokenTTL() time.Duration {
	return o.ResetTokenTTL
}

func (o *Options) GetPasswordCost() int {
	return o.PasswordCost
}

func (o *Options) GetIssuer() string {
	return o.Issuer
}

func (o *Options) GetAudience() []string {
	return o.Audience
}

func (o *Options) GetCookieName() string {
	if o.CookieName == "" {
		return DefaultCookieName
	}
	return o.CookieName
}

// GetTokenLookup returns the configured lookup, or header then cookie
// using the configured cookie name.
func (o *Options) GetTokenLookup() string {
	if o.TokenLookup == "" {
		return "header:Authorization,cookie:" + o.GetCookieName()
	}
	return o.TokenLookup
}

func lookupCookieName(lookup string) (string, bool) {
	for _, source := range strings.Split(lookup, ",") {
		parts := strings.SplitN(strings.TrimSpace(source), ":", 2)
		if len(parts) == 2 && parts[0] == "cookie" {
			return strings.TrimSpace(parts[1]), true
		}
	}
	return "", false
}

func (o *Options) GetAuthScheme() string {
	return o.AuthScheme
}

func (o *Options) GetResetURLBase() string {
	return strings.TrimRight(o.ResetURLBase, "/")
}

func (o *Options) GetConcealUnknownEmail() bool {
	return o.ConcealUnknownEmail
}

func (o *Options) GetUseHashid() bool {
	return o.UseHashid
}

func (o *Options) GetOperationTimeout() time.Duration {
	return o.OperationTimeout
}
