package identity_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	identity "github.com/goliatone/go-identity"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/mattn/go-sqlite3"
)

const testSigningKey = "a-test-signing-key-that-is-long-enough-for-hs256"

func testOptions() *identity.Options {
	return &identity.Options{
		SigningKey:       testSigningKey,
		TokenTTL:         identity.DefaultTokenTTL,
		ResetTokenTTL:    identity.DefaultResetTokenTTL,
		PasswordCost:     bcrypt.MinCost,
		CookieName:       "jwt",
		TokenLookup:      "header:Authorization,cookie:jwt",
		AuthScheme:       "Bearer",
		ResetURLBase:     "http://localhost/api/v1/users/reset-password",
		OperationTimeout: 5 * time.Second,
	}
}

func setupRepositoryManager(t *testing.T, opts ...identity.PrincipalsOption) *identity.RepositoryManager {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	repo := identity.NewRepositoryManager(db, opts...)
	require.NoError(t, repo.Validate())
	require.NoError(t, repo.Migrate(context.Background()))

	return repo
}

type lifecycleFixture struct {
	cfg       *identity.Options
	clock     *testClock
	repo      *identity.RepositoryManager
	store     *identity.PrincipalsRepository
	mailer    identity.Mailer
	tokens    *identity.TokenService
	lifecycle *identity.Lifecycle
	gate      *identity.AuthenticationGate
	transport *identity.CookieTransport
}

func newLifecycleFixture(t *testing.T, mailer identity.Mailer, opts ...identity.LifecycleOption) *lifecycleFixture {
	t.Helper()

	cfg := testOptions()
	clock := newTestClock()
	repo := setupRepositoryManager(t, identity.WithRepositoryClock(clock.Now))
	tokens := identity.NewTokenService(cfg, identity.WithTokenClock(clock.Now), identity.WithTokenLogger(testLogger{}))

	if mailer == nil {
		mailer = &captureMailer{}
	}

	opts = append([]identity.LifecycleOption{
		identity.WithClock(clock.Now),
		identity.WithLogger(testLogger{}),
		identity.WithTokenIssuer(tokens),
	}, opts...)

	transport := identity.NewCookieTransport(cfg, clock.Now)

	return &lifecycleFixture{
		cfg:       cfg,
		clock:     clock,
		repo:      repo,
		store:     repo.Principals(),
		mailer:    mailer,
		tokens:    tokens,
		lifecycle: identity.NewLifecycle(cfg, repo.Principals(), mailer, opts...),
		gate:      identity.NewAuthenticationGate(tokens, repo.Principals(), transport, testLogger{}),
		transport: transport,
	}
}

func (f *lifecycleFixture) signup(t *testing.T, email, password string) *identity.AuthResult {
	t.Helper()

	res, err := f.lifecycle.Signup(context.Background(), identity.SignupMessage{
		Name:            "Test Principal",
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

var resetURLPattern = regexp.MustCompile(`reset-password/([0-9a-f]+)`)

func secretFromEmail(t *testing.T, email identity.Email) string {
	t.Helper()
	m := resetURLPattern.FindStringSubmatch(email.Text)
	require.Len(t, m, 2, fmt.Sprintf("no reset url in %q", email.Text))
	return m[1]
}
