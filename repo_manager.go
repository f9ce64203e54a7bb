package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-identity/migrations"
	"github.com/goliatone/go-repository-bun"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

var (
	_ repository.Validator          = (*RepositoryManager)(nil)
	_ repository.TransactionManager = (*RepositoryManager)(nil)
)

// RepositoryManager owns the database handle and exposes the repositories
type RepositoryManager struct {
	db         *bun.DB
	principals *PrincipalsRepository
}

// NewRepositoryManager wires the repositories over db
func NewRepositoryManager(db *bun.DB, opts ...PrincipalsOption) *RepositoryManager {
	return &RepositoryManager{
		db:         db,
		principals: NewPrincipalsRepository(db, opts...),
	}
}

func (m *RepositoryManager) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database")
	}

	if m.principals == nil {
		return errors.New("repository principals should be initialized")
	}

	return nil
}

func (m *RepositoryManager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

// Principals returns the credential store
func (m *RepositoryManager) Principals() *PrincipalsRepository {
	return m.principals
}

func (m *RepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Migrate applies the embedded schema migrations
func (m *RepositoryManager) Migrate(ctx context.Context) error {
	gooseDialect, err := gooseDialectFor(m.db.Dialect().Name())
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(gooseDialect, m.db.DB, migrations.FS)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create migration provider")
	}

	if _, err := provider.Up(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply migrations")
	}

	return nil
}

func gooseDialectFor(name dialect.Name) (goose.Dialect, error) {
	switch name {
	case dialect.SQLite:
		return goose.DialectSQLite3, nil
	case dialect.PG:
		return goose.DialectPostgres, nil
	default:
		return "", goerrors.New("unsupported database dialect: "+name.String(), goerrors.CategoryInternal)
	}
}
