package identity

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	goerrors "github.com/goliatone/go-errors"
)

const pgUniqueViolation = "23505"

var _ CredentialStore = &PrincipalsRepository{}

// PrincipalsRepository is the bun backed CredentialStore. Lookups and
// inserts go through the generic repository, writes that need row level
// conditions use bun directly.
type PrincipalsRepository struct {
	repo      repository.Repository[*Principal]
	db        *bun.DB
	useHashid bool
	clock     Clock
}

// PrincipalsOption configures the repository
type PrincipalsOption func(*PrincipalsRepository)

// WithHashidIDs derives new principal IDs from the email address
func WithHashidIDs(enabled bool) PrincipalsOption {
	return func(r *PrincipalsRepository) {
		r.useHashid = enabled
	}
}

// WithRepositoryClock overrides the time source used for timestamps
func WithRepositoryClock(clock Clock) PrincipalsOption {
	return func(r *PrincipalsRepository) {
		r.clock = clock
	}
}

// NewPrincipalsRepository returns a repository over db
func NewPrincipalsRepository(db *bun.DB, opts ...PrincipalsOption) *PrincipalsRepository {
	r := &PrincipalsRepository{
		repo: repository.NewRepository[*Principal](db, repository.ModelHandlers[*Principal]{
			NewRecord: func() *Principal { return &Principal{} },
			GetID: func(p *Principal) uuid.UUID {
				if p == nil {
					return uuid.Nil
				}
				return p.ID
			},
			SetID: func(p *Principal, id uuid.UUID) {
				if p != nil {
					p.ID = id
				}
			},
			GetIdentifier: func() string {
				return "email"
			},
		}),
		db: db,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// activeOnly hides deactivated principals from lookups
func activeOnly(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Where("?TableAlias.active = ?", true)
}

func (r *PrincipalsRepository) FindByEmail(ctx context.Context, email string) (*Principal, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}

	record, err := r.repo.GetByIdentifier(ctx, email, activeOnly)
	return foundOrNotFound(record, err, "email")
}

func (r *PrincipalsRepository) FindByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	if id == uuid.Nil {
		return nil, ErrNotFound
	}

	record, err := r.repo.GetByID(ctx, id.String(), activeOnly)
	return foundOrNotFound(record, err, "id")
}

func (r *PrincipalsRepository) FindByResetTokenHash(ctx context.Context, hash string) (*Principal, error) {
	if hash == "" {
		return nil, ErrNotFound
	}
	return r.findTx(ctx, r.db, "reset_token_hash", hash, activeOnly)
}

func (r *PrincipalsRepository) findTx(ctx context.Context, tx bun.IDB, column string, value any, criteria ...repository.SelectCriteria) (*Principal, error) {
	record := &Principal{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)

	return foundOrNotFound(record, err, column)
}

func foundOrNotFound(record *Principal, err error, column string) (*Principal, error) {
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load principal").
			WithMetadata(map[string]any{"column": column})
	}

	if record == nil {
		return nil, ErrNotFound
	}

	return record, nil
}

// Create inserts a principal. Email uniqueness is checked against active
// and inactive principals.
func (r *PrincipalsRepository) Create(ctx context.Context, record *Principal) (*Principal, error) {
	if record == nil {
		return nil, goerrors.New("principal must not be nil", goerrors.CategoryInternal)
	}

	if err := r.prepareDefaults(record); err != nil {
		return nil, err
	}

	var out *Principal
	err := runInTx(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*Principal)(nil)).
			Where("email = ?", record.Email).
			Exists(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email")
		}

		if exists {
			return ErrEmailTaken
		}

		created, err := r.repo.CreateTx(ctx, tx, record)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create principal")
		}

		out = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Update applies changes to an active principal and returns the new state
func (r *PrincipalsRepository) Update(ctx context.Context, id uuid.UUID, changes PrincipalChanges) (*Principal, error) {
	var out *Principal

	err := runInTx(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		if !changes.IsEmpty() {
			q := tx.NewUpdate().
				Table("principals").
				Where("id = ?", id).
				Where("active = ?", true)

			res, err := r.applyChanges(q, changes).Exec(ctx)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update principal")
			}

			if n, _ := res.RowsAffected(); n == 0 {
				return ErrNotFound
			}
		}

		// deactivation makes the row invisible to activeOnly lookups
		record := &Principal{}
		if err := tx.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reload principal")
		}

		out = record
		return nil
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// ConsumeResetToken applies changes only if the stored reset hash still
// equals hash. Two concurrent calls for the same hash cannot both succeed.
func (r *PrincipalsRepository) ConsumeResetToken(ctx context.Context, id uuid.UUID, hash string, changes PrincipalChanges) (*Principal, error) {
	if hash == "" {
		return nil, ErrResetTokenConsumed
	}

	changes.ClearResetToken = true

	var out *Principal
	err := runInTx(ctx, r.db, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewUpdate().
			Table("principals").
			Where("id = ?", id).
			Where("reset_token_hash = ?", hash).
			Where("active = ?", true)

		res, err := r.applyChanges(q, changes).Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume reset token")
		}

		if n, _ := res.RowsAffected(); n != 1 {
			return ErrResetTokenConsumed
		}

		record, err := r.findTx(ctx, tx, "id", id, activeOnly)
		if err != nil {
			return err
		}

		out = record
		return nil
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *PrincipalsRepository) applyChanges(q *bun.UpdateQuery, c PrincipalChanges) *bun.UpdateQuery {
	if c.Name != nil {
		q = q.Set("name = ?", *c.Name)
	}

	if c.PasswordHash != nil {
		q = q.Set("password_hash = ?", *c.PasswordHash)
	}

	if c.Role != nil {
		q = q.Set("role = ?", string(*c.Role))
	}

	if c.PasswordChangedAt != nil {
		q = q.Set("password_changed_at = ?", c.PasswordChangedAt.UTC())
	}

	if c.ClearResetToken {
		q = q.Set("reset_token_hash = NULL").Set("reset_token_expires_at = NULL")
	} else {
		if c.ResetTokenHash != nil {
			q = q.Set("reset_token_hash = ?", *c.ResetTokenHash)
		}
		if c.ResetTokenExpiresAt != nil {
			q = q.Set("reset_token_expires_at = ?", c.ResetTokenExpiresAt.UTC())
		}
	}

	if c.Active != nil {
		q = q.Set("active = ?", *c.Active)
	}

	return q.Set("updated_at = ?", r.clock.now().UTC())
}

func (r *PrincipalsRepository) prepareDefaults(record *Principal) error {
	record.Email = NormalizeEmail(record.Email)
	record.Name = strings.TrimSpace(record.Name)

	if record.Role == "" {
		record.Role = RoleUser
	}

	if record.ID == uuid.Nil {
		if r.useHashid {
			id, err := hashid.NewUUID(record.Email)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive principal id")
			}
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}

	now := r.clock.now().UTC()
	record.CreatedAt = &now
	record.UpdatedAt = &now

	return nil
}

func runInTx(ctx context.Context, db bun.IDB, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return db.RunInTx(ctx, nil, f)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
