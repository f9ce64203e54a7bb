package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Principal is the persisted identity record
type Principal struct {
	bun.BaseModel       `bun:"table:principals,alias:prn"`
	ID                  uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Name                string     `bun:"name,notnull" json:"name"`
	Email               string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash        string     `bun:"password_hash,notnull" json:"-"`
	Role                Role       `bun:"role,notnull" json:"role"`
	PasswordChangedAt   *time.Time `bun:"password_changed_at,nullzero" json:"-"`
	ResetTokenHash      *string    `bun:"reset_token_hash,nullzero" json:"-"`
	ResetTokenExpiresAt *time.Time `bun:"reset_token_expires_at,nullzero" json:"-"`
	Active              bool       `bun:"active,notnull" json:"active"`
	CreatedAt           *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt           *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// Scrubbed returns a copy without any credential material
func (p *Principal) Scrubbed() *Principal {
	if p == nil {
		return nil
	}
	out := *p
	out.PasswordHash = ""
	out.ResetTokenHash = nil
	out.ResetTokenExpiresAt = nil
	return &out
}

// PrincipalChanges lists the mutable fields of a principal. Nil fields are
// left untouched.
type PrincipalChanges struct {
	Name                *string
	PasswordHash        *string
	Role                *Role
	PasswordChangedAt   *time.Time
	ResetTokenHash      *string
	ResetTokenExpiresAt *time.Time
	// ClearResetToken sets both reset columns to NULL
	ClearResetToken bool
	Active          *bool
}

// IsEmpty reports whether no field would be updated
func (c PrincipalChanges) IsEmpty() bool {
	return c.Name == nil &&
		c.PasswordHash == nil &&
		c.Role == nil &&
		c.PasswordChangedAt == nil &&
		c.ResetTokenHash == nil &&
		c.ResetTokenExpiresAt == nil &&
		!c.ClearResetToken &&
		c.Active == nil
}

// NormalizeEmail trims and lowercases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
