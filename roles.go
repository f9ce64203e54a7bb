package identity

import (
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Role is the closed set of principal roles
type Role string

const (
	// RoleUser is the default role assigned at signup
	RoleUser Role = "user"
	// RoleGuide can lead tours
	RoleGuide Role = "guide"
	// RoleLeadGuide manages guides
	RoleLeadGuide Role = "lead-guide"
	// RoleAdmin has full access
	RoleAdmin Role = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a raw value into a Role
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.IsValid() {
		return "", goerrors.New(fmt.Sprintf("unknown role %q", raw), goerrors.CategoryValidation).
			WithTextCode(TextCodeValidation)
	}
	return role, nil
}

// GetAllRoles returns all valid roles
func GetAllRoles() []Role {
	return []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}
}
