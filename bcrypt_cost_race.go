//go:build race

package identity

import "golang.org/x/crypto/bcrypt"

func passwordHashCost() int {
	// race builds are slow enough without cost 12
	return bcrypt.DefaultCost
}
