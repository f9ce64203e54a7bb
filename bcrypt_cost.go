//go:build !race

package identity

func passwordHashCost() int {
	return DefaultPasswordCost
}
