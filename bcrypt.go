package identity

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is the bcrypt work factor used for new hashes
const DefaultPasswordCost = 12

var _ PasswordHasher = BcryptHasher{}

// BcryptHasher hashes passwords with bcrypt
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher with the given cost. Out of range values
// fall back to the build default.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return BcryptHasher{Cost: cost}
}

// Hash will generate a password hash
func (h BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	cost := h.Cost
	if cost == 0 {
		cost = passwordHashCost()
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(digest), err
}

// Verify will validate the given cleartext password matches the digest
func (h BcryptHasher) Verify(password, digest string) bool {
	return ComparePasswordAndHash(password, digest) == nil
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return err
	}
	return nil
}

// RandomPasswordHash hashes a random value. Login uses it to spend the same
// bcrypt time on unknown emails as on real ones.
func RandomPasswordHash(h PasswordHasher) string {
	digest, err := h.Hash(uuid.NewString())
	if err != nil {
		return ""
	}
	return digest
}
