package identity

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength matches the validation the registration flows enforce
// before hashing.
const MinPasswordLength = 8

// ErrWeakPassword rejects passwords below the minimum length.
var ErrWeakPassword = errors.New("identity: password too short")

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with the stored hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("identity: password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
