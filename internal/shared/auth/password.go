package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for new password hashes.
const BcryptCost = 12

var ErrPasswordMismatch = errors.New("password mismatch")

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// LegacyHash returns the lowercase SHA-256 hex digest used by older accounts.
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// IsLegacyHash reports whether stored looks like a SHA-256 hex digest.
func IsLegacyHash(stored string) bool {
	if len(stored) != 64 {
		return false
	}
	for _, r := range stored {
		if !(r >= '0' && r <= '9') && !(r >= 'a' && r <= 'f') {
			return false
		}
	}
	return true
}

// CheckPassword compares password against a stored bcrypt or legacy hash.
// needsRehash is true when the stored hash is legacy and matched.
func CheckPassword(stored, password string) (needsRehash bool, err error) {
	switch {
	case strings.HasPrefix(stored, "$2"):
		if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)); err != nil {
			return false, ErrPasswordMismatch
		}
		return false, nil
	case IsLegacyHash(stored):
		if subtle.ConstantTimeCompare([]byte(stored), []byte(LegacyHash(password))) != 1 {
			return false, ErrPasswordMismatch
		}
		return true, nil
	default:
		return false, ErrPasswordMismatch
	}
}
