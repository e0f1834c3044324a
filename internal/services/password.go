package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor applied to every stored password.
const PasswordCost = 10

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(hash), err
}

// VerifyPassword compares a plain password with a hashed password
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var resetCodeSpace = big.NewInt(1_000_000)

// generateResetCode returns a uniformly sampled 6-digit code; leading zeros are kept.
func generateResetCode() (string, error) {
	n, err := rand.Int(rand.Reader, resetCodeSpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashResetCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func resetCodeMatches(candidate, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(hashResetCode(candidate)), []byte(storedHash)) == 1
}

func isResetCodeFormat(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// passwordStamp identifies the account's current password generation. It is the
// millisecond time of the last change, or 0 for a never-changed password.
func passwordStamp(changedAt *time.Time) int64 {
	if changedAt == nil {
		return 0
	}
	return changedAt.UnixMilli()
}
