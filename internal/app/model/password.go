package model

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// HashPassword returns the lowercase hex SHA-256 digest stored for passwords.
func HashPassword(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// PasswordMatches compares plain against a stored digest in constant time.
func PasswordMatches(plain, digest string) bool {
	got := HashPassword(plain)
	return subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(digest))) == 1
}
