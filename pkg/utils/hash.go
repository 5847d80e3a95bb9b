package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashString creates a SHA-256 hash of the input string
func HashString(input string) string {
	h := sha256.New()
	h.Write([]byte(input))

	return hex.EncodeToString(h.Sum(nil))
}

// NormalizeEmail returns the trimmed, Unicode case-folded form used to
// compare addresses.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashEmail hashes the normalized form of an email so that casing variants
// of the same address produce the same key.
func HashEmail(email string) string {
	return HashString(NormalizeEmail(email))
}
