package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Fingerprint creates a SHA256 hash of the given parts joined with '|'.
// Audit records and cache keys carry this instead of the raw query so
// sensitive seed terms never leak into shared stores or logs.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// KeywordID derives a stable identifier for a keyword from its source
// tag and normalized text.
func KeywordID(source, normalized string) string {
	return Fingerprint(source, normalized)[:32]
}

// Normalize lowercases a keyword and collapses runs of whitespace to a
// single space. Identity and dedup both key on the normalized form.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
