package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Fingerprint returns the hex-encoded SHA-256 of a one-time token. Only the
// fingerprint is persisted; the raw token exists in the delivered link.
func Fingerprint(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// FingerprintMatches reports, in constant time, whether token hashes to stored.
func FingerprintMatches(token, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(Fingerprint(token)), []byte(stored)) == 1
}

// CodeEqual compares two verification codes in constant time.
func CodeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
