package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Hasher derives password digests from a process-wide secret.
// Digests are unsalted beyond the secret, so equal passwords share a digest.
type Hasher struct {
	secret string
}

// NewHasher creates a Hasher bound to secret.
func NewHasher(secret string) *Hasher {
	return &Hasher{secret: secret}
}

// Hash returns the lowercase hex SHA-256 of secret+password.
func (h *Hasher) Hash(password string) string {
	sum := sha256.Sum256([]byte(h.secret + password))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether password produces digest.
func (h *Hasher) Verify(password, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(h.Hash(password)), []byte(digest)) == 1
}
