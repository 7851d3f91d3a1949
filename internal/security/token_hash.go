package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// NewRawRefreshToken generates an opaque refresh-token secret with 256 bits
// of entropy, URL-safe encoded. The raw value goes to the client and is never
// persisted.
func NewRawRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashRefreshToken derives the at-rest digest of a raw refresh secret using
// HMAC-SHA256 keyed with the server-side pepper. A database leak alone is not
// enough to forge a secret: the pepper never sits next to the hashes.
func HashRefreshToken(raw, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// RefreshTokenHashMatches compares a presented raw secret against a stored
// digest in constant time.
func RefreshTokenHashMatches(raw, pepper, storedHash string) bool {
	return hmac.Equal([]byte(HashRefreshToken(raw, pepper)), []byte(storedHash))
}
