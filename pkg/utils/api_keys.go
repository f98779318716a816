package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// ApiKeyPrefix marks keys issued by this service so they are recognizable in
// headers and secret scanners.
const ApiKeyPrefix = "cf_"

// GenerateRandomKey returns length random bytes, base64url encoded.
func GenerateRandomKey(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// NewApiKey returns a prefixed random key.
func NewApiKey() (string, error) {
	raw, err := GenerateRandomKey(32)
	if err != nil {
		return "", err
	}
	return ApiKeyPrefix + strings.TrimRight(raw, "="), nil
}

// HashApiKey is the lookup form of a key. Only hashes are stored.
func HashApiKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ApiKeyHint keeps enough of a key to tell keys apart in a listing.
func ApiKeyHint(key string) string {
	if len(key) <= len(ApiKeyPrefix)+4 {
		return ApiKeyPrefix + "..."
	}
	return key[:len(ApiKeyPrefix)+4] + "..."
}
