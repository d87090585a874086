// Package cryptox holds the secret-handling primitives for API keys.
package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// APIKeyPrefix identifies our keys in logs-by-shape without leaking
	// anything: the prefix is the only part that is not secret.
	APIKeyPrefix = "ak_"

	// APIKeyBytes is the secret length before hex encoding. 32 bytes gives a
	// 2^256 space; collisions are not a practical concern.
	APIKeyBytes = 32
)

// GenerateAPIKey returns a fresh plaintext API key secret. The caller shows
// it to the end user exactly once and must not retain it.
func GenerateAPIKey() (string, error) {
	buf := make([]byte, APIKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate api key: %w", err)
	}
	return APIKeyPrefix + hex.EncodeToString(buf), nil
}

// HashAPIKey hashes a plaintext key for storage. bcrypt salts internally, so
// hashing the same key twice yields different strings; never compare hashes
// to deduplicate keys.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("cryptox: failed to hash api key: %w", err)
	}
	return string(hash), nil
}

// VerifyAPIKey checks a candidate plaintext against a stored hash. Any
// internal failure (corrupt hash, wrong format) counts as a mismatch rather
// than propagating.
func VerifyAPIKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

// LooksLikeAPIKey is a cheap shape check used to short-circuit obviously
// wrong credentials before paying for a bcrypt comparison.
func LooksLikeAPIKey(candidate string) bool {
	if !strings.HasPrefix(candidate, APIKeyPrefix) {
		return false
	}
	suffix := strings.TrimPrefix(candidate, APIKeyPrefix)
	if len(suffix) != APIKeyBytes*2 {
		return false
	}
	_, err := hex.DecodeString(suffix)
	return err == nil
}
