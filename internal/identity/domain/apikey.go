package domain

import "time"

// APIKey is the persisted record for an opaque API key. Only the bcrypt hash
// of the secret is stored; the plaintext is handed to the caller once at
// creation or rotation and is unrecoverable afterwards.
type APIKey struct {
	ID          int64
	KeyHash     string
	Scopes      []string
	Permissions []string
	CreatedAt   time.Time
	ExpiresAt   *time.Time // nil means the key never expires
}

// Expired reports whether the key has passed its expiry at the given clock
// reading. Keys without an expiry never expire.
func (k APIKey) Expired(now time.Time) bool {
	if k.ExpiresAt == nil {
		return false
	}
	return now.After(*k.ExpiresAt)
}
