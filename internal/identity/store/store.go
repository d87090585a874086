package store

import (
	"context"
	"errors"
	"time"

	"github.com/airlockhq/identity/internal/identity/domain"
)

var (
	ErrNotFound = errors.New("store: not found")
)

// Store is the root data access interface. Concrete drivers (sqlite today,
// postgres later) implement this. Sub-repositories keep concerns tidy and
// let tests fake one repo without faking the world.
type Store interface {
	APIKeys() APIKeys
	AuditLogs() AuditLogs

	ApplyMigrations() error

	// WithTx executes fn within a transaction, committing on nil and rolling
	// back on error. Multi-step operations that must be atomic (key rotation)
	// go through here.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped Store.
type Tx interface {
	APIKeys() APIKeys
	AuditLogs() AuditLogs

	Commit() error
	Rollback() error
}

type APIKeys interface {
	// CreateAPIKey inserts a new key record and returns it with the
	// database-assigned id.
	CreateAPIKey(ctx context.Context, key domain.APIKey) (domain.APIKey, error)

	// GetAPIKeyByID fetches a single key.
	GetAPIKeyByID(ctx context.Context, id int64) (domain.APIKey, error)

	// ListAPIKeys returns keys newest-first with offset pagination.
	ListAPIKeys(ctx context.Context, offset, limit int) ([]domain.APIKey, error)

	// ListAllAPIKeys returns every live key. Used by the linear
	// verify-by-plaintext scan; bcrypt hashes cannot be indexed.
	ListAllAPIKeys(ctx context.Context) ([]domain.APIKey, error)

	// CountAPIKeys returns the total number of keys.
	CountAPIKeys(ctx context.Context) (int, error)

	// DeleteAPIKey removes a key. Deletion is revocation.
	DeleteAPIKey(ctx context.Context, id int64) error

	// DeleteExpiredAPIKeys removes keys whose expiry has passed. Housekeeping.
	DeleteExpiredAPIKeys(ctx context.Context, now time.Time) (int64, error)
}

type AuditLogs interface {
	// CreateAuditEntry appends one event row.
	CreateAuditEntry(ctx context.Context, entry domain.AuditEntry) error

	// ListAuditEntries returns entries newest-first with offset pagination.
	ListAuditEntries(ctx context.Context, offset, limit int) ([]domain.AuditEntry, error)

	// DeleteAuditEntriesBefore trims entries older than cutoff. Housekeeping.
	DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
