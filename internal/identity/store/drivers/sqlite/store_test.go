package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/airlockhq/identity/internal/identity/domain"
	"github.com/airlockhq/identity/internal/identity/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestAPIKeysCRUD(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.APIKeys().CreateAPIKey(ctx, domain.APIKey{
		KeyHash:     "$2a$10$fakehashfakehashfakehash",
		Scopes:      []string{"read", "write"},
		Permissions: []string{"packages:submit"},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())
	require.Nil(t, created.ExpiresAt)

	t.Run("get by id round trips fields", func(t *testing.T) {
		got, err := s.APIKeys().GetAPIKeyByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, created.KeyHash, got.KeyHash)
		require.Equal(t, []string{"read", "write"}, got.Scopes)
		require.Equal(t, []string{"packages:submit"}, got.Permissions)
	})

	t.Run("get unknown id returns ErrNotFound", func(t *testing.T) {
		_, err := s.APIKeys().GetAPIKeyByID(ctx, 999999)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list and count see the key", func(t *testing.T) {
		keys, err := s.APIKeys().ListAPIKeys(ctx, 0, 10)
		require.NoError(t, err)
		require.Len(t, keys, 1)

		n, err := s.APIKeys().CountAPIKeys(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	t.Run("delete removes and reports missing", func(t *testing.T) {
		require.NoError(t, s.APIKeys().DeleteAPIKey(ctx, created.ID))
		require.ErrorIs(t, s.APIKeys().DeleteAPIKey(ctx, created.ID), store.ErrNotFound)
	})
}

func TestAPIKeysExpiryStorage(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	expiry := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	created, err := s.APIKeys().CreateAPIKey(ctx, domain.APIKey{
		KeyHash:   "hash-with-expiry",
		ExpiresAt: &expiry,
	})
	require.NoError(t, err)

	got, err := s.APIKeys().GetAPIKeyByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ExpiresAt)
	require.True(t, got.ExpiresAt.Equal(expiry))

	t.Run("empty scopes come back empty, not [\"\"]", func(t *testing.T) {
		require.Empty(t, got.Scopes)
		require.Empty(t, got.Permissions)
	})
}

func TestDeleteExpiredAPIKeys(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	_, err := s.APIKeys().CreateAPIKey(ctx, domain.APIKey{KeyHash: "expired", ExpiresAt: &past})
	require.NoError(t, err)
	live, err := s.APIKeys().CreateAPIKey(ctx, domain.APIKey{KeyHash: "live", ExpiresAt: &future})
	require.NoError(t, err)
	forever, err := s.APIKeys().CreateAPIKey(ctx, domain.APIKey{KeyHash: "forever"})
	require.NoError(t, err)

	deleted, err := s.APIKeys().DeleteExpiredAPIKeys(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	remaining, err := s.APIKeys().ListAllAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 2)

	_, err = s.APIKeys().GetAPIKeyByID(ctx, live.ID)
	require.NoError(t, err)
	_, err = s.APIKeys().GetAPIKeyByID(ctx, forever.ID)
	require.NoError(t, err)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.APIKeys().CreateAPIKey(ctx, domain.APIKey{KeyHash: "inside-tx"}); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	n, err := s.APIKeys().CountAPIKeys(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestWithTxCommits(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx store.Tx) error {
		old, err := tx.APIKeys().CreateAPIKey(ctx, domain.APIKey{KeyHash: "old"})
		if err != nil {
			return err
		}
		if err := tx.APIKeys().DeleteAPIKey(ctx, old.ID); err != nil {
			return err
		}
		_, err = tx.APIKeys().CreateAPIKey(ctx, domain.APIKey{KeyHash: "new"})
		return err
	})
	require.NoError(t, err)

	keys, err := s.APIKeys().ListAllAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.Equal(t, "new", keys[0].KeyHash)
}

func TestAuditLogs(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AuditLogs().CreateAuditEntry(ctx, domain.AuditEntry{
		Actor:  "user-1",
		Action: domain.AuditTokenIssued,
		Detail: "login",
	}))
	require.NoError(t, s.AuditLogs().CreateAuditEntry(ctx, domain.AuditEntry{
		Actor:  "api-key-3",
		Action: domain.AuditAPIKeyAuth,
	}))

	entries, err := s.AuditLogs().ListAuditEntries(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	t.Run("newest first", func(t *testing.T) {
		require.Equal(t, domain.AuditAPIKeyAuth, entries[0].Action)
		require.Equal(t, domain.AuditTokenIssued, entries[1].Action)
	})

	t.Run("ids and timestamps are assigned", func(t *testing.T) {
		for _, e := range entries {
			require.NotEmpty(t, e.ID)
			require.False(t, e.CreatedAt.IsZero())
		}
	})

	t.Run("trim by cutoff", func(t *testing.T) {
		deleted, err := s.AuditLogs().DeleteAuditEntriesBefore(ctx, time.Now().UTC().Add(time.Minute))
		require.NoError(t, err)
		require.EqualValues(t, 2, deleted)
	})
}
