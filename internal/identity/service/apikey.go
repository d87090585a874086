package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/airlockhq/identity/internal/identity/domain"
	"github.com/airlockhq/identity/internal/identity/store"
	"github.com/airlockhq/identity/pkg/cryptox"
	"github.com/airlockhq/identity/pkg/slogx"
)

var (
	ErrAPIKeyInvalid = errors.New("invalid_api_key")
	ErrAPIKeyExpired = errors.New("api_key_expired")
)

// APIKeyService owns the lifecycle of opaque API keys. The plaintext secret
// exists in memory only at creation and rotation; everything else works off
// the bcrypt hash.
type APIKeyService struct {
	Store store.Store
	Audit *AuditService
}

// CreateParams controls key creation. Zero ExpiresInDays means the key never
// expires.
type CreateParams struct {
	Scopes        []string
	Permissions   []string
	ExpiresInDays int
}

// Create mints a new key and returns the record plus the plaintext secret.
// The plaintext is never stored and cannot be recovered later.
func (s *APIKeyService) Create(ctx context.Context, actor string, params CreateParams) (domain.APIKey, string, error) {
	plaintext, err := cryptox.GenerateAPIKey()
	if err != nil {
		return domain.APIKey{}, "", err
	}
	hash, err := cryptox.HashAPIKey(plaintext)
	if err != nil {
		return domain.APIKey{}, "", err
	}

	key := domain.APIKey{
		KeyHash:     hash,
		Scopes:      params.Scopes,
		Permissions: params.Permissions,
	}
	if params.ExpiresInDays > 0 {
		expiry := time.Now().UTC().AddDate(0, 0, params.ExpiresInDays)
		key.ExpiresAt = &expiry
	}

	created, err := s.Store.APIKeys().CreateAPIKey(ctx, key)
	if err != nil {
		return domain.APIKey{}, "", err
	}

	s.Audit.Record(ctx, actor, domain.AuditAPIKeyCreated, fmt.Sprintf("key id %d", created.ID))
	slogx.FromContext(ctx).Info("api key created",
		slog.Int64("key_id", created.ID),
		slog.String("actor", actor),
	)

	return created, plaintext, nil
}

// GetByID fetches a single key record.
func (s *APIKeyService) GetByID(ctx context.Context, id int64) (domain.APIKey, error) {
	return s.Store.APIKeys().GetAPIKeyByID(ctx, id)
}

// List returns key records newest-first along with the total count.
func (s *APIKeyService) List(ctx context.Context, offset, limit int) ([]domain.APIKey, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	keys, err := s.Store.APIKeys().ListAPIKeys(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Store.APIKeys().CountAPIKeys(ctx)
	if err != nil {
		return nil, 0, err
	}
	return keys, total, nil
}

// Revoke deletes a key. There is no soft delete: a revoked key is gone, and
// any outstanding JWTs minted from it simply age out.
func (s *APIKeyService) Revoke(ctx context.Context, actor string, id int64) error {
	if err := s.Store.APIKeys().DeleteAPIKey(ctx, id); err != nil {
		return err
	}

	s.Audit.Record(ctx, actor, domain.AuditAPIKeyRevoked, fmt.Sprintf("key id %d", id))
	slogx.FromContext(ctx).Info("api key revoked",
		slog.Int64("key_id", id),
		slog.String("actor", actor),
	)
	return nil
}

// FindByPlainKey resolves a presented plaintext key to its record by scanning
// every stored hash. Linear on the number of keys: bcrypt hashes embed their
// salt, so there is nothing to index on. Fine at the fleet sizes this serves.
//
// Returns ErrAPIKeyInvalid when no hash matches and ErrAPIKeyExpired when the
// matching key has passed its expiry.
func (s *APIKeyService) FindByPlainKey(ctx context.Context, plaintext string) (domain.APIKey, error) {
	if !cryptox.LooksLikeAPIKey(plaintext) {
		return domain.APIKey{}, ErrAPIKeyInvalid
	}

	keys, err := s.Store.APIKeys().ListAllAPIKeys(ctx)
	if err != nil {
		return domain.APIKey{}, err
	}

	now := time.Now().UTC()
	for _, key := range keys {
		if !cryptox.VerifyAPIKey(plaintext, key.KeyHash) {
			continue
		}
		if key.Expired(now) {
			return domain.APIKey{}, ErrAPIKeyExpired
		}
		return key, nil
	}

	return domain.APIKey{}, ErrAPIKeyInvalid
}

// Rotate replaces a key's secret: the old record is deleted and a new one
// created in the same transaction, so no interleaved request can observe both
// or neither. Scopes and permissions carry forward unless overridden, and an
// expiring key keeps its remaining lifetime, rounded down to whole days with
// a floor of one day.
func (s *APIKeyService) Rotate(ctx context.Context, actor string, id int64, override *CreateParams) (domain.APIKey, string, error) {
	plaintext, err := cryptox.GenerateAPIKey()
	if err != nil {
		return domain.APIKey{}, "", err
	}
	hash, err := cryptox.HashAPIKey(plaintext)
	if err != nil {
		return domain.APIKey{}, "", err
	}

	var rotated domain.APIKey
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		old, err := tx.APIKeys().GetAPIKeyByID(ctx, id)
		if err != nil {
			return err
		}

		next := domain.APIKey{
			KeyHash:     hash,
			Scopes:      old.Scopes,
			Permissions: old.Permissions,
			ExpiresAt:   carryForwardExpiry(old.ExpiresAt, time.Now().UTC()),
		}
		if override != nil {
			if override.Scopes != nil {
				next.Scopes = override.Scopes
			}
			if override.Permissions != nil {
				next.Permissions = override.Permissions
			}
			if override.ExpiresInDays > 0 {
				expiry := time.Now().UTC().AddDate(0, 0, override.ExpiresInDays)
				next.ExpiresAt = &expiry
			}
		}

		if err := tx.APIKeys().DeleteAPIKey(ctx, id); err != nil {
			return err
		}

		rotated, err = tx.APIKeys().CreateAPIKey(ctx, next)
		return err
	})
	if err != nil {
		return domain.APIKey{}, "", err
	}

	s.Audit.Record(ctx, actor, domain.AuditAPIKeyRotated,
		fmt.Sprintf("key id %d replaced by %d", id, rotated.ID))
	slogx.FromContext(ctx).Info("api key rotated",
		slog.Int64("old_key_id", id),
		slog.Int64("new_key_id", rotated.ID),
		slog.String("actor", actor),
	)

	return rotated, plaintext, nil
}

// IssueTokenPair authenticates a plaintext key and exchanges it for a JWT
// pair via the token service.
func (s *APIKeyService) IssueTokenPair(ctx context.Context, tokens *TokenService, plaintext string) (*domain.TokenPair, error) {
	key, err := s.FindByPlainKey(ctx, plaintext)
	if err != nil {
		return nil, err
	}
	return tokens.IssueAPIKeyPair(ctx, key)
}

// carryForwardExpiry maps an old expiry to the rotated key's expiry. A key
// with no expiry stays permanent; an expiring key keeps its remaining whole
// days, never less than one.
func carryForwardExpiry(old *time.Time, now time.Time) *time.Time {
	if old == nil {
		return nil
	}

	days := int(old.Sub(now).Hours() / 24)
	if days < 1 {
		days = 1
	}
	expiry := now.AddDate(0, 0, days)
	return &expiry
}
