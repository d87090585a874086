package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/airlockhq/identity/internal/identity/domain"
)

type apiKeysRepo struct {
	db dbtx
}

// Timestamps are stored as unix seconds; scopes and permissions as
// space-delimited strings, same convention as role scopes elsewhere.

func (r *apiKeysRepo) CreateAPIKey(ctx context.Context, key domain.APIKey) (domain.APIKey, error) {
	createdAt := key.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (key_hash, scopes, permissions, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		key.KeyHash,
		strings.Join(key.Scopes, " "),
		strings.Join(key.Permissions, " "),
		createdAt.Unix(),
		unixOrNull(key.ExpiresAt),
	)
	if err != nil {
		return domain.APIKey{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.APIKey{}, err
	}

	key.ID = id
	key.CreatedAt = createdAt
	return key, nil
}

func (r *apiKeysRepo) GetAPIKeyByID(ctx context.Context, id int64) (domain.APIKey, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, key_hash, scopes, permissions, created_at, expires_at
		FROM api_keys WHERE id = ?`, id)
	return scanAPIKey(row)
}

func (r *apiKeysRepo) ListAPIKeys(ctx context.Context, offset, limit int) ([]domain.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, key_hash, scopes, permissions, created_at, expires_at
		FROM api_keys ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAPIKeys(rows)
}

func (r *apiKeysRepo) ListAllAPIKeys(ctx context.Context) ([]domain.APIKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, key_hash, scopes, permissions, created_at, expires_at
		FROM api_keys ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAPIKeys(rows)
}

func (r *apiKeysRepo) CountAPIKeys(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM api_keys`).Scan(&n)
	return n, err
}

func (r *apiKeysRepo) DeleteAPIKey(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return mapNotFound(sql.ErrNoRows)
	}
	return nil
}

func (r *apiKeysRepo) DeleteExpiredAPIKeys(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM api_keys WHERE expires_at IS NOT NULL AND expires_at < ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAPIKey(row rowScanner) (domain.APIKey, error) {
	var (
		key       domain.APIKey
		scopes    string
		perms     string
		createdAt int64
		expiresAt sql.NullInt64
	)

	if err := row.Scan(&key.ID, &key.KeyHash, &scopes, &perms, &createdAt, &expiresAt); err != nil {
		return domain.APIKey{}, mapNotFound(err)
	}

	key.Scopes = splitFields(scopes)
	key.Permissions = splitFields(perms)
	key.CreatedAt = time.Unix(createdAt, 0).UTC()
	if expiresAt.Valid {
		t := time.Unix(expiresAt.Int64, 0).UTC()
		key.ExpiresAt = &t
	}

	return key, nil
}

func collectAPIKeys(rows *sql.Rows) ([]domain.APIKey, error) {
	var keys []domain.APIKey
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// splitFields maps the stored space-delimited form back to a slice, with
// blank meaning none rather than [""].
func splitFields(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Fields(s)
}

func unixOrNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}
