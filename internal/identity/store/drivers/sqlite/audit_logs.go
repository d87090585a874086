package sqlite

import (
	"context"
	"time"

	"github.com/airlockhq/identity/internal/identity/domain"
	"github.com/airlockhq/identity/pkg/idx"
)

type auditLogsRepo struct {
	db dbtx
}

func (r *auditLogsRepo) CreateAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = idx.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor, action, detail, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Actor, entry.Action, entry.Detail, entry.CreatedAt.Unix(),
	)
	return err
}

func (r *auditLogsRepo) ListAuditEntries(ctx context.Context, offset, limit int) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor, action, detail, created_at
		FROM audit_logs ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			entry     domain.AuditEntry
			createdAt int64
		)
		if err := rows.Scan(&entry.ID, &entry.Actor, &entry.Action, &entry.Detail, &createdAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *auditLogsRepo) DeleteAuditEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
