package service

import (
	"context"
	"log/slog"

	"github.com/airlockhq/identity/internal/identity/domain"
	"github.com/airlockhq/identity/internal/identity/store"
	"github.com/airlockhq/identity/pkg/slogx"
)

// AuditService appends security events to the audit trail. Recording is best
// effort: a failed insert is logged and swallowed so it never turns a
// successful login into a 500.
type AuditService struct {
	Store store.Store
}

func (s *AuditService) Record(ctx context.Context, actor, action, detail string) {
	err := s.Store.AuditLogs().CreateAuditEntry(ctx, domain.AuditEntry{
		Actor:  actor,
		Action: action,
		Detail: detail,
	})
	if err != nil {
		slogx.FromContext(ctx).Error("audit entry not recorded",
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}

// List returns audit entries newest-first.
func (s *AuditService) List(ctx context.Context, offset, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Store.AuditLogs().ListAuditEntries(ctx, offset, limit)
}
