package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/airlockhq/identity/internal/identity/service"
	"github.com/airlockhq/identity/pkg/httpx"
	"github.com/airlockhq/identity/pkg/slogx"
)

// AuditHandler serves GET /v1/audit: the admin view of recent security
// events.
type AuditHandler struct {
	AuditService *service.AuditService
}

type auditEntryResponse struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.AuditService.List(ctx, offset, limit)
	if err != nil {
		slogx.FromContext(ctx).Error("audit listing failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	resp := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, auditEntryResponse{
			ID:        e.ID,
			Actor:     e.Actor,
			Action:    e.Action,
			Detail:    e.Detail,
			CreatedAt: e.CreatedAt,
		})
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"entries": resp})
}
