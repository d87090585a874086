package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/airlockhq/identity/internal/identity/service"
	"github.com/airlockhq/identity/pkg/httpx"
	"github.com/airlockhq/identity/pkg/slogx"
)

// TokenHandler serves POST /v1/auth/token. Only the refresh_token grant is
// supported; interactive logins go through the upstream provider.
type TokenHandler struct {
	TokenService *service.TokenService
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request",
			"content type must be application/x-www-form-urlencoded")
		return
	}

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}

	if grant := r.Form.Get("grant_type"); grant != "refresh_token" {
		httpx.WriteError(w, http.StatusBadRequest, "unsupported_grant_type", "")
		return
	}

	refreshToken := strings.TrimSpace(r.Form.Get("refresh_token"))
	if refreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "missing refresh_token")
		return
	}

	ctx := r.Context()
	pair, err := h.TokenService.Refresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefresh) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "")
			return
		}
		slogx.FromContext(ctx).Error("refresh grant failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}
