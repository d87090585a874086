package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/airlockhq/identity/internal/identity/service"
	"github.com/airlockhq/identity/pkg/httpx"
	"github.com/airlockhq/identity/pkg/slogx"
)

// APIKeyHeader carries the plaintext key on the exchange endpoint.
const APIKeyHeader = "X-API-Key"

// APIKeyTokenHandler serves POST /v1/apikeys/token: trade a plaintext API key
// for a JWT pair. This is the only endpoint that ever sees key plaintext.
type APIKeyTokenHandler struct {
	APIKeyService *service.APIKeyService
	TokenService  *service.TokenService
}

func (h *APIKeyTokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	plaintext := strings.TrimSpace(r.Header.Get(APIKeyHeader))
	if plaintext == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_request", "missing API key")
		return
	}

	pair, err := h.APIKeyService.IssueTokenPair(ctx, h.TokenService, plaintext)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAPIKeyExpired):
			log.Warn("rejected expired api key")
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_api_key", "API key has expired")
		case errors.Is(err, service.ErrAPIKeyInvalid):
			log.Warn("rejected unknown api key")
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_api_key", "invalid API key")
		default:
			log.Error("api key exchange failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, newTokenResponse(pair))
}
