package http

import (
	"net/http"

	"github.com/airlockhq/identity/pkg/httpx"
)

// MeHandler serves GET /v1/me: an authenticated echo of the caller's
// principal, handy for frontends and for debugging tokens.
type MeHandler struct{}

type meResponse struct {
	Subject     string   `json:"sub"`
	Kind        string   `json:"kind"`
	Username    string   `json:"username,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	Scope       string   `json:"scope,omitempty"`
	APIKeyID    int64    `json:"api_key_id,omitempty"`
}

func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		// Unreachable behind AuthnMiddleware; kept for direct use in tests.
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, meResponse{
		Subject:     p.Subject,
		Kind:        string(p.Kind),
		Username:    p.Username,
		Roles:       p.Roles,
		Scopes:      p.Scopes,
		Permissions: p.Permissions,
		Scope:       p.Scope,
		APIKeyID:    p.APIKeyID,
	})
}
