package http

import (
	"net/http"

	"github.com/airlockhq/identity/internal/identity/service"
	"github.com/airlockhq/identity/pkg/httpx"
	"github.com/airlockhq/identity/pkg/idx"
)

// LoginHandler serves GET /v1/auth/login. It hands the frontend the upstream
// authorization URL together with a fresh state value. The service keeps no
// session, so the frontend holds the state and checks it on callback.
type LoginHandler struct {
	OAuthClient *service.OAuthClient
}

type loginResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	state := idx.New().String()

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		AuthorizationURL: h.OAuthClient.AuthorizationURL(state),
		State:            state,
	})
}
