package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/airlockhq/identity/internal/identity/service"
	"github.com/airlockhq/identity/pkg/httpx"
	"github.com/airlockhq/identity/pkg/slogx"
)

// CallbackHandler serves GET /v1/auth/callback: the upstream provider
// redirects here with an authorization code, which gets exchanged for the
// upstream profile and traded for a local token pair. The browser is then
// bounced to the frontend with the pair in the query string.
type CallbackHandler struct {
	OAuthClient         *service.OAuthClient
	TokenService        *service.TokenService
	FrontendCallbackURL string
}

func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		if upstreamErr := r.URL.Query().Get("error"); upstreamErr != "" {
			httpx.WriteError(w, http.StatusBadRequest, upstreamErr,
				r.URL.Query().Get("error_description"))
			return
		}
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "missing code")
		return
	}

	upstreamToken, scope, err := h.OAuthClient.ExchangeCode(ctx, code)
	if err != nil {
		log.Warn("authorization code exchange failed", "err", err)
		httpx.WriteError(w, http.StatusBadGateway, "upstream_error",
			"could not complete login with the identity provider")
		return
	}

	user, err := h.OAuthClient.UserInfo(ctx, upstreamToken)
	if err != nil {
		log.Warn("userinfo fetch failed", "err", err)
		httpx.WriteError(w, http.StatusBadGateway, "upstream_error",
			"could not complete login with the identity provider")
		return
	}

	pair, err := h.TokenService.IssueUserPair(ctx, user, scope)
	if err != nil {
		log.Error("token pair issuance failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	redirect, err := url.Parse(h.FrontendCallbackURL)
	if err != nil {
		log.Error("frontend callback url is invalid", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	q := redirect.Query()
	q.Set("access_token", pair.AccessToken)
	q.Set("refresh_token", pair.RefreshToken)
	if state := r.URL.Query().Get("state"); state != "" {
		q.Set("state", state)
	}
	redirect.RawQuery = q.Encode()

	httpx.NoCache(w)
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}
