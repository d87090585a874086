package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/airlockhq/identity/pkg/httpx"
)

func TestAuthorizationURL(t *testing.T) {
	t.Parallel()

	client := NewOAuthClient(OAuthConfig{
		ClientID:     "airlock",
		AuthorizeURL: "https://idp.example.com/authorize",
		RedirectURI:  "https://identity.example.com/v1/auth/callback",
		Scopes:       []string{"openid", "profile"},
	})

	raw := client.AuthorizationURL("state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "airlock", q.Get("client_id"))
	require.Equal(t, "state-123", q.Get("state"))
	require.Equal(t, "openid profile", q.Get("scope"))
	require.Equal(t, "https://identity.example.com/v1/auth/callback", q.Get("redirect_uri"))
}

func TestExchangeCodeAndUserInfo(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "authorization_code", r.Form.Get("grant_type"))
		require.Equal(t, "code-abc", r.Form.Get("code"))
		require.Equal(t, "airlock", r.Form.Get("client_id"))

		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"access_token": "upstream-token",
			"token_type":   "Bearer",
			"scope":        "openid profile",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer upstream-token", r.Header.Get("Authorization"))

		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"sub":                "user-1",
			"preferred_username": "alice",
			"email":              "alice@example.com",
			"roles":              []string{"reviewer"},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client := NewOAuthClient(OAuthConfig{
		ClientID:    "airlock",
		TokenURL:    srv.URL + "/token",
		UserInfoURL: srv.URL + "/userinfo",
		RedirectURI: "http://localhost/callback",
	})

	token, scope, err := client.ExchangeCode(context.Background(), "code-abc")
	require.NoError(t, err)
	require.Equal(t, "upstream-token", token)
	require.Equal(t, "openid profile", scope)

	user, err := client.UserInfo(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "user-1", user.Subject)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, []string{"reviewer"}, user.Roles)
}

func TestExchangeCodeUpstreamRejection(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "code already used")
	}))
	t.Cleanup(srv.Close)

	client := NewOAuthClient(OAuthConfig{TokenURL: srv.URL, RedirectURI: "http://localhost/cb"})

	_, _, err := client.ExchangeCode(context.Background(), "stale-code")
	require.ErrorIs(t, err, ErrUpstreamDenied)
}

func TestUserInfoMissingSubject(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"preferred_username": "ghost"})
	}))
	t.Cleanup(srv.Close)

	client := NewOAuthClient(OAuthConfig{UserInfoURL: srv.URL})

	_, err := client.UserInfo(context.Background(), "tok")
	require.ErrorIs(t, err, ErrUpstreamDenied)
}

func TestUserInfoUsernameDefaultsToSubject(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"sub": "user-9"})
	}))
	t.Cleanup(srv.Close)

	client := NewOAuthClient(OAuthConfig{UserInfoURL: srv.URL})

	user, err := client.UserInfo(context.Background(), "tok")
	require.NoError(t, err)
	require.Equal(t, "user-9", user.Username)
	require.Empty(t, user.Roles)
}
