package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/airlockhq/identity/internal/identity/domain"
	"github.com/airlockhq/identity/internal/identity/service"
	"github.com/airlockhq/identity/internal/identity/store"
	"github.com/airlockhq/identity/internal/identity/store/drivers/sqlite"
	"github.com/airlockhq/identity/pkg/authx"
	"github.com/airlockhq/identity/pkg/cryptox"
	"github.com/airlockhq/identity/pkg/jwtx"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testEnv struct {
	router *Router
	codec  *jwtx.Codec
	store  store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "identity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := jwtx.NewCodec([]byte(testSecret), "airlock-identity")
	require.NoError(t, err)

	audit := &service.AuditService{Store: st}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := NewRouter(authx.NewGate(codec), "test", st, logger)
	r.FrontendCallbackURL = "http://frontend.local/auth/complete"
	r.TokenService = &service.TokenService{Codec: codec, Audit: audit}
	r.APIKeyService = &service.APIKeyService{Store: st, Audit: audit}
	r.AuditService = audit
	r.ApplyRoutes()

	return &testEnv{router: r, codec: codec, store: st}
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()

	token, err := e.codec.IssueUserAccess("admin-1", "root", []string{authx.RoleAdmin}, "")
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, target, bearer string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/livez", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody[HealthResponse](t, rec).Status)

	rec = env.do(t, http.MethodGet, "/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[HealthResponse](t, rec)
	require.Equal(t, "ok", body.Status)
	require.Equal(t, "ok", body.Checks.Database)
}

func TestMeEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	t.Run("no token", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/me", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := env.codec.IssueUserAccess("user-1", "alice", []string{"reviewer"}, "")
		require.NoError(t, err)

		rec := env.do(t, http.MethodGet, "/v1/me", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		me := decodeBody[meResponse](t, rec)
		require.Equal(t, "user-1", me.Subject)
		require.Equal(t, "user", me.Kind)
		require.Equal(t, []string{"reviewer"}, me.Roles)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		token, err := env.codec.IssueUserRefresh("user-1", "alice", nil, "")
		require.NoError(t, err)

		rec := env.do(t, http.MethodGet, "/v1/me", token, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid or expired token")
	})
}

func TestAPIKeyAdminRequiresAdminRole(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	token, err := env.codec.IssueUserAccess("user-1", "alice", []string{"reviewer"}, "")
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/v1/apikeys", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "admin")
}

func TestAPIKeyLifecycleOverHTTP(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.adminToken(t)

	rec := env.do(t, http.MethodPost, "/v1/apikeys", admin,
		strings.NewReader(`{"scopes":["read"],"permissions":["packages:submit"],"expires_in_days":30}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	created := decodeBody[CreatedAPIKeyResponse](t, rec)
	require.True(t, strings.HasPrefix(created.APIKey, "ak_"))
	require.NotZero(t, created.ID)
	require.NotNil(t, created.ExpiresAt)

	t.Run("list shows the key without plaintext", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/apikeys", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		list := decodeBody[APIKeyListResponse](t, rec)
		require.Equal(t, 1, list.Total)
		require.NotContains(t, rec.Body.String(), created.APIKey)
	})

	t.Run("exchange plaintext for token pair", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/apikeys/token", nil)
		req.Header.Set(APIKeyHeader, created.APIKey)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		pair := decodeBody[TokenResponse](t, rec)

		claims, err := env.codec.Decode(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, jwtx.AuthTypeAPIKey, claims.AuthType)
		require.Equal(t, created.ID, claims.APIKeyID)

		t.Run("access token works on /v1/me", func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/v1/me", pair.AccessToken, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			me := decodeBody[meResponse](t, rec)
			require.Equal(t, "api_key", me.Kind)
			require.Equal(t, []string{"read"}, me.Scopes)
		})
	})

	t.Run("rotate returns a fresh plaintext", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/apikeys/"+itoa(created.ID)+"/rotate", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rotated := decodeBody[CreatedAPIKeyResponse](t, rec)
		require.NotEqual(t, created.ID, rotated.ID)
		require.NotEqual(t, created.APIKey, rotated.APIKey)
		require.Equal(t, []string{"read"}, rotated.Scopes)

		t.Run("old key id is gone", func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/v1/apikeys/"+itoa(created.ID), admin, nil)
			require.Equal(t, http.StatusNotFound, rec.Code)
		})

		t.Run("revoke the rotated key", func(t *testing.T) {
			rec := env.do(t, http.MethodDelete, "/v1/apikeys/"+itoa(rotated.ID), admin, nil)
			require.Equal(t, http.StatusNoContent, rec.Code)
		})
	})

	t.Run("audit trail records the lifecycle", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/audit", admin, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "apikey.created")
		require.Contains(t, rec.Body.String(), "apikey.rotated")
		require.Contains(t, rec.Body.String(), "apikey.revoked")
	})
}

func TestAPIKeyExchangeFailures(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	t.Run("missing header", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/apikeys/token", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/apikeys/token", nil)
		req.Header.Set(APIKeyHeader, "ak_"+strings.Repeat("0", 64))
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid API key")
	})

	t.Run("expired key", func(t *testing.T) {
		plaintext, err := cryptox.GenerateAPIKey()
		require.NoError(t, err)
		hash, err := cryptox.HashAPIKey(plaintext)
		require.NoError(t, err)

		past := time.Now().UTC().Add(-48 * time.Hour)
		_, err = env.store.APIKeys().CreateAPIKey(context.Background(), domain.APIKey{
			KeyHash:   hash,
			ExpiresAt: &past,
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/v1/apikeys/token", nil)
		req.Header.Set(APIKeyHeader, plaintext)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "API key has expired")
	})
}

func TestRefreshGrantOverHTTP(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	refresh, err := env.codec.IssueUserRefresh("user-1", "alice", []string{"submitter"}, "")
	require.NoError(t, err)

	form := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("valid refresh", func(t *testing.T) {
		rec := form("grant_type=refresh_token&refresh_token=" + refresh)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		pair := decodeBody[TokenResponse](t, rec)
		claims, err := env.codec.Decode(pair.AccessToken)
		require.NoError(t, err)
		require.Equal(t, "user-1", claims.Subject)
		require.Equal(t, []string{"submitter"}, claims.Roles)
	})

	t.Run("unsupported grant type", func(t *testing.T) {
		rec := form("grant_type=password&username=x&password=y")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "unsupported_grant_type")
	})

	t.Run("garbage refresh token", func(t *testing.T) {
		rec := form("grant_type=refresh_token&refresh_token=garbage")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid_grant")
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.router.OAuthClient = service.NewOAuthClient(service.OAuthConfig{
		ClientID:     "airlock",
		AuthorizeURL: "https://idp.example.com/authorize",
		RedirectURI:  "http://identity.local/v1/auth/callback",
		Scopes:       []string{"openid"},
	})
	// Re-register so the login handler picks up the client.
	env.router.Mux = http.NewServeMux()
	env.router.ApplyRoutes()

	rec := env.do(t, http.MethodGet, "/v1/auth/login", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[loginResponse](t, rec)
	require.NotEmpty(t, resp.State)
	require.Contains(t, resp.AuthorizationURL, "https://idp.example.com/authorize?")
	require.Contains(t, resp.AuthorizationURL, "state="+resp.State)
}

func TestCallbackEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"up-tok","token_type":"Bearer","scope":"openid"}`))
		case "/userinfo":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"sub":"user-1","preferred_username":"alice","roles":["reviewer"]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	env.router.OAuthClient = service.NewOAuthClient(service.OAuthConfig{
		ClientID:    "airlock",
		TokenURL:    upstream.URL + "/token",
		UserInfoURL: upstream.URL + "/userinfo",
		RedirectURI: "http://identity.local/v1/auth/callback",
	})
	// Re-register so the callback handler picks up the client.
	env.router.Mux = http.NewServeMux()
	env.router.ApplyRoutes()

	t.Run("successful login redirects with tokens", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/auth/callback?code=abc&state=xyz", "", nil)
		require.Equal(t, http.StatusFound, rec.Code)

		loc := rec.Header().Get("Location")
		require.Contains(t, loc, "http://frontend.local/auth/complete?")
		require.Contains(t, loc, "access_token=")
		require.Contains(t, loc, "refresh_token=")
		require.Contains(t, loc, "state=xyz")
	})

	t.Run("missing code", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/auth/callback", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upstream error passthrough", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/auth/callback?error=access_denied", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Contains(t, rec.Body.String(), "access_denied")
	})
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
