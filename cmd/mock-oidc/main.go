// mock-oidc is a tiny upstream OAuth2/OIDC provider for local development.
// It serves /authorize, /token and /userinfo against a static user set so the
// identity service can run a full login flow without a real provider.
package main

import (
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/airlockhq/identity/pkg/httpx"
	"github.com/airlockhq/identity/pkg/idx"
	"github.com/airlockhq/identity/pkg/slogx"
)

type mockUser struct {
	Sub      string   `json:"sub"`
	Username string   `json:"preferred_username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

var users = map[string]mockUser{
	"alice": {Sub: "mock-alice", Username: "alice", Email: "alice@example.com", Roles: []string{"submitter"}},
	"bob":   {Sub: "mock-bob", Username: "bob", Email: "bob@example.com", Roles: []string{"reviewer"}},
	"root":  {Sub: "mock-root", Username: "root", Email: "root@example.com", Roles: []string{"admin"}},
	// No roles at all: exercises the default-role policy downstream.
	"carol": {Sub: "mock-carol", Username: "carol", Email: "carol@example.com"},
}

type grant struct {
	user    mockUser
	expires time.Time
}

// provider keeps issued codes and tokens in memory. Restarting it invalidates
// everything, which is exactly right for a dev tool.
type provider struct {
	mu     sync.Mutex
	codes  map[string]grant
	tokens map[string]mockUser
}

func newProvider() *provider {
	return &provider{
		codes:  make(map[string]grant),
		tokens: make(map[string]mockUser),
	}
}

// handleAuthorize skips the login form: pick the user with ?user=, defaulting
// to alice, and bounce straight back with a code.
func (p *provider) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	redirectURI := q.Get("redirect_uri")
	if redirectURI == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "missing redirect_uri")
		return
	}

	username := q.Get("user")
	if username == "" {
		username = "alice"
	}
	user, ok := users[username]
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "access_denied", "unknown mock user")
		return
	}

	code := idx.New().String()
	p.mu.Lock()
	p.codes[code] = grant{user: user, expires: time.Now().Add(5 * time.Minute)}
	p.mu.Unlock()

	target, err := url.Parse(redirectURI)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "bad redirect_uri")
		return
	}
	dest := target.Query()
	dest.Set("code", code)
	if state := q.Get("state"); state != "" {
		dest.Set("state", state)
	}
	target.RawQuery = dest.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (p *provider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
		return
	}
	if r.Form.Get("grant_type") != "authorization_code" {
		httpx.WriteError(w, http.StatusBadRequest, "unsupported_grant_type", "")
		return
	}

	code := r.Form.Get("code")
	p.mu.Lock()
	g, ok := p.codes[code]
	delete(p.codes, code)
	var token string
	if ok && time.Now().Before(g.expires) {
		token = "mock_" + idx.New().String()
		p.tokens[token] = g.user
	}
	p.mu.Unlock()

	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_grant", "code unknown or expired")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   3600,
		"scope":        "openid profile email",
	})
}

func (p *provider) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	raw = strings.TrimSpace(raw)

	p.mu.Lock()
	user, ok := p.tokens[raw]
	p.mu.Unlock()

	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, user)
}

func main() {
	_ = godotenv.Load()

	logger := slogx.New(slogx.Config{
		Service: "mock-oidc",
		Version: "dev",
		Env:     "dev",
		Level:   "debug",
		Format:  "text",
	})

	p := newProvider()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /authorize", p.handleAuthorize)
	mux.HandleFunc("POST /token", p.handleToken)
	mux.HandleFunc("GET /userinfo", p.handleUserInfo)

	addr := ":9090"
	if port := os.Getenv("MOCK_OIDC_PORT"); port != "" {
		addr = ":" + port
	}

	logger.Info("mock oidc provider listening", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           slogx.HTTPMiddleware(logger)(mux),
		ReadHeaderTimeout: 3 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("mock oidc provider failed: %v", err)
	}
}
