package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/airlockhq/identity/internal/identity/service"
	"github.com/airlockhq/identity/internal/identity/store"
	"github.com/airlockhq/identity/pkg/authx"
	"github.com/airlockhq/identity/pkg/httpx"
	"github.com/airlockhq/identity/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	gate         *authx.Gate
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// FrontendCallbackURL is where the login callback redirects with the
	// freshly minted token pair.
	FrontendCallbackURL string

	TokenService  *service.TokenService
	APIKeyService *service.APIKeyService
	AuditService  *service.AuditService
	OAuthClient   *service.OAuthClient
}

func NewRouter(
	gate *authx.Gate,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		gate:         gate,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAPIKeys()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	loginHandler := &LoginHandler{OAuthClient: r.OAuthClient}
	r.Mux.Handle("GET /v1/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	callbackHandler := &CallbackHandler{
		OAuthClient:         r.OAuthClient,
		TokenService:        r.TokenService,
		FrontendCallbackURL: r.FrontendCallbackURL,
	}
	r.Mux.Handle("GET /v1/auth/callback",
		httpx.Chain(callbackHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// Refresh grant. Strict by IP: refresh tokens are long-lived credentials
	// and this endpoint is a brute-force target.
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /v1/auth/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	meHandler := &MeHandler{}
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(meHandler,
			httpx.AuthnMiddleware(r.gate),
			httpx.RateLimitByPrincipal(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAPIKeys() {
	// Key-for-token exchange authenticates with the key itself, not a JWT.
	exchangeHandler := &APIKeyTokenHandler{
		APIKeyService: r.APIKeyService,
		TokenService:  r.TokenService,
	}
	r.Mux.Handle("POST /v1/apikeys/token",
		httpx.Chain(exchangeHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	admin := func(h http.Handler) http.Handler {
		return httpx.Chain(h,
			httpx.AuthnMiddleware(r.gate),
			httpx.RequireRole(authx.RoleAdmin),
			httpx.RateLimitByPrincipal(httpx.ModerateLimit),
		)
	}

	h := &APIKeyAdminHandler{APIKeyService: r.APIKeyService}
	r.Mux.Handle("POST /v1/apikeys", admin(http.HandlerFunc(h.Create)))
	r.Mux.Handle("GET /v1/apikeys", admin(http.HandlerFunc(h.List)))
	r.Mux.Handle("GET /v1/apikeys/{id}", admin(http.HandlerFunc(h.Get)))
	r.Mux.Handle("DELETE /v1/apikeys/{id}", admin(http.HandlerFunc(h.Delete)))
	r.Mux.Handle("POST /v1/apikeys/{id}/rotate", admin(http.HandlerFunc(h.Rotate)))

	auditHandler := &AuditHandler{AuditService: r.AuditService}
	r.Mux.Handle("GET /v1/audit", admin(auditHandler))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
