package httpx

import (
	"net/http"
	"strings"

	"github.com/airlockhq/identity/pkg/authx"
	"github.com/airlockhq/identity/pkg/slogx"
)

// BearerToken extracts the raw token from an Authorization header, or "" when
// absent or not a bearer credential.
func BearerToken(r *http.Request) string {
	authz := r.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}

// AuthnMiddleware authenticates the bearer token and injects the resulting
// principal into the request context. Every authentication failure surfaces
// as the same generic 401 so callers cannot distinguish expired from forged;
// the precise failure kind is still logged.
func AuthnMiddleware(gate *authx.Gate) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			principal, err := gate.Authenticate(BearerToken(r))
			if err != nil {
				log.Warn("authentication failed", "err", err)
				writeBearerError(w)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthnMiddleware attaches a principal when a valid credential is
// present and passes the request through anonymously otherwise. Handlers
// behind it use PrincipalFromContext to branch.
func OptionalAuthnMiddleware(gate *authx.Gate) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, ok := gate.AuthenticateOptional(BearerToken(r)); ok {
				r = r.WithContext(ContextWithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750-style challenge for bearer auth. The description is deliberately
// generic to avoid an expired-vs-forged oracle.
func writeBearerError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="invalid or expired token"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", "invalid or expired token")
}
