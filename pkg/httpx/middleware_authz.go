package httpx

import (
	"net/http"
	"strings"

	"github.com/airlockhq/identity/pkg/authx"
)

// RequireRole gates a handler on a single role. Must run after
// AuthnMiddleware; a missing principal is a 401, not a 403.
func RequireRole(role string) Middleware {
	return requireMiddleware(func(p authx.Principal) error {
		return authx.RequireRole(p, role)
	})
}

// RequireAnyRole gates a handler on holding at least one of roles.
func RequireAnyRole(roles ...string) Middleware {
	return requireMiddleware(func(p authx.Principal) error {
		return authx.RequireAnyRole(p, roles...)
	})
}

// RequireAllRoles gates a handler on holding every listed role.
func RequireAllRoles(roles ...string) Middleware {
	return requireMiddleware(func(p authx.Principal) error {
		return authx.RequireAllRoles(p, roles...)
	})
}

func requireMiddleware(check func(authx.Principal) error) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				writeBearerError(w)
				return
			}

			if err := check(principal); err != nil {
				writeRoleError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Authorization failures may name the roles involved: the caller's identity
// is already established, so there is no oracle to protect.
func writeRoleError(w http.ResponseWriter, err error) {
	if roleErr, ok := err.(*authx.InsufficientRoleError); ok {
		w.Header().Set("WWW-Authenticate",
			`Bearer error="insufficient_role", roles="`+strings.Join(roleErr.Missing, " ")+`"`)
	}
	WriteError(w, http.StatusForbidden, "insufficient_role", err.Error())
}
