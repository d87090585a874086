package httpx

import (
	"context"

	"github.com/airlockhq/identity/pkg/authx"
)

type ctxKey string

const ctxKeyPrincipal ctxKey = "principal"

// ContextWithPrincipal attaches the authenticated principal to ctx.
func ContextWithPrincipal(ctx context.Context, p authx.Principal) context.Context {
	return context.WithValue(ctx, ctxKeyPrincipal, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (authx.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(authx.Principal)
	return p, ok
}
