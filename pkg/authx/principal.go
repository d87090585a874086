// Package authx turns verified token claims into principals and authorizes
// them against role requirements. It is transport-agnostic: the HTTP layer
// maps its failures onto status codes.
package authx

import (
	"slices"

	"github.com/airlockhq/identity/pkg/jwtx"
)

// Kind distinguishes interactive users from API-key callers.
type Kind string

const (
	KindUser   Kind = "user"
	KindAPIKey Kind = "api_key"
)

// Principal is the authenticated identity for the duration of one request.
// It is built fresh per request and never persisted. Exactly one of Roles or
// Scopes+Permissions is populated, depending on Kind.
type Principal struct {
	Subject  string
	Kind     Kind
	Username string

	// User principals only.
	Roles []string

	// API-key principals only.
	APIKeyID    int64
	Scopes      []string
	Permissions []string

	// Legacy free-text OAuth2 scope, if the upstream provider supplied one.
	Scope string
}

// IsAPIKey reports whether this principal authenticated with an API key.
func (p Principal) IsAPIKey() bool { return p.Kind == KindAPIKey }

// HasRole reports exact-string role membership. No hierarchy: "admin" is only
// special inside the Require* checks.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// principalFromClaims maps validated access claims onto a Principal,
// applying the default-role policy for roleless users.
func principalFromClaims(claims jwtx.Claims) Principal {
	username := claims.Username
	if username == "" {
		username = claims.Subject
	}

	if claims.AuthType == jwtx.AuthTypeAPIKey {
		return Principal{
			Subject:     claims.Subject,
			Kind:        KindAPIKey,
			Username:    username,
			APIKeyID:    claims.APIKeyID,
			Scopes:      claims.Scopes,
			Permissions: claims.Permissions,
		}
	}

	roles := claims.Roles
	if len(roles) == 0 {
		// Authenticated-but-roleless users get the lowest-privilege role
		// rather than zero roles. Deliberate usability default carried over
		// from the upstream provisioning flow.
		roles = []string{RoleSubmitter}
	}

	return Principal{
		Subject:  claims.Subject,
		Kind:     KindUser,
		Username: username,
		Roles:    roles,
		Scope:    claims.Scope,
	}
}
