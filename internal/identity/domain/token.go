package domain

import "time"

// TokenPair is what the token endpoints return: a short-lived access token
// plus a refresh token, both JWTs signed with the shared secret.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string        // always "Bearer"
	ExpiresIn    time.Duration // access token lifetime
	Scope        string        // legacy space-delimited scope, when present
}

// UserInfo is what the upstream OAuth2/OIDC provider tells us about a user
// after the authorization-code exchange. Roles may be absent entirely; the
// gate applies the default-role policy downstream.
type UserInfo struct {
	Subject  string
	Username string
	Email    string
	Roles    []string
}
