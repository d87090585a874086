package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTL constants. Short access tokens, longer refresh tokens.
// Services can override these per-codec.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token type values carried in the "type" claim. Decode does not enforce
// these; the caller decides which type an endpoint accepts.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// AuthTypeAPIKey marks tokens minted from an API key rather than an
// interactive login.
const AuthTypeAPIKey = "api_key"

// Claims is the wire claim set shared by every service that holds the signing
// secret. Field names are load-bearing: any rename breaks cross-service
// verification, so changes must stay additive.
type Claims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
	Issuer    string `json:"iss"`
	TokenType string `json:"type"`

	/* User token fields */

	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`

	// Scope is the legacy free-text OAuth2 scope passed through from the
	// upstream provider.
	Scope string `json:"scope,omitempty"`

	/* API key token fields */

	APIKeyID    int64    `json:"api_key_id,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	AuthType    string   `json:"auth_type,omitempty"`

	// JTI is set on refresh tokens for rotation tracking. Nothing consumes
	// it yet; a revocation denylist keyed by jti would plug in here.
	JTI string `json:"jti,omitempty"`
}

// NewUserAccessClaims builds access claims for an interactive user.
func NewUserAccessClaims(
	issuer, subject, username string,
	roles []string,
	scope string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
		Issuer:    issuer,
		TokenType: TokenTypeAccess,
		Username:  username,
		Roles:     roles,
		Scope:     scope,
	}
}

// NewUserRefreshClaims builds refresh claims for an interactive user. A fresh
// jti is attached for later rotation tracking.
func NewUserRefreshClaims(
	issuer, subject, username string,
	roles []string,
	scope string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		Subject:   subject,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
		Issuer:    issuer,
		TokenType: TokenTypeRefresh,
		Username:  username,
		Roles:     roles,
		Scope:     scope,
		JTI:       NewJTI(),
	}
}

// NewAPIKeyAccessClaims builds access claims for an API key. The subject is
// derived from the key id so logs and audit rows stay traceable.
func NewAPIKeyAccessClaims(
	issuer string,
	keyID int64,
	scopes, permissions []string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		Subject:     APIKeySubject(keyID),
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(ttl).Unix(),
		Issuer:      issuer,
		TokenType:   TokenTypeAccess,
		APIKeyID:    keyID,
		Scopes:      scopes,
		Permissions: permissions,
		AuthType:    AuthTypeAPIKey,
	}
}

// NewAPIKeyRefreshClaims builds refresh claims for an API key. API keys can
// always re-authenticate with the key itself, so no jti is attached.
func NewAPIKeyRefreshClaims(
	issuer string,
	keyID int64,
	scopes, permissions []string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		Subject:     APIKeySubject(keyID),
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(ttl).Unix(),
		Issuer:      issuer,
		TokenType:   TokenTypeRefresh,
		APIKeyID:    keyID,
		Scopes:      scopes,
		Permissions: permissions,
		AuthType:    AuthTypeAPIKey,
	}
}

const jtiEntropyBytes = 32

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [jtiEntropyBytes]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiryAt rejects tokens at or past their expiry. No leeway: a token
// presented at exactly exp is already expired.
func (c *Claims) ValidateExpiryAt(now time.Time) error {
	if c.ExpiresAt == 0 {
		return ErrMalformed
	}

	if !now.Before(time.Unix(c.ExpiresAt, 0)) {
		return ErrExpired
	}

	return nil
}

/* jwt.Claims interface so golang-jwt can sign and parse this struct */

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c Claims) GetIssuer() (string, error)              { return c.Issuer, nil }
func (c Claims) GetSubject() (string, error)             { return c.Subject, nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }
