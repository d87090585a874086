package http

import (
	"time"

	"github.com/airlockhq/identity/internal/identity/domain"
)

// TokenResponse is the standard OAuth2-shaped token payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope,omitempty"`
}

func newTokenResponse(pair *domain.TokenPair) TokenResponse {
	return TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
		Scope:        pair.Scope,
	}
}

// APIKeyResponse is the admin view of a key record. The hash never leaves the
// service; the plaintext appears only in CreatedAPIKeyResponse.
type APIKeyResponse struct {
	ID          int64      `json:"id"`
	Scopes      []string   `json:"scopes"`
	Permissions []string   `json:"permissions"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

func newAPIKeyResponse(key domain.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:          key.ID,
		Scopes:      orEmpty(key.Scopes),
		Permissions: orEmpty(key.Permissions),
		CreatedAt:   key.CreatedAt,
		ExpiresAt:   key.ExpiresAt,
	}
}

// CreatedAPIKeyResponse carries the plaintext secret exactly once, at
// creation or rotation. It is not stored and cannot be shown again.
type CreatedAPIKeyResponse struct {
	APIKeyResponse
	APIKey string `json:"api_key"`
}

// APIKeyListResponse pages through key records.
type APIKeyListResponse struct {
	Keys   []APIKeyResponse `json:"keys"`
	Total  int              `json:"total"`
	Offset int              `json:"offset"`
	Limit  int              `json:"limit"`
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
