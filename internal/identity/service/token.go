package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/airlockhq/identity/internal/identity/domain"
	"github.com/airlockhq/identity/pkg/jwtx"
	"github.com/airlockhq/identity/pkg/slogx"
)

var (
	ErrInvalidRefresh = errors.New("invalid_refresh_token")
	ErrInvalidGrant   = errors.New("invalid_grant")
)

// TokenService mints and refreshes JWT pairs for users and API keys. The
// codec owns the secret and the claim shapes; this layer owns which pair gets
// minted when, and leaves an audit trail.
type TokenService struct {
	Codec *jwtx.Codec
	Audit *AuditService
}

// IssueUserPair mints an access/refresh pair for an interactive user straight
// after the upstream login completed.
func (s *TokenService) IssueUserPair(ctx context.Context, user domain.UserInfo, scope string) (*domain.TokenPair, error) {
	access, err := s.Codec.IssueUserAccess(user.Subject, user.Username, user.Roles, scope)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Codec.IssueUserRefresh(user.Subject, user.Username, user.Roles, scope)
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, user.Subject, domain.AuditTokenIssued, "interactive login")
	slogx.FromContext(ctx).Info("token pair issued", slog.String("sub", user.Subject))

	return s.pair(access, refresh, scope), nil
}

// IssueAPIKeyPair mints an access/refresh pair for a verified API key.
func (s *TokenService) IssueAPIKeyPair(ctx context.Context, key domain.APIKey) (*domain.TokenPair, error) {
	access, err := s.Codec.IssueAPIKeyAccess(key.ID, key.Scopes, key.Permissions)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Codec.IssueAPIKeyRefresh(key.ID, key.Scopes, key.Permissions)
	if err != nil {
		return nil, err
	}

	actor := jwtx.APIKeySubject(key.ID)
	s.Audit.Record(ctx, actor, domain.AuditAPIKeyAuth, "key exchanged for token pair")
	slogx.FromContext(ctx).Info("token pair issued", slog.String("sub", actor))

	return s.pair(access, refresh, ""), nil
}

// Refresh redeems a refresh token for a fresh pair. The presented token must
// verify, must carry type "refresh", and its identity claims are carried
// forward unchanged.
func (s *TokenService) Refresh(ctx context.Context, rawRefresh string) (*domain.TokenPair, error) {
	claims, err := s.Codec.Decode(rawRefresh)
	if err != nil {
		return nil, ErrInvalidRefresh
	}
	if claims.TokenType != jwtx.TokenTypeRefresh {
		return nil, ErrInvalidRefresh
	}
	if claims.Subject == "" {
		return nil, ErrInvalidRefresh
	}

	var pair *domain.TokenPair
	if claims.AuthType == jwtx.AuthTypeAPIKey {
		pair, err = s.refreshAPIKeyPair(claims)
	} else {
		pair, err = s.refreshUserPair(claims)
	}
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, claims.Subject, domain.AuditTokenRefreshed, "")
	slogx.FromContext(ctx).Info("token pair refreshed", slog.String("sub", claims.Subject))
	return pair, nil
}

func (s *TokenService) refreshUserPair(claims jwtx.Claims) (*domain.TokenPair, error) {
	access, err := s.Codec.IssueUserAccess(claims.Subject, claims.Username, claims.Roles, claims.Scope)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Codec.IssueUserRefresh(claims.Subject, claims.Username, claims.Roles, claims.Scope)
	if err != nil {
		return nil, err
	}
	return s.pair(access, refresh, claims.Scope), nil
}

func (s *TokenService) refreshAPIKeyPair(claims jwtx.Claims) (*domain.TokenPair, error) {
	access, err := s.Codec.IssueAPIKeyAccess(claims.APIKeyID, claims.Scopes, claims.Permissions)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Codec.IssueAPIKeyRefresh(claims.APIKeyID, claims.Scopes, claims.Permissions)
	if err != nil {
		return nil, err
	}
	return s.pair(access, refresh, ""), nil
}

func (s *TokenService) pair(access, refresh, scope string) *domain.TokenPair {
	ttl := s.Codec.AccessTTL
	if ttl <= 0 {
		ttl = jwtx.DefaultAccessTokenTTL
	}
	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    ttl,
		Scope:        scope,
	}
}
