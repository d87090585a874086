package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/airlockhq/identity/internal/identity/domain"
)

var ErrUpstreamDenied = errors.New("upstream provider rejected the request")

// OAuthConfig points at the upstream OAuth2/OIDC provider that owns the
// actual user accounts. The identity service is a relying party: it never
// sees passwords, only authorization codes.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	RedirectURI  string
	Scopes       []string
}

// OAuthClient drives the authorization-code flow against the upstream
// provider.
type OAuthClient struct {
	Config     OAuthConfig
	HTTPClient *http.Client
}

func NewOAuthClient(cfg OAuthConfig) *OAuthClient {
	return &OAuthClient{
		Config:     cfg,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthorizationURL builds the upstream authorize redirect for the given CSRF
// state value.
func (c *OAuthClient) AuthorizationURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.Config.ClientID)
	q.Set("redirect_uri", c.Config.RedirectURI)
	q.Set("state", state)
	if len(c.Config.Scopes) > 0 {
		q.Set("scope", strings.Join(c.Config.Scopes, " "))
	}
	return c.Config.AuthorizeURL + "?" + q.Encode()
}

type upstreamTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}

// ExchangeCode redeems an authorization code for the upstream access token
// and the scope the provider granted.
func (c *OAuthClient) ExchangeCode(ctx context.Context, code string) (accessToken, scope string, err error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.Config.RedirectURI)
	form.Set("client_id", c.Config.ClientID)
	form.Set("client_secret", c.Config.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("%w: token endpoint returned %d", ErrUpstreamDenied, resp.StatusCode)
	}

	var tr upstreamTokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&tr); err != nil {
		return "", "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return "", "", fmt.Errorf("%w: empty access token", ErrUpstreamDenied)
	}

	return tr.AccessToken, tr.Scope, nil
}

type upstreamUserInfo struct {
	Sub               string   `json:"sub"`
	PreferredUsername string   `json:"preferred_username"`
	Email             string   `json:"email"`
	Roles             []string `json:"roles"`
}

// UserInfo fetches the authenticated user's profile with the upstream access
// token. Roles are passed through as-is; a provider that sends none leaves
// the default-role policy to the gate.
func (c *OAuthClient) UserInfo(ctx context.Context, accessToken string) (domain.UserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Config.UserInfoURL, nil)
	if err != nil {
		return domain.UserInfo{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return domain.UserInfo{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.UserInfo{}, fmt.Errorf("%w: userinfo returned %d", ErrUpstreamDenied, resp.StatusCode)
	}

	var ui upstreamUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&ui); err != nil {
		return domain.UserInfo{}, fmt.Errorf("failed to decode userinfo response: %w", err)
	}
	if ui.Sub == "" {
		return domain.UserInfo{}, fmt.Errorf("%w: userinfo missing sub", ErrUpstreamDenied)
	}

	username := ui.PreferredUsername
	if username == "" {
		username = ui.Sub
	}

	return domain.UserInfo{
		Subject:  ui.Sub,
		Username: username,
		Email:    ui.Email,
		Roles:    ui.Roles,
	}, nil
}
