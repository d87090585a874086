package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
)

// RecommendedSecretBytes is the minimum HMAC secret length we consider safe.
// Shorter secrets are rejected at construction rather than discovered in prod.
const RecommendedSecretBytes = 32

// Codec signs and verifies tokens with a shared HMAC secret. It is pure and
// stateless: safe for concurrent use, no locks needed.
type Codec struct {
	secret []byte
	issuer string

	// AccessTTL and RefreshTTL default to the package constants when zero.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// NewCodec builds a codec for the given shared secret and issuer. The secret
// must be at least RecommendedSecretBytes long.
func NewCodec(secret []byte, issuer string) (*Codec, error) {
	if len(secret) < RecommendedSecretBytes {
		return nil, fmt.Errorf("jwtx: secret must be at least %d bytes, got %d",
			RecommendedSecretBytes, len(secret))
	}
	if issuer == "" {
		return nil, errors.New("jwtx: issuer must not be empty")
	}

	return &Codec{secret: secret, issuer: issuer}, nil
}

// Issuer returns the issuer stamped into every signed claim set.
func (c *Codec) Issuer() string { return c.issuer }

func (c *Codec) accessTTL() time.Duration {
	if c.AccessTTL > 0 {
		return c.AccessTTL
	}
	return DefaultAccessTokenTTL
}

func (c *Codec) refreshTTL() time.Duration {
	if c.RefreshTTL > 0 {
		return c.RefreshTTL
	}
	return DefaultRefreshTokenTTL
}

// Sign serializes and signs a claim set with HS256.
func (c *Codec) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// IssueUserAccess mints an access token for an interactive user.
func (c *Codec) IssueUserAccess(subject, username string, roles []string, scope string) (string, error) {
	claims := NewUserAccessClaims(c.issuer, subject, username, roles, scope, c.accessTTL(), time.Now().UTC())
	return c.Sign(claims)
}

// IssueUserRefresh mints a refresh token for an interactive user.
func (c *Codec) IssueUserRefresh(subject, username string, roles []string, scope string) (string, error) {
	claims := NewUserRefreshClaims(c.issuer, subject, username, roles, scope, c.refreshTTL(), time.Now().UTC())
	return c.Sign(claims)
}

// IssueAPIKeyAccess mints an access token for an API key.
func (c *Codec) IssueAPIKeyAccess(keyID int64, scopes, permissions []string) (string, error) {
	claims := NewAPIKeyAccessClaims(c.issuer, keyID, scopes, permissions, c.accessTTL(), time.Now().UTC())
	return c.Sign(claims)
}

// IssueAPIKeyRefresh mints a refresh token for an API key.
func (c *Codec) IssueAPIKeyRefresh(keyID int64, scopes, permissions []string) (string, error) {
	claims := NewAPIKeyRefreshClaims(c.issuer, keyID, scopes, permissions, c.refreshTTL(), time.Now().UTC())
	return c.Sign(claims)
}

// Decode verifies the signature, expiry and issuer of a token and returns its
// claims. Token type is deliberately not checked here: access-only and
// refresh-only endpoints each enforce their own expectation.
func (c *Codec) Decode(raw string) (Claims, error) {
	return c.DecodeAt(raw, time.Now().UTC())
}

// DecodeAt is Decode evaluated against an explicit clock reading.
func (c *Codec) DecodeAt(raw string, now time.Time) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(), // claim checks below, with exact-expiry semantics
	)

	token, err := parser.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, fmt.Errorf("%w: %w", ErrInvalidSig, err)
		default:
			return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateExpiryAt(now); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// APIKeySubject derives the token subject for an API key id.
func APIKeySubject(keyID int64) string {
	return fmt.Sprintf("api-key-%d", keyID)
}
