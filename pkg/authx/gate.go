package authx

import (
	"errors"
	"fmt"

	"github.com/airlockhq/identity/pkg/jwtx"
)

var (
	// ErrMissingCredential means no bearer token was presented at all.
	ErrMissingCredential = errors.New("authx: missing credential")

	// ErrInvalidCredential wraps any codec failure (expired, bad signature,
	// malformed, issuer mismatch). Callers surface it as a generic 401; the
	// wrapped cause stays available for logging.
	ErrInvalidCredential = errors.New("authx: invalid credential")

	// ErrWrongTokenType means a valid token of the wrong type was presented,
	// e.g. a refresh token on an access-only endpoint.
	ErrWrongTokenType = errors.New("authx: wrong token type")

	// ErrMissingSubject means the token validated but carries no subject.
	ErrMissingSubject = errors.New("authx: missing subject")
)

// Gate authenticates raw bearer tokens into principals.
type Gate struct {
	Codec *jwtx.Codec
}

// NewGate wraps a codec in a gate.
func NewGate(codec *jwtx.Codec) *Gate {
	return &Gate{Codec: codec}
}

// Authenticate validates a raw bearer token and builds the request principal.
// Only access tokens pass; refresh tokens are rejected with ErrWrongTokenType.
func (g *Gate) Authenticate(raw string) (Principal, error) {
	if raw == "" {
		return Principal{}, ErrMissingCredential
	}

	claims, err := g.Codec.Decode(raw)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidCredential, err)
	}

	if claims.TokenType != jwtx.TokenTypeAccess {
		return Principal{}, fmt.Errorf("%w: got %q", ErrWrongTokenType, claims.TokenType)
	}

	if claims.Subject == "" {
		return Principal{}, ErrMissingSubject
	}

	return principalFromClaims(claims), nil
}

// AuthenticateOptional is Authenticate for endpoints that serve anonymous
// callers too. Every failure, not just absence, degrades to "no principal";
// anonymous and invalid are indistinguishable to the handler on purpose.
func (g *Gate) AuthenticateOptional(raw string) (Principal, bool) {
	p, err := g.Authenticate(raw)
	if err != nil {
		return Principal{}, false
	}
	return p, true
}
