// Package token decodes access-token payloads on the client side.
//
// The client holds no signing keys; the backend is the sole verifier. The
// decoder reads the two claims the session core depends on, user_id and
// exp, and treats exp as authoritative: an expired token must never seed
// an identity or be attached to a request.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel decode failures. Both are fatal to the session.
var (
	ErrMalformed = errors.New("portal/token: malformed token")
	ErrExpired   = errors.New("portal/token: token expired")
)

// Payload is the decoded access-token content the session core uses.
type Payload struct {
	UserID    int64
	ExpiresAt time.Time
}

type accessClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Decode parses the raw access token without verifying the signature and
// returns its payload. It fails with ErrMalformed when the token cannot
// be parsed or lacks the user_id/exp claims, and with ErrExpired when exp
// is not after now.
func Decode(raw string, now time.Time) (Payload, error) {
	if raw == "" {
		return Payload{}, ErrMalformed
	}

	claims := &accessClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if claims.UserID == 0 || claims.ExpiresAt == nil {
		return Payload{}, fmt.Errorf("%w: missing user_id or exp claim", ErrMalformed)
	}

	exp := claims.ExpiresAt.Time
	if !exp.After(now) {
		return Payload{}, ErrExpired
	}

	return Payload{UserID: claims.UserID, ExpiresAt: exp}, nil
}
