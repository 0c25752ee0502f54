// Package auth reads the signed-in user's identity from the API bearer token.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/matheus3301/tourchat/internal/identity"
)

var (
	ErrNoToken      = errors.New("no API token configured")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrNoSubject    = errors.New("token has no subject")
)

// Identity is the local user as named by the token.
type Identity struct {
	UserID    string
	Name      string
	ExpiresAt time.Time // zero if the token does not expire
}

// FromToken extracts the identity from a JWT without verifying its
// signature. The server verifies the token on every request; the client only
// needs to know who it is signed in as.
func FromToken(token string, now time.Time) (Identity, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return Identity{}, ErrNoToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	// sub may be a number on older accounts, so it is read untyped.
	id := Identity{UserID: identity.Normalize(claims["sub"])}
	if id.UserID == "" {
		return Identity{}, ErrNoSubject
	}
	for _, key := range []string{"name", "username", "preferred_username"} {
		if v, ok := claims[key].(string); ok && v != "" {
			id.Name = v
			break
		}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if exp != nil {
		id.ExpiresAt = exp.Time
		if !now.Before(exp.Time) {
			return id, ErrExpiredToken
		}
	}
	return id, nil
}
