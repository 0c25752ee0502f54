package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

func TestFromToken(t *testing.T) {
	token := sign(t, jwt.MapClaims{
		"sub":  "u1",
		"name": "Ana",
		"exp":  now.Add(time.Hour).Unix(),
	})

	id, err := FromToken(token, now)
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "Ana", id.Name)
	assert.Equal(t, now.Add(time.Hour).Unix(), id.ExpiresAt.Unix())
}

func TestFromTokenNumericSubject(t *testing.T) {
	token := sign(t, jwt.MapClaims{"sub": 1042, "username": "ana.r"})

	id, err := FromToken("Bearer "+token, now)
	require.NoError(t, err)
	assert.Equal(t, "1042", id.UserID)
	assert.Equal(t, "ana.r", id.Name)
	assert.True(t, id.ExpiresAt.IsZero())
}

func TestFromTokenErrors(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "  ", ErrNoToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"no subject", sign(t, jwt.MapClaims{"name": "Ana"}), ErrNoSubject},
		{"expired", sign(t, jwt.MapClaims{"sub": "u1", "exp": now.Add(-time.Minute).Unix()}), ErrExpiredToken},
		{"bad exp", sign(t, jwt.MapClaims{"sub": "u1", "exp": "tomorrow"}), ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromToken(tt.token, now)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
