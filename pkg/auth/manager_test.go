package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tajer-app/locations/internal/config"
)

func TestManager_RoundTrip(t *testing.T) {
	manager, err := NewManager(config.JWTConfig{SigningKey: "secret", AccessTokenTTL: time.Minute})
	require.NoError(t, err)

	token, ttl, err := manager.NewJWT("operator-7")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	subject, err := manager.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "operator-7", subject)
}

func TestManager_ParseRejects(t *testing.T) {
	manager, err := NewManager(config.JWTConfig{SigningKey: "secret", AccessTokenTTL: time.Minute})
	require.NoError(t, err)

	other, err := NewManager(config.JWTConfig{SigningKey: "other", AccessTokenTTL: time.Minute})
	require.NoError(t, err)
	foreign, _, err := other.NewJWT("operator-7")
	require.NoError(t, err)

	_, err = manager.Parse(foreign)
	assert.Error(t, err)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "operator-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = manager.Parse(expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = manager.Parse("garbage")
	assert.Error(t, err)
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(config.JWTConfig{AccessTokenTTL: time.Minute})
	assert.Error(t, err)

	_, err = NewManager(config.JWTConfig{SigningKey: "secret"})
	assert.Error(t, err)
}
