package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sims-core-api/internal/models"
	appErrors "github.com/noah-isme/sims-core-api/pkg/errors"
)

func signToken(t *testing.T, secret string, claims *models.JWTClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestTokenServiceValidateToken(t *testing.T) {
	svc := NewTokenService("test-secret")
	signed := signToken(t, "test-secret", &models.JWTClaims{
		UserID: "user-1",
		Role:   models.RoleRegistrar,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := svc.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleRegistrar, claims.Role)
}

func TestTokenServiceRejectsWrongSecret(t *testing.T) {
	svc := NewTokenService("test-secret")
	signed := signToken(t, "other-secret", &models.JWTClaims{UserID: "user-1"})

	_, err := svc.ValidateToken(signed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	svc := NewTokenService("test-secret")
	signed := signToken(t, "test-secret", &models.JWTClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err := svc.ValidateToken(signed)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceRejectsGarbage(t *testing.T) {
	svc := NewTokenService("test-secret")

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
