package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(testSecret, DefaultAudience)

	token, err := svc.GenerateToken("7c0e6b2a-broker", "corretor@exemplo.com", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "7c0e6b2a-broker", claims.UserID())
	assert.Equal(t, "corretor@exemplo.com", claims.Email)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService(testSecret, DefaultAudience)

	expired, err := svc.GenerateToken("u1", "", -time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	otherKey, err := NewJWTService("another-secret-with-at-least-32-characters!!", DefaultAudience).GenerateToken("u1", "", time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(otherKey)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongAudience, err := NewJWTService(testSecret, "anon").GenerateToken("u1", "", time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(wrongAudience)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{DefaultAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Audience: jwt.ClaimStrings{DefaultAudience}},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(noExpiry)
	assert.ErrorIs(t, err, ErrInvalidToken)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Audience:  jwt.ClaimStrings{DefaultAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_NoSecret(t *testing.T) {
	svc := NewJWTService("", DefaultAudience)
	_, err := svc.ValidateAccessToken("x.y.z")
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = svc.GenerateToken("u1", "", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
}
