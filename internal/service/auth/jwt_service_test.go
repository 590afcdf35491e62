package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforest/taskforest-api/internal/config"
)

const testJWTSecret = "test-secret-key-thats-long-enough-for-hmac"

func newTestJWTConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            testJWTSecret,
		TokenLifetimeMinutes: 60,
	}
}

func TestNewJWTService(t *testing.T) {
	svc, err := NewJWTService(newTestJWTConfig())
	require.NoError(t, err)
	assert.NotNil(t, svc)

	// Secrets shorter than 32 characters are rejected
	shortCfg := newTestJWTConfig()
	shortCfg.JWTSecret = "too-short"
	svc, err = NewJWTService(shortCfg)
	require.Error(t, err)
	assert.Nil(t, svc)
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	ctx := context.Background()
	svc, err := NewJWTService(newTestJWTConfig())
	require.NoError(t, err)

	userID := uuid.New()
	token, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, claims)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestJWTService_ValidateToken_Expired(t *testing.T) {
	ctx := context.Background()

	// Freeze time, generate, then validate well past expiry plus skew.
	issuedAt := time.Now()
	svc := &hmacJWTService{
		signingKey:    []byte(testJWTSecret),
		tokenLifetime: time.Minute,
		timeFunc:      func() time.Time { return issuedAt },
		clockSkew:     2 * time.Minute,
	}

	userID := uuid.New()
	token, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)

	svc.timeFunc = func() time.Time { return issuedAt.Add(10 * time.Minute) }
	claims, err := svc.ValidateToken(ctx, token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTService_ValidateToken_WithinClockSkew(t *testing.T) {
	ctx := context.Background()

	issuedAt := time.Now()
	svc := &hmacJWTService{
		signingKey:    []byte(testJWTSecret),
		tokenLifetime: time.Minute,
		timeFunc:      func() time.Time { return issuedAt },
		clockSkew:     2 * time.Minute,
	}

	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	// Expired by the lifetime but still inside the allowed skew.
	svc.timeFunc = func() time.Time { return issuedAt.Add(2 * time.Minute) }
	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.NotNil(t, claims)
}

func TestJWTService_ValidateToken_Malformed(t *testing.T) {
	ctx := context.Background()
	svc, err := NewJWTService(newTestJWTConfig())
	require.NoError(t, err)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		claims, err := svc.ValidateToken(ctx, token)
		require.Error(t, err, "token %q", token)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
}

func TestJWTService_ValidateToken_WrongKey(t *testing.T) {
	ctx := context.Background()

	svc, err := NewJWTService(newTestJWTConfig())
	require.NoError(t, err)

	otherCfg := newTestJWTConfig()
	otherCfg.JWTSecret = "a-completely-different-secret-key-of-size"
	otherSvc, err := NewJWTService(otherCfg)
	require.NoError(t, err)

	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	claims, err := otherSvc.ValidateToken(ctx, token)
	require.Error(t, err)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
