package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/userhub/backend/internal/models"
)

const (
	testAccessSecret  = "b8a3c2267dc85f855dea9b46b452bf20"
	testRefreshSecret = "4f1d7a9e0c5b38216e9d40f2ab87c311"
)

func testClaims() Claims {
	return Claims{
		UserID: 42,
		Email:  "test@example.com",
		Role:   models.RoleUser,
	}
}

func TestNewTokenService(t *testing.T) {
	ts := NewTokenService(testAccessSecret, testRefreshSecret, 15*time.Minute, 7*24*time.Hour)

	assert.NotNil(t, ts)
	assert.Equal(t, testAccessSecret, ts.accessSecret)
	assert.Equal(t, testRefreshSecret, ts.refreshSecret)
	assert.Equal(t, 15*time.Minute, ts.accessTokenExpiry)
	assert.Equal(t, 7*24*time.Hour, ts.refreshTokenExpiry)
}

func TestTokenService_IssuePair(t *testing.T) {
	ts := NewTokenService(testAccessSecret, testRefreshSecret, 15*time.Minute, 7*24*time.Hour)

	t.Run("success", func(t *testing.T) {
		accessToken, refreshToken, err := ts.IssuePair(testClaims())
		require.NoError(t, err)
		assert.NotEmpty(t, accessToken)
		assert.NotEmpty(t, refreshToken)
		assert.NotEqual(t, accessToken, refreshToken)
	})

	t.Run("token format", func(t *testing.T) {
		accessToken, refreshToken, err := ts.IssuePair(testClaims())
		require.NoError(t, err)

		// JWT tokens have 3 parts separated by dots
		assert.Len(t, strings.Split(accessToken, "."), 3)
		assert.Len(t, strings.Split(refreshToken, "."), 3)
	})

	t.Run("claims round-trip", func(t *testing.T) {
		claims := Claims{UserID: 7, Email: "admin@example.com", Role: models.RoleAdmin}
		accessToken, refreshToken, err := ts.IssuePair(claims)
		require.NoError(t, err)

		accessClaims, err := ts.Verify(accessToken, KindAccess)
		require.NoError(t, err)
		assert.Equal(t, claims, *accessClaims)

		refreshClaims, err := ts.Verify(refreshToken, KindRefresh)
		require.NoError(t, err)
		assert.Equal(t, claims, *refreshClaims)
	})
}

func TestTokenService_Verify(t *testing.T) {
	ts := NewTokenService(testAccessSecret, testRefreshSecret, 15*time.Minute, 7*24*time.Hour)

	t.Run("valid access token", func(t *testing.T) {
		accessToken, err := ts.IssueAccess(testClaims())
		require.NoError(t, err)

		claims, err := ts.Verify(accessToken, KindAccess)
		require.NoError(t, err)
		assert.Equal(t, 42, claims.UserID)
		assert.Equal(t, "test@example.com", claims.Email)
		assert.Equal(t, models.RoleUser, claims.Role)
	})

	t.Run("expired token yields ErrTokenExpired", func(t *testing.T) {
		expired := NewTokenService(testAccessSecret, testRefreshSecret, -1*time.Minute, -1*time.Minute)
		accessToken, err := expired.IssueAccess(testClaims())
		require.NoError(t, err)

		claims, err := ts.Verify(accessToken, KindAccess)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("wrong secret yields ErrTokenInvalid", func(t *testing.T) {
		forged := NewTokenService("wrong-secret", "other-wrong-secret", 15*time.Minute, 7*24*time.Hour)
		accessToken, err := forged.IssueAccess(testClaims())
		require.NoError(t, err)

		claims, err := ts.Verify(accessToken, KindAccess)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong secret and expired yields ErrTokenInvalid, never ErrTokenExpired", func(t *testing.T) {
		forged := NewTokenService("wrong-secret", "other-wrong-secret", -1*time.Minute, -1*time.Minute)
		accessToken, err := forged.IssueAccess(testClaims())
		require.NoError(t, err)

		claims, err := ts.Verify(accessToken, KindAccess)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, ErrTokenInvalid)
		assert.NotErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("refresh token rejected as access kind", func(t *testing.T) {
		refreshToken, err := ts.IssueRefresh(testClaims())
		require.NoError(t, err)

		claims, err := ts.Verify(refreshToken, KindAccess)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("access token rejected as refresh kind", func(t *testing.T) {
		accessToken, err := ts.IssueAccess(testClaims())
		require.NoError(t, err)

		claims, err := ts.Verify(accessToken, KindRefresh)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("malformed token yields ErrTokenInvalid", func(t *testing.T) {
		tests := []struct {
			name  string
			token string
		}{
			{name: "empty", token: ""},
			{name: "garbage", token: "not-a-token"},
			{name: "two parts", token: "aaaa.bbbb"},
			{name: "bad payload", token: "aaaa.bbbb.cccc"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				claims, err := ts.Verify(tt.token, KindAccess)
				assert.Nil(t, claims)
				assert.ErrorIs(t, err, ErrTokenInvalid)
			})
		}
	})

	t.Run("unknown role yields ErrTokenInvalid", func(t *testing.T) {
		accessToken, err := ts.IssueAccess(Claims{UserID: 1, Email: "x@example.com", Role: "superuser"})
		require.NoError(t, err)

		claims, err := ts.Verify(accessToken, KindAccess)
		assert.Nil(t, claims)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}
