package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough"

func newTestManager() *JWTManager {
	return NewJWTManager(&JWTConfig{
		Secret:            testSecret,
		AccessTokenExpiry: 15 * time.Minute,
		Issuer:            "test",
	})
}

func TestNewJWTManager_Defaults(t *testing.T) {
	m := NewJWTManager(nil)
	assert.Equal(t, 15*time.Minute, m.AccessTokenExpiry())

	_, _, err := m.GenerateAccessToken(uuid.New(), "")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := newTestManager()
	userID := uuid.New()

	token, expiresAt, err := m.GenerateAccessToken(userID, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestJWTManager_ValidateToken_Rejects(t *testing.T) {
	m := newTestManager()
	userID := uuid.New()

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager(&JWTConfig{Secret: "another-secret", AccessTokenExpiry: time.Minute, Issuer: "test"})
		token, _, err := other.GenerateAccessToken(userID, "")
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := newTestManager()
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := past.GenerateAccessToken(userID, "")
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTManager(&JWTConfig{Secret: testSecret, AccessTokenExpiry: time.Minute, Issuer: "elsewhere"})
		token, _, err := other.GenerateAccessToken(userID, "")
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: userID}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing user id", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidTokenClaims)
	})
}
