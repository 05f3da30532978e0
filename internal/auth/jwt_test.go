package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rogue-Bear-Innovations/bookmarker-api/internal/config"
)

func newManager() *TokenManager {
	return NewTokenManager(&config.Config{JWTSecret: "test-secret", JWTTTL: time.Hour})
}

func TestTokenRoundTrip(t *testing.T) {
	m := newManager()
	userID := uuid.New()

	token, err := m.Issue(userID)
	require.NoError(t, err)

	got, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestTokenExpired(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := newManager().WithClock(func() time.Time { return issued })

	token, err := m.Issue(uuid.New())
	require.NoError(t, err)

	later := m.WithClock(func() time.Time { return issued.Add(2 * time.Hour) })
	_, err = later.Validate(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokenWrongSecret(t *testing.T) {
	token, err := newManager().Issue(uuid.New())
	require.NoError(t, err)

	other := NewTokenManager(&config.Config{JWTSecret: "another", JWTTTL: time.Hour})
	_, err = other.Validate(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   uuid.NewString(),
		Issuer:    Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newManager().Validate(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestTokenBadSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "not-a-uuid",
		Issuer:    Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = newManager().Validate(token)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.NoError(t, VerifyPassword(hash, "correct horse"))
	assert.Error(t, VerifyPassword(hash, "battery staple"))
}
