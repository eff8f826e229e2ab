package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowtls/syncplus/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)
	user := &domain.User{ID: 42, Username: "achen", Role: domain.RoleAgent}

	token, expiresAt, err := tm.GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "achen", claims.Username)
	assert.Equal(t, domain.RoleAgent, claims.Role)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", 30)
	token, _, err := tm.GenerateToken(&domain.User{ID: 1, Username: "admin", Role: domain.RoleAdmin})
	require.NoError(t, err)

	other := NewTokenManager("secret-b", 30)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	tm := NewTokenManager("secret", 30)
	_, err := tm.ParseToken("not-a-token")
	assert.Error(t, err)
}
