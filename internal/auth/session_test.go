package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSignAndVerify(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	token, err := m.Sign("user-1", "octocat")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "octocat", claims.Username)
}

func TestSessionVerifyRejectsExpired(t *testing.T) {
	m := NewSessionManager("test-secret", -time.Hour)

	token, err := m.Sign("user-1", "octocat")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionVerifyRejectsWrongSecret(t *testing.T) {
	signer := NewSessionManager("secret-a", time.Hour)
	verifier := NewSessionManager("secret-b", time.Hour)

	token, err := signer.Sign("user-1", "octocat")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionVerifyRejectsGarbage(t *testing.T) {
	m := NewSessionManager("test-secret", time.Hour)

	for _, bad := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := m.Verify(bad)
		assert.ErrorIs(t, err, ErrInvalidSession, "token %q", bad)
	}
}

func TestSessionMaxAge(t *testing.T) {
	m := NewSessionManager("test-secret", 720*time.Hour)
	assert.Equal(t, 720*3600, m.MaxAge())
}
