package services

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbootdotdev/openboot.dev/internal/models"
)

func TestTokenIssue(t *testing.T) {
	st := newTestStore(t)
	svc := NewTokenService(st, testServiceConfig())

	user, err := st.UpsertUser(&models.User{
		ID: uuid.New().String(), Username: "octocat", Provider: "github",
	})
	require.NoError(t, err)

	token, err := svc.Issue(user.ID)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token.Token, models.TokenPrefix))
	assert.Len(t, token.Token, len(models.TokenPrefix)+32)
	assert.Equal(t, "cli", token.Name)
	assert.Equal(t, user.ID, token.UserID)
	assert.WithinDuration(t, time.Now().Add(90*24*time.Hour), token.ExpiresAt, 5*time.Second)

	// The random part is lowercase hex.
	random := strings.TrimPrefix(token.Token, models.TokenPrefix)
	for _, c := range random {
		assert.Contains(t, "0123456789abcdef", string(c))
	}

	stored, err := st.GetAPIToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, token.ID, stored.ID)
}

func TestTokenValuesAreUnique(t *testing.T) {
	st := newTestStore(t)
	svc := NewTokenService(st, testServiceConfig())

	user, err := st.UpsertUser(&models.User{
		ID: uuid.New().String(), Username: "octocat", Provider: "github",
	})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		token, err := svc.Issue(user.ID)
		require.NoError(t, err)
		assert.False(t, seen[token.Token], "duplicate token value")
		seen[token.Token] = true
	}
}
