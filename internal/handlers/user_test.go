package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbootdotdev/openboot.dev/internal/models"
)

func TestUserMe(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "octocat")

	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.AddCookie(env.sessionCookie(t, user))
	w := env.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	me := body["user"].(map[string]any)
	assert.Equal(t, "octocat", me["username"])
	assert.Equal(t, "octocat@example.com", me["email"])
	assert.Equal(t, "github", me["provider"])
}

func TestUserMeRequiresSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(httptest.NewRequest(http.MethodGet, "/api/user", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUserMeStaleSession(t *testing.T) {
	env := newTestEnv(t)

	// A validly signed cookie for an account that no longer exists reads as
	// not logged in, not as a server error.
	ghost := &models.User{ID: uuid.New().String(), Username: "ghost"}
	req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
	req.AddCookie(env.sessionCookie(t, ghost))
	w := env.do(req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
