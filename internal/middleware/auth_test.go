package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbootdotdev/openboot.dev/internal/auth"
	"github.com/openbootdotdev/openboot.dev/internal/services"
)

func newSessionManager() *auth.SessionManager {
	return auth.NewSessionManager("test-secret", time.Hour)
}

func sessionCookie(t *testing.T, m *auth.SessionManager, userID, username string) *http.Cookie {
	t.Helper()
	token, err := m.Sign(userID, username)
	require.NoError(t, err)
	return &http.Cookie{Name: auth.SessionCookieName, Value: token}
}

func TestRequireSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := newSessionManager()

	router := gin.New()
	router.GET("/api/user", RequireSession(sessions), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserIDFrom(c)})
	})

	t.Run("no cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "not-a-jwt"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired cookie", func(t *testing.T) {
		expired := auth.NewSessionManager("test-secret", -time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		req.AddCookie(sessionCookie(t, expired, "user-1", "octocat"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/user", nil)
		req.AddCookie(sessionCookie(t, sessions, "user-1", "octocat"))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-1")
	})
}

func TestIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := newSessionManager()

	var captured services.Requester
	router := gin.New()
	router.GET("/install", Identity(sessions), func(c *gin.Context) {
		captured = RequesterFrom(c)
		c.Status(http.StatusOK)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/install", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, services.Requester{}, captured)
	})

	t.Run("session cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/install", nil)
		req.AddCookie(sessionCookie(t, sessions, "user-1", "octocat"))
		router.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "user-1", captured.SessionUserID)
		assert.Empty(t, captured.BearerToken)
	})

	t.Run("invalid session cookie is anonymous", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/install", nil)
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "bogus"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "identity extraction never rejects")
		assert.Equal(t, services.Requester{}, captured)
	})

	t.Run("bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/install", nil)
		req.Header.Set("Authorization", "Bearer obt_abc123")
		router.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "obt_abc123", captured.BearerToken)
		assert.Empty(t, captured.SessionUserID)
	})

	t.Run("both credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/install", nil)
		req.AddCookie(sessionCookie(t, sessions, "user-1", "octocat"))
		req.Header.Set("Authorization", "Bearer obt_abc123")
		router.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "user-1", captured.SessionUserID)
		assert.Equal(t, "obt_abc123", captured.BearerToken)
	})
}

func TestRequesterFromWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, services.Requester{}, RequesterFrom(c))
}
