package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openbootdotdev/openboot.dev/internal/auth"
	"github.com/openbootdotdev/openboot.dev/internal/services"
)

const (
	// ContextUserID is the gin context key holding the verified session user id
	ContextUserID = "user_id"
	// ContextUsername is the gin context key holding the session username
	ContextUsername = "username"
	// ContextRequester is the gin context key holding the assembled Requester
	ContextRequester = "requester"
)

// RequireSession rejects requests without a valid session cookie. On success
// the verified user id and username are stored in the gin context.
func RequireSession(sessions *auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie, err := c.Cookie(auth.SessionCookieName)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		claims, err := sessions.Verify(cookie)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}

// Identity extracts whatever credentials arrived with the request without
// requiring any. The resulting Requester feeds the config access decision;
// an invalid session cookie is treated as anonymous, while the bearer token
// is passed through raw for the access service to judge.
func Identity(sessions *auth.SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req services.Requester

		if cookie, err := c.Cookie(auth.SessionCookieName); err == nil {
			if claims, err := sessions.Verify(cookie); err == nil {
				req.SessionUserID = claims.UserID
				c.Set(ContextUserID, claims.UserID)
				c.Set(ContextUsername, claims.Username)
			}
		}

		if token, ok := services.ParseBearerToken(c.GetHeader("Authorization")); ok {
			req.BearerToken = token
		}

		c.Set(ContextRequester, req)
		c.Next()
	}
}

// RequesterFrom returns the Requester assembled by Identity, or the anonymous
// zero value when the middleware did not run.
func RequesterFrom(c *gin.Context) services.Requester {
	if v, ok := c.Get(ContextRequester); ok {
		if req, ok := v.(services.Requester); ok {
			return req
		}
	}
	return services.Requester{}
}

// UserIDFrom returns the verified session user id set by RequireSession.
func UserIDFrom(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
