package auth

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const sessionCookieName = "session_id"

const contextKeyUserID = "user_id"

// Resolver maps a session id to the authenticated user id.
type Resolver interface {
	UserID(ctx context.Context, sessionID string) (userID string, ok bool, err error)
}

// UserIDFromContext returns the current user ID set by RequireSession. Empty if not set.
func UserIDFromContext(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}

// BearerToken returns the token of an "Authorization: Bearer <token>" header.
func BearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireSession checks the session cookie (or bearer token) and sets the
// current user ID in context. If missing or invalid, responds with 401.
func RequireSession(sessions Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, err := c.Cookie(sessionCookieName)
		if err != nil || sessionID == "" {
			sessionID = BearerToken(c)
		}
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}

		userID, ok, err := sessions.UserID(c.Request.Context(), sessionID)
		if err != nil {
			log.Printf("[error] resolve session: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session lookup failed"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		c.Set(contextKeyUserID, userID)
		c.Next()
	}
}
