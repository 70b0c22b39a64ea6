package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ticketdesk.app/portal/internal/model"
	"ticketdesk.app/portal/internal/store"
)

type contextKey string

const (
	sessionCookieName            = "portal_session"
	sessionContextKey contextKey = "session"
)

// RequireSession validates the caller's session token against the shared
// session table. Tokens arrive as a bearer header from the SPA or as the
// session cookie set by the identity service.
func RequireSession(sessions store.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}

		session, err := sessions.GetValidByToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to validate session"})
			return
		}

		ctx := context.WithValue(c.Request.Context(), sessionContextKey, session)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireAdminAPIKey guards service-to-service routes, like the sync endpoint
// the realtime listener posts to.
func RequireAdminAPIKey(adminAPIKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminAPIKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "admin API not configured"})
			return
		}

		apiKey := c.GetHeader("X-Admin-API-Key")
		if apiKey == "" {
			apiKey = bearerToken(c)
		}

		if apiKey != adminAPIKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			return
		}

		c.Next()
	}
}

// RequireAdminAPIKeyOrSession admits either the admin key or a valid user
// session. The sync endpoint has both kinds of callers: the realtime
// listener and a live browser client confirming an optimistic update.
func RequireAdminAPIKeyOrSession(adminAPIKey string, sessions store.SessionStore) gin.HandlerFunc {
	requireSession := RequireSession(sessions)
	return func(c *gin.Context) {
		if adminAPIKey != "" {
			apiKey := c.GetHeader("X-Admin-API-Key")
			if apiKey == "" {
				apiKey = bearerToken(c)
			}
			if apiKey == adminAPIKey {
				c.Next()
				return
			}
		}
		requireSession(c)
	}
}

func GetSession(ctx context.Context) *model.Session {
	session, _ := ctx.Value(sessionContextKey).(*model.Session)
	return session
}

func sessionToken(c *gin.Context) string {
	if token := bearerToken(c); token != "" {
		return token
	}
	cookie, err := c.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
