package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"devnotes/api/internal/config"
	"devnotes/api/internal/models"
	"devnotes/api/internal/repository"
	"devnotes/api/internal/security"
	"devnotes/api/internal/service"
)

const currentUserKey = "current_user"

// Session resolves the session cookie to a user and stores it on the
// context. Every failure mode (no cookie, bad token, user gone, user not
// active) resolves to anonymous and the chain continues; public pages are
// served to anonymous callers, protected ones are gated by RequireUser or
// RequireAdmin below.
func Session(cfg *config.AppConfig, users *repository.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cfg.Security.SessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}

		claims, err := security.ParseSessionToken(token, cfg.Security.SessionSecret, cfg.Security.SessionIssuer)
		if err != nil {
			c.Next()
			return
		}

		// Re-fetch by the email claim: a user deleted or renamed after
		// issuance silently invalidates the session.
		user, err := users.FindByEmail(c.Request.Context(), claims.Email)
		if err != nil {
			c.Next()
			return
		}

		if user.Status != models.UserStatusActive {
			c.Next()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, if any.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireAdmin distinguishes no-session (401) from a session without admin
// privilege (403). Privilege is recomputed from the allow-list policy on
// every request, never read from the role column.
func RequireAdmin(authz *service.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !authz.IsAdmin(c.Request.Context(), user.Email) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
