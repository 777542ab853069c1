package security

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SetSessionCookie binds a session token to the response as an HTTP-only,
// SameSite=Lax cookie scoped to the whole site.
func SetSessionCookie(c *gin.Context, name string, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, token, int(ttl.Seconds()), "/", "", false, true)
}

// ClearSessionCookie expires the session cookie on the client. The token
// itself stays valid until its expiry; clearing is all logout can do.
func ClearSessionCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", false, true)
}
