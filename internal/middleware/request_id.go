package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDHeader doubles as the response header and the key the logger
// and recovery middleware read the id back from. Callers may supply their
// own id for cross-service correlation; it is echoed, not replaced.
const requestIDHeader = "X-Request-Id"

// RequestID tags every request with a correlation id so a single upload or
// login can be followed across the access log and panic reports.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(requestIDHeader, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}
