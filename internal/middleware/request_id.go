package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-app/internal/observability"
)

const requestIDHeader = "X-Request-Id"

// RequestID makes sure every request carries an id, echoes it back and
// makes it available to code that only sees the context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			c.Request.Header.Set(requestIDHeader, id)
		}
		c.Writer.Header().Set(requestIDHeader, id)
		c.Request = c.Request.WithContext(observability.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
