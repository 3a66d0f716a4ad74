package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chat-app/internal/logger"
	"chat-app/internal/ratelimit"
)

// SendRateLimit throttles message sends per authenticated user. A limiter
// error lets the request through.
func SendRateLimit(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetInt(ContextUserID)
		allowed, err := limiter.Allow(c.Request.Context(), strconv.Itoa(userID))
		if err != nil {
			logger.Warn().Err(err).Int("user_id", userID).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			logger.Warn().Int("user_id", userID).Str("path", c.Request.URL.Path).Msg("send rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many messages, slow down"})
			return
		}
		c.Next()
	}
}
