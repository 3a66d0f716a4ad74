package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-app/internal/middleware"
	"chat-app/internal/ratelimit"
	"chat-app/internal/telemetry"
)

// Routes holds everything needed to mount the HTTP API.
type Routes struct {
	Auth      *AuthHandler
	Admin     *AdminHandler
	Messages  *MessageHandler
	WebSocket gin.HandlerFunc
	Tokens    middleware.TokenVerifier
	Limiter   ratelimit.Limiter
	Audit     *telemetry.AuditEmitter
	Debug     bool
}

// Register mounts the API on router.
func (r Routes) Register(router *gin.Engine) {
	requireAuth := middleware.AuthMiddleware(r.Tokens)

	authGroup := router.Group("/auth")
	authGroup.POST("/signup", r.Auth.Signup)
	authGroup.POST("/login", r.Auth.Login)
	authGroup.POST("/logout", r.Auth.Logout)
	authGroup.GET("/check", requireAuth, r.Auth.Check)
	authGroup.PUT("/update-profile", requireAuth, r.Auth.UpdateProfile)

	messages := router.Group("/messages", requireAuth)
	messages.GET("/users", r.Messages.ListUsers)
	messages.GET("/stream", r.Messages.Stream)
	messages.GET("/:id", r.Messages.GetConversation)
	send := []gin.HandlerFunc{r.Messages.SendMessage}
	if r.Limiter != nil {
		send = append([]gin.HandlerFunc{middleware.SendRateLimit(r.Limiter)}, send...)
	}
	messages.POST("/send/:id", send...)

	admin := router.Group("/admin", requireAuth, middleware.RequireAdmin())
	admin.POST("/users", r.Admin.CreateUser)
	admin.GET("/users", r.Admin.ListUsers)
	admin.GET("/users/:id", r.Admin.GetUser)
	admin.PUT("/users/:id", r.Admin.UpdateUser)
	admin.DELETE("/users/:id", r.Admin.DeleteUser)
	admin.DELETE("/users/:id/hard", r.Admin.HardDeleteUser)

	if r.WebSocket != nil {
		router.GET("/ws", r.WebSocket)
	}

	if r.Debug {
		router.GET("/debug/audit-test", requireAuth, r.auditTest)
	}
}

func (r Routes) auditTest(c *gin.Context) {
	if r.Audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
		return
	}
	requestID := requestIDFromContext(c)
	r.Audit.Emit(c.Request.Context(), "INFO", "audit test", requestID, userIDFromContext(c))
	c.JSON(http.StatusOK, gin.H{"status": "ok", "request_id": requestID})
}
