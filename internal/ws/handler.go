package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"chat-app/internal/auth"
	"chat-app/internal/logger"
	"chat-app/internal/models"
	"chat-app/internal/observability"
)

// TokenVerifier turns a session token into an identity.
type TokenVerifier interface {
	Verify(token string) (models.Identity, error)
}

// ConnectionHandler upgrades authenticated requests to websockets and ties
// each connection's lifetime to its presence entry.
type ConnectionHandler struct {
	hub      *Hub
	tokens   TokenVerifier
	upgrader websocket.Upgrader
}

// NewConnectionHandler constructs a ConnectionHandler.
func NewConnectionHandler(hub *Hub, tokens TokenVerifier, allowedOrigins []string) *ConnectionHandler {
	return &ConnectionHandler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Handle upgrades the connection and registers the client.
func (h *ConnectionHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("chat-app/ws").Start(c.Request.Context(), "ws.handshake", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := auth.TokenFromRequest(c.Request)
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized - No Token Provided"})
		return
	}
	identity, err := h.tokens.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized - Invalid Token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Int("user_id", identity.UserID).Msg("websocket upgrade failed")
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      identity.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	// The request context ends when this handler returns; the connection
	// outlives it.
	connCtx := context.WithoutCancel(ctx)

	client := newClient(conn, info)
	h.hub.Register(identity.UserID, client)
	observability.IncWSActive()
	publishWSEvent(connCtx, info, "ws_connect", "")
	logger.Info().Int("user_id", info.UserID).Str("conn_id", info.ConnID).Msg("user connected")

	go client.writePump()
	go func() {
		reason, abnormal := client.readPump()
		if abnormal {
			publishWSEvent(connCtx, info, "ws_error", reason)
		}
		h.hub.Unregister(identity.UserID, client)
		observability.DecWSActive()
		publishWSEvent(connCtx, info, "ws_disconnect", reason)
		logger.Info().Int("user_id", info.UserID).Str("conn_id", info.ConnID).Str("reason", reason).Msg("user disconnected")
	}()
}
