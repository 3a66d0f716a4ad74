package handlers

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"chat-app/internal/attachments"
	"chat-app/internal/logger"
	"chat-app/internal/middleware"
	"chat-app/internal/models"
	"chat-app/internal/ws"
)

const (
	streamBuffer    = 32
	streamKeepAlive = 25 * time.Second
)

// MessagingService is the messaging core used by MessageHandler.
type MessagingService interface {
	Send(ctx context.Context, senderID, receiverID int, text string, file *attachments.RawFile) (models.Message, error)
	ListForConversation(ctx context.Context, viewerID, otherID int) ([]models.Message, error)
	ListSidebarUsers(ctx context.Context, viewerID int) ([]models.SidebarUser, error)
}

// Subscriber registers per-user push handlers.
type Subscriber interface {
	Subscribe(userID int, handler ws.Handler)
	Unsubscribe(userID int)
}

// MessageHandler serves the direct messaging endpoints.
type MessageHandler struct {
	svc  MessagingService
	subs Subscriber

	mu      sync.Mutex
	streams map[int]chan struct{}
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(svc MessagingService, subs Subscriber) *MessageHandler {
	return &MessageHandler{svc: svc, subs: subs, streams: make(map[int]chan struct{})}
}

// ListUsers returns every other user for the sidebar.
func (h *MessageHandler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListSidebarUsers(c.Request.Context(), c.GetInt(middleware.ContextUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetConversation returns the messages between the caller and :id.
func (h *MessageHandler) GetConversation(c *gin.Context) {
	otherID, ok := idParam(c, "id")
	if !ok {
		return
	}

	msgs, err := h.svc.ListForConversation(c.Request.Context(), c.GetInt(middleware.ContextUserID), otherID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// SendMessage stores a message from a multipart form with "text" and an
// optional "file".
func (h *MessageHandler) SendMessage(c *gin.Context) {
	receiverID, ok := idParam(c, "id")
	if !ok {
		return
	}
	limitBody(c)

	file, body, err := formFile(c, "file")
	if err != nil {
		respondError(c, err)
		return
	}
	if body != nil {
		defer body.Close()
	}

	msg, err := h.svc.Send(c.Request.Context(), c.GetInt(middleware.ContextUserID), receiverID, c.PostForm("text"), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// Stream pushes new-message events as server-sent events. A newer stream
// for the same user ends this one.
func (h *MessageHandler) Stream(c *gin.Context) {
	userID := c.GetInt(middleware.ContextUserID)
	events := make(chan models.ChatEvent, streamBuffer)

	h.mu.Lock()
	if prev, ok := h.streams[userID]; ok {
		close(prev)
	}
	done := make(chan struct{})
	h.streams[userID] = done
	h.subs.Subscribe(userID, func(ev models.ChatEvent) {
		select {
		case events <- ev:
		default:
			logger.Warn().Int("user_id", userID).Msg("event stream full, dropping event")
		}
	})
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		if h.streams[userID] == done {
			delete(h.streams, userID)
			h.subs.Unsubscribe(userID)
		}
		h.mu.Unlock()
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-done:
			return false
		case ev := <-events:
			c.SSEvent(ev.Type, ev)
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", "")
			return true
		}
	})
}
