package ws

import (
	"encoding/json"
	"sync"

	"chat-app/internal/logger"
	"chat-app/internal/models"
	"chat-app/internal/observability"
	"chat-app/internal/presence"
)

// Handler receives events pushed to a subscribed user. It runs on the
// sender's goroutine and must not block.
type Handler func(event models.ChatEvent)

// Hub pushes events to the live connections recorded in the presence
// registry and to in-process subscribers.
type Hub struct {
	presence *presence.Registry

	mu       sync.RWMutex
	handlers map[int]Handler
}

// NewHub creates a hub over the given registry.
func NewHub(registry *presence.Registry) *Hub {
	return &Hub{
		presence: registry,
		handlers: make(map[int]Handler),
	}
}

// Register adds a live handle for the user.
func (h *Hub) Register(userID int, handle presence.Handle) {
	first := h.presence.Add(userID, handle)
	observability.SetOnlineUsers(h.presence.Count())
	if first {
		h.BroadcastOnlineUsers()
	}
}

// Unregister removes a handle and closes it.
func (h *Hub) Unregister(userID int, handle presence.Handle) {
	last := h.presence.Remove(userID, handle.ID())
	_ = handle.Close()
	observability.SetOnlineUsers(h.presence.Count())
	if last {
		h.BroadcastOnlineUsers()
	}
}

// Push delivers a new-message event to every live handle of the recipient
// and to its subscriber, if any. Delivery is best-effort and never waits on
// the recipient; the return value is the number of targets that accepted
// the event.
func (h *Hub) Push(toUserID int, msg models.Message) int {
	event := models.ChatEvent{Type: models.EventNewMessage, Message: &msg}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Int64("message_id", msg.ID).Msg("encode push event")
		return 0
	}

	delivered := 0
	for _, handle := range h.presence.Handles(toUserID) {
		if err := handle.Send(payload); err != nil {
			observability.IncDelivery("dropped")
			logger.Warn().Err(err).Int("user_id", toUserID).Str("conn_id", handle.ID()).Int64("message_id", msg.ID).Msg("push dropped")
			continue
		}
		observability.IncDelivery("queued")
		delivered++
	}

	h.mu.RLock()
	handler := h.handlers[toUserID]
	h.mu.RUnlock()
	if handler != nil {
		handler(event)
		observability.IncDelivery("queued")
		delivered++
	}

	if delivered == 0 {
		observability.IncDelivery("offline")
	}
	return delivered
}

// Subscribe registers handler for events pushed to userID, replacing any
// previous handler.
func (h *Hub) Subscribe(userID int, handler Handler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[userID] = handler
}

// Unsubscribe removes the user's handler. It is a no-op when none is set.
func (h *Hub) Unsubscribe(userID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handlers, userID)
}

// BroadcastOnlineUsers sends the current online list to every connection.
func (h *Hub) BroadcastOnlineUsers() {
	payload, err := json.Marshal(models.ChatEvent{
		Type:        models.EventOnlineUsers,
		OnlineUsers: h.presence.OnlineUserIDs(),
	})
	if err != nil {
		logger.Error().Err(err).Msg("encode online users")
		return
	}
	for _, handle := range h.presence.All() {
		if err := handle.Send(payload); err != nil {
			logger.Debug().Err(err).Str("conn_id", handle.ID()).Msg("online users broadcast skipped")
		}
	}
}
