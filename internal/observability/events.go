package observability

// Header keys carried on every published event.
const (
	HeaderRequestID = "x-request-id"
	HeaderTraceID   = "trace_id"
)

// EventEnvelope is the JSON body of every broker event.
type EventEnvelope struct {
	EventType string      `json:"event_type"`
	EventName string      `json:"event_name"`
	Payload   interface{} `json:"payload"`
}

// BuildHeaders returns the correlation headers for an event, skipping
// empty ids.
func BuildHeaders(requestID, traceID string) map[string]string {
	headers := make(map[string]string, 2)
	for key, value := range map[string]string{HeaderRequestID: requestID, HeaderTraceID: traceID} {
		if value != "" {
			headers[key] = value
		}
	}
	return headers
}

// Routing keys for domain events.
const (
	RoutingMessageCreated = "chat_events.message_created"
	RoutingWSEvents       = "ws_events.direct"
)

// MessageCreatedPayload is published after a message is stored. It carries
// ids only; the content stays in the database.
type MessageCreatedPayload struct {
	MessageID      int64  `json:"message_id"`
	SenderID       int    `json:"sender_id"`
	ReceiverID     int    `json:"receiver_id"`
	AttachmentKind string `json:"attachment_kind,omitempty"`
	Delivered      int    `json:"delivered"`
}
