package telemetry

import (
	"context"
	"strconv"
	"time"

	"chat-app/internal/logger"
)

// Publisher is the subset of the broker client the emitter needs.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// AuditEmitter publishes audit records for account changes.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level    string `json:"level"`
	Text     string `json:"text"`
	Action   string `json:"action,omitempty"`
	TargetID *int   `json:"target_id,omitempty"`
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// Emit publishes a free-form audit line.
func (e *AuditEmitter) Emit(ctx context.Context, level, text, requestID string, userID *int) {
	e.emit(ctx, requestID, userID, AuditPayload{Level: level, Text: text})
}

// EmitAction records that actorID performed action on targetID.
func (e *AuditEmitter) EmitAction(ctx context.Context, action, requestID string, actorID, targetID int) {
	target := targetID
	e.emit(ctx, requestID, &actorID, AuditPayload{
		Level:    "INFO",
		Text:     action + " user " + strconv.Itoa(targetID),
		Action:   action,
		TargetID: &target,
	})
}

func (e *AuditEmitter) emit(ctx context.Context, requestID string, userID *int, payload AuditPayload) {
	if e == nil || e.publisher == nil {
		return
	}

	var uid *string
	if userID != nil {
		s := strconv.Itoa(*userID)
		uid = &s
	}

	logger.Info().Str("level", payload.Level).Str("request_id", requestID).Str("action", payload.Action).Msg(payload.Text)
	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    e.now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     requestID,
		UserID:        uid,
		Payload:       payload,
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope, map[string]string{"x-request-id": requestID}); err != nil {
		logger.Error().Err(err).Str("routing_key", e.routingKey).Msg("audit publish failed")
	}
}
