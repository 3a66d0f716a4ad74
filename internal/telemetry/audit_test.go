package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	return m.Called(ctx, routingKey, event, headers).Error(0)
}

func TestEmitActionEnvelope(t *testing.T) {
	pub := new(publisherMock)
	emitter := NewAuditEmitter(pub, "audit.chat-app", "chat-app", "test")
	emitter.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	var got AuditEnvelope
	pub.On("Publish", mock.Anything, "audit.chat-app", mock.Anything, map[string]string{"x-request-id": "req-9"}).
		Run(func(args mock.Arguments) { got = args.Get(2).(AuditEnvelope) }).
		Return(nil).Once()

	emitter.EmitAction(context.Background(), "user.deactivated", "req-9", 1, 42)

	pub.AssertExpectations(t)
	require.NotNil(t, got.UserID)
	assert.Equal(t, "1", *got.UserID)
	assert.Equal(t, "audit_log", got.EventType)
	assert.Equal(t, "2026-01-02T03:04:05Z", got.OccurredAt)
	assert.Equal(t, "user.deactivated", got.Payload.Action)
	require.NotNil(t, got.Payload.TargetID)
	assert.Equal(t, 42, *got.Payload.TargetID)
}

func TestEmitSwallowsPublishError(t *testing.T) {
	pub := new(publisherMock)
	emitter := NewAuditEmitter(pub, "audit.chat-app", "chat-app", "test")
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "INFO", "audit test", "req-1", nil)
	})
	pub.AssertExpectations(t)
}

func TestNilEmitterIsSafe(t *testing.T) {
	var emitter *AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "INFO", "x", "", nil)
	})
}
