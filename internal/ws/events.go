package ws

import (
	"context"
	"time"

	"chat-app/internal/observability"
)

type wsEventPayload struct {
	WS       wsDetails  `json:"ws"`
	Identity wsIdentity `json:"identity"`
}

type wsDetails struct {
	Event      string `json:"event"`
	ConnID     string `json:"conn_id"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason"`
}

type wsIdentity struct {
	UserID   int    `json:"user_id"`
	DeviceID string `json:"device_id"`
	IP       string `json:"ip"`
}

func publishWSEvent(ctx context.Context, info ConnInfo, event, reason string) {
	observability.IncWSEvent(event)
	_ = observability.PublishEvent(ctx, observability.RoutingWSEvents, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: wsEventPayload{
			WS: wsDetails{
				Event:      event,
				ConnID:     info.ConnID,
				DurationMS: time.Since(info.ConnectedAt).Milliseconds(),
				Reason:     reason,
			},
			Identity: wsIdentity{
				UserID:   info.UserID,
				DeviceID: info.DeviceID,
				IP:       info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
