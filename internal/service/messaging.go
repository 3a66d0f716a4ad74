package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"chat-app/internal/apperr"
	"chat-app/internal/attachments"
	"chat-app/internal/logger"
	"chat-app/internal/models"
	"chat-app/internal/observability"
	"chat-app/internal/repositories"
)

// AttachmentResolver turns an upload into a stored attachment.
type AttachmentResolver interface {
	Resolve(ctx context.Context, file attachments.RawFile) (models.Attachment, error)
}

// Delivery pushes stored messages to live recipients.
type Delivery interface {
	Push(toUserID int, msg models.Message) int
}

// PresenceReader answers whether a user holds a live connection.
type PresenceReader interface {
	IsOnline(userID int) bool
}

const conversationStripes = 64

// MessagingService sends messages and lists conversations.
type MessagingService struct {
	messages  repositories.MessageRepository
	users     repositories.UserRepository
	resolver  AttachmentResolver
	delivery  Delivery
	presence  PresenceReader
	stripes   [conversationStripes]sync.Mutex
}

// NewMessagingService wires the messaging core.
func NewMessagingService(messages repositories.MessageRepository, users repositories.UserRepository, resolver AttachmentResolver, delivery Delivery, presence PresenceReader) *MessagingService {
	return &MessagingService{
		messages: messages,
		users:    users,
		resolver: resolver,
		delivery: delivery,
		presence: presence,
	}
}

// Send stores a message and pushes it to the receiver. Nothing is persisted
// unless the attachment, if any, resolved first. Push failures never fail
// the send.
func (s *MessagingService) Send(ctx context.Context, senderID, receiverID int, text string, file *attachments.RawFile) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && file == nil {
		return models.Message{}, apperr.ErrEmptyMessage
	}

	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		return models.Message{}, userLookupError(err)
	}

	draft := models.MessageDraft{SenderID: senderID, ReceiverID: receiverID, Text: text}
	if file != nil {
		att, err := s.resolver.Resolve(ctx, *file)
		if err != nil {
			return models.Message{}, err
		}
		draft.Attachment = &att
	}

	// Append and push under the conversation's stripe so pushes for a pair
	// leave in append order.
	lock := s.stripe(senderID, receiverID)
	lock.Lock()
	msg, err := s.messages.Append(ctx, draft)
	if err != nil {
		lock.Unlock()
		logger.Error().Err(err).Int("sender_id", senderID).Int("receiver_id", receiverID).Msg("append message")
		return models.Message{}, apperr.Persistence(err)
	}
	delivered := s.delivery.Push(receiverID, msg)
	lock.Unlock()

	kind := "none"
	if msg.Attachment != nil {
		kind = string(msg.Attachment.Kind)
	}
	observability.IncMessageSent(kind)
	s.publishCreated(ctx, msg, delivered)

	logger.Debug().Int64("message_id", msg.ID).Int("sender_id", senderID).Int("receiver_id", receiverID).Int("delivered", delivered).Msg("message sent")
	return msg, nil
}

// ListForConversation returns the messages between viewer and other, oldest
// first.
func (s *MessagingService) ListForConversation(ctx context.Context, viewerID, otherID int) ([]models.Message, error) {
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return nil, userLookupError(err)
	}

	msgs, err := s.messages.ListConversation(ctx, viewerID, otherID)
	if err != nil {
		logger.Error().Err(err).Int("user_id", viewerID).Int("other_id", otherID).Msg("list conversation")
		return nil, apperr.Persistence(err)
	}
	return msgs, nil
}

// ListSidebarUsers returns every other active user with its online flag.
func (s *MessagingService) ListSidebarUsers(ctx context.Context, viewerID int) ([]models.SidebarUser, error) {
	users, err := s.messages.ListCounterparts(ctx, viewerID)
	if err != nil {
		logger.Error().Err(err).Int("user_id", viewerID).Msg("list counterparts")
		return nil, apperr.Persistence(err)
	}

	out := make([]models.SidebarUser, 0, len(users))
	for _, u := range users {
		out = append(out, models.SidebarUser{
			ID:         u.ID,
			FullName:   u.FullName,
			ProfilePic: u.ProfilePic,
			Role:       u.Role,
			Online:     s.presence.IsOnline(u.ID),
		})
	}
	return out, nil
}

func (s *MessagingService) stripe(a, b int) *sync.Mutex {
	if a > b {
		a, b = b, a
	}
	h := uint(a)*31 + uint(b)
	return &s.stripes[h%conversationStripes]
}

func (s *MessagingService) publishCreated(ctx context.Context, msg models.Message, delivered int) {
	payload := observability.MessageCreatedPayload{
		MessageID:  msg.ID,
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Delivered:  delivered,
	}
	if msg.Attachment != nil {
		payload.AttachmentKind = string(msg.Attachment.Kind)
	}
	headers := observability.BuildHeaders(observability.RequestIDFromContext(ctx), "")
	_ = observability.PublishEvent(ctx, observability.RoutingMessageCreated, observability.EventEnvelope{
		EventType: "chat_events",
		EventName: "message_created",
		Payload:   payload,
	}, headers)
}

func userLookupError(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return apperr.ErrUserNotFound
	}
	return apperr.Persistence(err)
}
