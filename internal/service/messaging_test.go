package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-app/internal/apperr"
	"chat-app/internal/attachments"
	"chat-app/internal/mocks"
	"chat-app/internal/models"
	"chat-app/internal/observability"
	"chat-app/internal/repositories"
)

type messagingDeps struct {
	messages *mocks.MessageRepositoryMock
	users    *mocks.UserRepositoryMock
	resolver *mocks.ResolverMock
	delivery *mocks.DeliveryMock
	presence *mocks.PresenceMock
}

func newMessaging() (*MessagingService, messagingDeps) {
	d := messagingDeps{
		messages: new(mocks.MessageRepositoryMock),
		users:    new(mocks.UserRepositoryMock),
		resolver: new(mocks.ResolverMock),
		delivery: new(mocks.DeliveryMock),
		presence: new(mocks.PresenceMock),
	}
	return NewMessagingService(d.messages, d.users, d.resolver, d.delivery, d.presence), d
}

func TestSendTextMessage(t *testing.T) {
	svc, d := newMessaging()
	ctx := context.Background()
	stored := models.Message{ID: 1, SenderID: 1, ReceiverID: 2, Text: "hello", CreatedAt: time.Now()}

	d.users.On("GetByID", ctx, 2).Return(models.User{ID: 2, IsActive: true}, nil).Once()
	d.messages.On("Append", ctx, models.MessageDraft{SenderID: 1, ReceiverID: 2, Text: "hello"}).Return(stored, nil).Once()
	d.delivery.On("Push", 2, stored).Return(1).Once()

	msg, err := svc.Send(ctx, 1, 2, "  hello \n", nil)
	require.NoError(t, err)

	assert.Equal(t, stored, msg)
	d.messages.AssertExpectations(t)
	d.delivery.AssertExpectations(t)
}

func TestSendEmptyMessageRejected(t *testing.T) {
	svc, d := newMessaging()

	_, err := svc.Send(context.Background(), 1, 2, "   ", nil)

	require.ErrorIs(t, err, apperr.ErrEmptyMessage)
	assert.Equal(t, 400, apperr.HTTPStatus(err))
	d.users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	d.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	d.delivery.AssertNotCalled(t, "Push", mock.Anything, mock.Anything)
}

func TestSendAttachmentOnly(t *testing.T) {
	svc, d := newMessaging()
	ctx := context.Background()
	file := &attachments.RawFile{FileName: "cat.png", ContentType: "image/png", Size: 3, Body: strings.NewReader("png")}
	att := models.Attachment{Kind: models.KindImage, URL: "https://cdn.test/chat-app/cat.png", FileName: "cat.png", ContentType: "image/png"}
	stored := models.Message{ID: 4, SenderID: 1, ReceiverID: 2, Attachment: &att}

	d.users.On("GetByID", ctx, 2).Return(models.User{ID: 2}, nil).Once()
	d.resolver.On("Resolve", ctx, *file).Return(att, nil).Once()
	d.messages.On("Append", ctx, models.MessageDraft{SenderID: 1, ReceiverID: 2, Attachment: &att}).Return(stored, nil).Once()
	d.delivery.On("Push", 2, stored).Return(0).Once()

	msg, err := svc.Send(ctx, 1, 2, "", file)
	require.NoError(t, err)

	assert.Equal(t, models.KindImage, msg.Attachment.Kind)
	d.resolver.AssertExpectations(t)
}

func TestSendAttachmentStoreFailureLeavesNoMessage(t *testing.T) {
	svc, d := newMessaging()
	ctx := context.Background()
	file := &attachments.RawFile{FileName: "a.pdf", ContentType: "application/pdf", Size: 4, Body: strings.NewReader("%PDF")}

	d.users.On("GetByID", ctx, 2).Return(models.User{ID: 2}, nil).Once()
	d.resolver.On("Resolve", ctx, *file).Return(nil, apperr.AttachmentStore(errors.New("timeout"))).Once()

	_, err := svc.Send(ctx, 1, 2, "see attached", file)

	require.ErrorIs(t, err, apperr.ErrAttachmentStoreUnavailable)
	assert.Equal(t, 500, apperr.HTTPStatus(err))
	d.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	d.delivery.AssertNotCalled(t, "Push", mock.Anything, mock.Anything)
}

func TestSendUnsupportedFilePropagates(t *testing.T) {
	svc, d := newMessaging()
	ctx := context.Background()
	file := &attachments.RawFile{FileName: "a.zip", ContentType: "application/zip", Size: 2, Body: strings.NewReader("PK")}

	d.users.On("GetByID", ctx, 2).Return(models.User{ID: 2}, nil).Once()
	d.resolver.On("Resolve", ctx, *file).Return(nil, apperr.ErrUnsupportedFileType).Once()

	_, err := svc.Send(ctx, 1, 2, "", file)

	assert.ErrorIs(t, err, apperr.ErrUnsupportedFileType)
	d.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSendPersistenceFailureSkipsPush(t *testing.T) {
	svc, d := newMessaging()
	ctx := context.Background()

	d.users.On("GetByID", ctx, 2).Return(models.User{ID: 2}, nil).Once()
	d.messages.On("Append", ctx, mock.Anything).Return(nil, errors.New("connection refused")).Once()

	_, err := svc.Send(ctx, 1, 2, "hi", nil)

	require.ErrorIs(t, err, apperr.ErrPersistenceUnavailable)
	assert.Equal(t, "Internal Server Error", apperr.PublicMessage(err))
	d.delivery.AssertNotCalled(t, "Push", mock.Anything, mock.Anything)
}

func TestSendToUnknownUser(t *testing.T) {
	svc, d := newMessaging()
	ctx := context.Background()

	d.users.On("GetByID", ctx, 99).Return(nil, repositories.ErrUserNotFound).Once()

	_, err := svc.Send(ctx, 1, 99, "hi", nil)

	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	d.messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestSendPublishesMessageCreated(t *testing.T) {
	svc, d := newMessaging()
	pub := new(mocks.PublisherMock)
	observability.SetPublisher(pub)
	t.Cleanup(func() { observability.SetPublisher(nil) })

	ctx := observability.WithRequestID(context.Background(), "req-1")
	stored := models.Message{ID: 8, SenderID: 1, ReceiverID: 2, Text: "x"}
	d.users.On("GetByID", ctx, 2).Return(models.User{ID: 2}, nil).Once()
	d.messages.On("Append", ctx, mock.Anything).Return(stored, nil).Once()
	d.delivery.On("Push", 2, stored).Return(1).Once()

	var envelope observability.EventEnvelope
	pub.On("Publish", ctx, observability.RoutingMessageCreated, mock.Anything, map[string]string{"x-request-id": "req-1"}).
		Run(func(args mock.Arguments) { envelope = args.Get(2).(observability.EventEnvelope) }).
		Return(errors.New("broker down")).Once()

	_, err := svc.Send(ctx, 1, 2, "x", nil)
	require.NoError(t, err)

	pub.AssertExpectations(t)
	payload := envelope.Payload.(observability.MessageCreatedPayload)
	assert.Equal(t, int64(8), payload.MessageID)
	assert.Equal(t, 1, payload.Delivered)
}

func TestListForConversation(t *testing.T) {
	svc, d := newMessaging()
	ctx := context.Background()
	msgs := []models.Message{{ID: 1, Text: "a"}, {ID: 2, Text: "b"}}

	d.users.On("GetByID", ctx, 2).Return(models.User{ID: 2}, nil).Once()
	d.messages.On("ListConversation", ctx, 1, 2).Return(msgs, nil).Once()

	got, err := svc.ListForConversation(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, msgs, got)
}

func TestListForConversationErrors(t *testing.T) {
	svc, d := newMessaging()
	ctx := context.Background()

	d.users.On("GetByID", ctx, 404).Return(nil, repositories.ErrUserNotFound).Once()
	_, err := svc.ListForConversation(ctx, 1, 404)
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)

	d.users.On("GetByID", ctx, 2).Return(models.User{ID: 2}, nil).Once()
	d.messages.On("ListConversation", ctx, 1, 2).Return(nil, errors.New("down")).Once()
	_, err = svc.ListForConversation(ctx, 1, 2)
	assert.ErrorIs(t, err, apperr.ErrPersistenceUnavailable)
}

func TestListSidebarUsersAnnotatesPresence(t *testing.T) {
	svc, d := newMessaging()
	ctx := context.Background()

	d.messages.On("ListCounterparts", ctx, 1).Return([]models.User{
		{ID: 2, FullName: "Bob", Role: models.RoleUser},
		{ID: 3, FullName: "Carol", Role: models.RoleUser, ProfilePic: "https://cdn.test/c.png"},
	}, nil).Once()
	d.presence.On("IsOnline", 2).Return(true)
	d.presence.On("IsOnline", 3).Return(false)

	users, err := svc.ListSidebarUsers(ctx, 1)
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.True(t, users[0].Online)
	assert.Equal(t, "Carol", users[1].FullName)
	assert.False(t, users[1].Online)
	assert.Equal(t, "https://cdn.test/c.png", users[1].ProfilePic)
}

func TestListSidebarUsersPersistenceFailure(t *testing.T) {
	svc, d := newMessaging()
	d.messages.On("ListCounterparts", mock.Anything, 1).Return(nil, errors.New("down")).Once()

	_, err := svc.ListSidebarUsers(context.Background(), 1)
	assert.ErrorIs(t, err, apperr.ErrPersistenceUnavailable)
}

// sequenceRepo assigns increasing ids and records append order.
type sequenceRepo struct {
	repositories.MessageRepository
	mu     sync.Mutex
	nextID int64
}

func (r *sequenceRepo) Append(_ context.Context, draft models.MessageDraft) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return models.Message{ID: r.nextID, SenderID: draft.SenderID, ReceiverID: draft.ReceiverID, Text: draft.Text}, nil
}

type recordingDelivery struct {
	mu     sync.Mutex
	pushed []int64
}

func (r *recordingDelivery) Push(_ int, msg models.Message) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushed = append(r.pushed, msg.ID)
	return 1
}

func TestConcurrentSendsPushInAppendOrder(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	users.On("GetByID", mock.Anything, mock.Anything).Return(models.User{ID: 2}, nil)
	delivery := &recordingDelivery{}
	svc := NewMessagingService(&sequenceRepo{}, users, nil, delivery, nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := 1, 2
			if i%2 == 0 {
				from, to = 2, 1
			}
			_, err := svc.Send(context.Background(), from, to, "m", nil)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	require.Len(t, delivery.pushed, 100)
	for i := 1; i < len(delivery.pushed); i++ {
		assert.Less(t, delivery.pushed[i-1], delivery.pushed[i])
	}
}

func TestStripeIsSymmetric(t *testing.T) {
	svc, _ := newMessaging()
	assert.Same(t, svc.stripe(3, 7), svc.stripe(7, 3))
}
