package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-app/internal/attachments"
	"chat-app/internal/auth"
	"chat-app/internal/models"
)

type MessagingServiceMock struct {
	mock.Mock
}

func (m *MessagingServiceMock) Send(ctx context.Context, senderID, receiverID int, text string, file *attachments.RawFile) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, text, file)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessagingServiceMock) ListForConversation(ctx context.Context, viewerID, otherID int) ([]models.Message, error) {
	args := m.Called(ctx, viewerID, otherID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessagingServiceMock) ListSidebarUsers(ctx context.Context, viewerID int) ([]models.SidebarUser, error) {
	args := m.Called(ctx, viewerID)
	var users []models.SidebarUser
	if val := args.Get(0); val != nil {
		users = val.([]models.SidebarUser)
	}
	return users, args.Error(1)
}

// AccountServiceMock satisfies both the auth and admin handler services.
type AccountServiceMock struct {
	mock.Mock
}

func (m *AccountServiceMock) Signup(ctx context.Context, draft auth.UserDraft) (models.User, error) {
	args := m.Called(ctx, draft)
	return userArg(args, 0), args.Error(1)
}

func (m *AccountServiceMock) Login(ctx context.Context, emailOrMobile, password string, role models.Role) (models.User, error) {
	args := m.Called(ctx, emailOrMobile, password, role)
	return userArg(args, 0), args.Error(1)
}

func (m *AccountServiceMock) CurrentUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	return userArg(args, 0), args.Error(1)
}

func (m *AccountServiceMock) UpdateProfilePic(ctx context.Context, userID int, file attachments.RawFile) (models.User, error) {
	args := m.Called(ctx, userID, file)
	return userArg(args, 0), args.Error(1)
}

func (m *AccountServiceMock) CreateUser(ctx context.Context, actorID int, draft auth.UserDraft) (models.User, error) {
	args := m.Called(ctx, actorID, draft)
	return userArg(args, 0), args.Error(1)
}

func (m *AccountServiceMock) ListUsers(ctx context.Context, search string, includeInactive bool) ([]models.User, error) {
	args := m.Called(ctx, search, includeInactive)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *AccountServiceMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	return userArg(args, 0), args.Error(1)
}

func (m *AccountServiceMock) UpdateUser(ctx context.Context, actorID, userID int, draft auth.UserDraft) (models.User, error) {
	args := m.Called(ctx, actorID, userID, draft)
	return userArg(args, 0), args.Error(1)
}

func (m *AccountServiceMock) DeactivateUser(ctx context.Context, actorID, userID int) (models.User, error) {
	args := m.Called(ctx, actorID, userID)
	return userArg(args, 0), args.Error(1)
}

func (m *AccountServiceMock) DeleteUser(ctx context.Context, actorID, userID int) error {
	args := m.Called(ctx, actorID, userID)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}
