package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-app/internal/attachments"
	"chat-app/internal/models"
)

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Append(ctx context.Context, draft models.MessageDraft) (models.Message, error) {
	args := m.Called(ctx, draft)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListConversation(ctx context.Context, userA int, userB int) ([]models.Message, error) {
	args := m.Called(ctx, userA, userB)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) ListCounterparts(ctx context.Context, excludeUserID int) ([]models.User, error) {
	args := m.Called(ctx, excludeUserID)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Create(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) FindByLogin(ctx context.Context, emailOrMobile string) (models.User, error) {
	args := m.Called(ctx, emailOrMobile)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) List(ctx context.Context, search string, includeInactive bool) ([]models.User, error) {
	args := m.Called(ctx, search, includeInactive)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) Update(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) UpdateProfilePic(ctx context.Context, userID int, url string) (models.User, error) {
	args := m.Called(ctx, userID, url)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) Deactivate(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	return userArg(args, 0), args.Error(1)
}

func (m *UserRepositoryMock) Delete(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func userArg(args mock.Arguments, i int) models.User {
	if val := args.Get(i); val != nil {
		return val.(models.User)
	}
	return models.User{}
}

type ResolverMock struct {
	mock.Mock
}

func (m *ResolverMock) Resolve(ctx context.Context, file attachments.RawFile) (models.Attachment, error) {
	args := m.Called(ctx, file)
	var att models.Attachment
	if val := args.Get(0); val != nil {
		att = val.(models.Attachment)
	}
	return att, args.Error(1)
}

type DeliveryMock struct {
	mock.Mock
}

func (m *DeliveryMock) Push(toUserID int, msg models.Message) int {
	args := m.Called(toUserID, msg)
	return args.Int(0)
}

type PresenceMock struct {
	mock.Mock
}

func (m *PresenceMock) IsOnline(userID int) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

type AuditorMock struct {
	mock.Mock
}

func (m *AuditorMock) EmitAction(ctx context.Context, action, requestID string, actorID, targetID int) {
	m.Called(ctx, action, requestID, actorID, targetID)
}
