package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"matchchat/internal/domain/entity"
)

type ChatRepository struct {
	mock.Mock
}

func (m *ChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	args := m.Called(ctx, chat)
	return args.Error(0)
}

func (m *ChatRepository) CreateWithSeed(ctx context.Context, chat *entity.Chat, seed *entity.Message) (*entity.Message, error) {
	args := m.Called(ctx, chat, seed)
	message, _ := args.Get(0).(*entity.Message)
	return message, args.Error(1)
}

func (m *ChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	args := m.Called(ctx, id)
	chat, _ := args.Get(0).(*entity.Chat)
	return chat, args.Error(1)
}

func (m *ChatRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *ChatRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Chat, error) {
	args := m.Called(ctx, userID)
	chats, _ := args.Get(0).([]*entity.Chat)
	return chats, args.Error(1)
}

func (m *ChatRepository) UpdateLastMessage(ctx context.Context, chatID string, last *entity.LastMessage) error {
	args := m.Called(ctx, chatID, last)
	return args.Error(0)
}

func (m *ChatRepository) DeleteWithMessages(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}
