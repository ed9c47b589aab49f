package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
)

type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Create(ctx context.Context, chatID string, message *entity.Message) (*entity.Message, error) {
	args := m.Called(ctx, chatID, message)
	created, _ := args.Get(0).(*entity.Message)
	return created, args.Error(1)
}

func (m *MessageRepository) GetByID(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	args := m.Called(ctx, chatID, messageID)
	message, _ := args.Get(0).(*entity.Message)
	return message, args.Error(1)
}

func (m *MessageRepository) Latest(ctx context.Context, chatID string) (*entity.Message, error) {
	args := m.Called(ctx, chatID)
	message, _ := args.Get(0).(*entity.Message)
	return message, args.Error(1)
}

func (m *MessageRepository) ListIncoming(ctx context.Context, chatID, userID string) ([]*entity.Message, error) {
	args := m.Called(ctx, chatID, userID)
	messages, _ := args.Get(0).([]*entity.Message)
	return messages, args.Error(1)
}

func (m *MessageRepository) UpdateStatus(ctx context.Context, chatID, messageID string, status entity.MessageStatus) error {
	args := m.Called(ctx, chatID, messageID, status)
	return args.Error(0)
}

func (m *MessageRepository) ApplyReceipts(ctx context.Context, chatID string, receipts []repository.Receipt) error {
	args := m.Called(ctx, chatID, receipts)
	return args.Error(0)
}

func (m *MessageRepository) UpdateReactions(ctx context.Context, chatID, messageID string, mutate repository.ReactionMutator) (entity.Reactions, error) {
	args := m.Called(ctx, chatID, messageID, mutate)
	reactions, _ := args.Get(0).(entity.Reactions)
	return reactions, args.Error(1)
}

func (m *MessageRepository) Subscribe(ctx context.Context, chatID string, onSnapshot repository.SnapshotFunc, onError func(error)) func() {
	args := m.Called(ctx, chatID, onSnapshot, onError)
	stop, _ := args.Get(0).(func())
	if stop == nil {
		return func() {}
	}
	return stop
}
