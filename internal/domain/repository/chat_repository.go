package repository

import (
	"context"

	"matchchat/internal/domain/entity"
)

type ChatRepository interface {
	// Create writes a new chat document and fails with CONFLICT if the id is taken.
	Create(ctx context.Context, chat *entity.Chat) error

	// CreateWithSeed writes the chat and its first message in one atomic
	// batch. The chat's lastMessage is set from the seed. Either write hitting
	// an existing document fails the whole batch with CONFLICT.
	CreateWithSeed(ctx context.Context, chat *entity.Chat, seed *entity.Message) (*entity.Message, error)
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListByParticipant(ctx context.Context, userID string) ([]*entity.Chat, error)

	// UpdateLastMessage rewrites the denormalized preview and bumps updatedAt.
	UpdateLastMessage(ctx context.Context, chatID string, last *entity.LastMessage) error

	// DeleteWithMessages removes every message and the chat itself in one atomic batch.
	DeleteWithMessages(ctx context.Context, chatID string) error
}
