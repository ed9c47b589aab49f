package repository

import (
	"context"

	"matchchat/internal/domain/entity"
)

// Receipt is one entry of an atomic read/delivery batch.
type Receipt struct {
	MessageID string
	// Reader is appended to readBy when set.
	Reader string
	// Status is written when set.
	Status entity.MessageStatus
}

// ReactionMutator computes the new reactions map from the current one.
type ReactionMutator func(current entity.Reactions) entity.Reactions

// SnapshotFunc receives every message in a chat each time the collection changes.
type SnapshotFunc func(messages []*entity.Message)

type MessageRepository interface {
	// Create persists a new message. The store assigns createdAt; the returned
	// copy carries the assigned id and timestamp.
	Create(ctx context.Context, chatID string, message *entity.Message) (*entity.Message, error)
	GetByID(ctx context.Context, chatID, messageID string) (*entity.Message, error)
	Latest(ctx context.Context, chatID string) (*entity.Message, error)
	ListIncoming(ctx context.Context, chatID, userID string) ([]*entity.Message, error)
	UpdateStatus(ctx context.Context, chatID, messageID string, status entity.MessageStatus) error

	// ApplyReceipts writes all receipts as one atomic batch.
	ApplyReceipts(ctx context.Context, chatID string, receipts []Receipt) error

	// UpdateReactions reads the current reactions, applies mutate and writes the
	// full map back inside a store transaction.
	UpdateReactions(ctx context.Context, chatID, messageID string, mutate ReactionMutator) (entity.Reactions, error)

	// Subscribe attaches a live listener to the chat's messages. The returned
	// stop function detaches it and is safe to call more than once.
	Subscribe(ctx context.Context, chatID string, onSnapshot SnapshotFunc, onError func(error)) (stop func())
}
