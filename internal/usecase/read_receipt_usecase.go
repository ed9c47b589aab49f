package usecase

import (
	"context"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/logger"
)

// ReadReceiptTracker batch-marks incoming messages as read or delivered.
type ReadReceiptTracker struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	identity    Identity
}

func NewReadReceiptTracker(chatRepo repository.ChatRepository, messageRepo repository.MessageRepository, identity Identity) *ReadReceiptTracker {
	return &ReadReceiptTracker{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		identity:    identity,
	}
}

// MarkRead adds the current user to readBy on every incoming message they have
// not read yet, in one atomic batch. Calling it again is a no-op.
func (t *ReadReceiptTracker) MarkRead(ctx context.Context, chatID string) bool {
	userID := t.identity.CurrentUserID(ctx)
	if chatID == "" || userID == "" {
		logger.Warn("MarkRead rejected: chat=%q user=%q", chatID, userID)
		return false
	}
	if _, err := AuthorizeParticipant(ctx, t.chatRepo, chatID, userID); err != nil {
		logger.Warn("MarkRead rejected for user %s in chat %s: %v", userID, chatID, err)
		return false
	}

	incoming, err := t.messageRepo.ListIncoming(ctx, chatID, userID)
	if err != nil {
		logger.Error("MarkRead Error: Failed to list messages for chat %s: %v", chatID, err)
		return false
	}

	var receipts []repository.Receipt
	for _, m := range incoming {
		if m.SenderID == userID || m.HasReader(userID) {
			continue
		}
		receipt := repository.Receipt{MessageID: m.ID, Reader: userID}
		if entity.CanTransition(m.Status, entity.StatusRead) {
			receipt.Status = entity.StatusRead
		}
		receipts = append(receipts, receipt)
	}

	if len(receipts) == 0 {
		return true
	}

	if err := t.messageRepo.ApplyReceipts(ctx, chatID, receipts); err != nil {
		logger.Error("MarkRead Error: Failed to mark %d messages read in chat %s: %v", len(receipts), chatID, err)
		return false
	}
	logger.Debug("MarkRead: %d messages read by %s in chat %s", len(receipts), userID, chatID)
	return true
}

// MarkDelivered advances incoming sent messages to delivered. Messages already
// delivered or read are left alone.
func (t *ReadReceiptTracker) MarkDelivered(ctx context.Context, chatID string) bool {
	userID := t.identity.CurrentUserID(ctx)
	if chatID == "" || userID == "" {
		logger.Warn("MarkDelivered rejected: chat=%q user=%q", chatID, userID)
		return false
	}
	if _, err := AuthorizeParticipant(ctx, t.chatRepo, chatID, userID); err != nil {
		logger.Warn("MarkDelivered rejected for user %s in chat %s: %v", userID, chatID, err)
		return false
	}

	incoming, err := t.messageRepo.ListIncoming(ctx, chatID, userID)
	if err != nil {
		logger.Error("MarkDelivered Error: Failed to list messages for chat %s: %v", chatID, err)
		return false
	}

	var receipts []repository.Receipt
	for _, m := range incoming {
		if m.SenderID == userID || m.Status != entity.StatusSent {
			continue
		}
		receipts = append(receipts, repository.Receipt{MessageID: m.ID, Status: entity.StatusDelivered})
	}

	if len(receipts) == 0 {
		return true
	}

	if err := t.messageRepo.ApplyReceipts(ctx, chatID, receipts); err != nil {
		logger.Error("MarkDelivered Error: Failed to mark %d messages delivered in chat %s: %v", len(receipts), chatID, err)
		return false
	}
	return true
}
