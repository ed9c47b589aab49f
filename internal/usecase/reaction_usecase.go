package usecase

import (
	"context"
	"strings"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/errors"
	"matchchat/pkg/logger"
)

// ReactionManager toggles per-user emoji reactions. The read-modify-write runs
// inside a store transaction, so concurrent toggles by the same user cannot
// leave them in two buckets.
type ReactionManager struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
}

func NewReactionManager(chatRepo repository.ChatRepository, messageRepo repository.MessageRepository) *ReactionManager {
	return &ReactionManager{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
	}
}

func (rm *ReactionManager) ToggleReaction(ctx context.Context, chatID, messageID, emoji, userID string) bool {
	emoji = strings.TrimSpace(emoji)
	if chatID == "" || messageID == "" || emoji == "" || userID == "" {
		logger.Warn("ToggleReaction rejected: chat=%q message=%q emoji=%q user=%q", chatID, messageID, emoji, userID)
		return false
	}
	if _, err := AuthorizeParticipant(ctx, rm.chatRepo, chatID, userID); err != nil {
		logger.Warn("ToggleReaction rejected for user %s in chat %s: %v", userID, chatID, err)
		return false
	}

	var outcome entity.ToggleOutcome
	_, err := rm.messageRepo.UpdateReactions(ctx, chatID, messageID, func(current entity.Reactions) entity.Reactions {
		next, o := current.Toggle(userID, emoji)
		outcome = o
		return next
	})
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			logger.Warn("ToggleReaction: message %s not found in chat %s", messageID, chatID)
			return false
		}
		logger.Error("ToggleReaction Error: Failed to update reactions on message %s in chat %s: %v", messageID, chatID, err)
		return false
	}

	logger.Debug("ToggleReaction: user %s outcome=%d emoji=%s message=%s", userID, outcome, emoji, messageID)
	return true
}

// SummarizeReactions groups a message's reactions for display.
func SummarizeReactions(message *entity.Message, viewerID string) []entity.ReactionGroup {
	if message == nil {
		return nil
	}
	return message.Reactions.Groups(viewerID)
}
