package usecase

import (
	"context"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/errors"
	"matchchat/pkg/logger"
)

// AuthorizeParticipant loads chatID and requires userID to be one of its
// participants. A missing chat is NOT_FOUND, an outsider FORBIDDEN.
func AuthorizeParticipant(ctx context.Context, chatRepo repository.ChatRepository, chatID, userID string) (*entity.Chat, error) {
	chat, err := chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}
	return chat, nil
}

// accessDenied reports whether err came from AuthorizeParticipant rejecting
// the caller rather than from the store.
func accessDenied(err error) bool {
	return errors.Is(err, "NOT_FOUND") || errors.Is(err, "FORBIDDEN")
}

// ChatDirectory creates one-to-one chats lazily, e.g. when two users match.
type ChatDirectory struct {
	chatRepo repository.ChatRepository
	identity Identity
}

func NewChatDirectory(chatRepo repository.ChatRepository, identity Identity) *ChatDirectory {
	return &ChatDirectory{
		chatRepo: chatRepo,
		identity: identity,
	}
}

// OpenChat returns the id of the chat between the current user and otherID,
// creating it with a store-generated id if none exists. names is the display
// name snapshot stored on the chat. It returns "" on failure.
func (d *ChatDirectory) OpenChat(ctx context.Context, otherID string, names map[string]string) string {
	userID := d.identity.CurrentUserID(ctx)
	if userID == "" || otherID == "" || userID == otherID {
		logger.Warn("OpenChat rejected: user=%q other=%q", userID, otherID)
		return ""
	}

	existing, err := d.findExistingChat(ctx, userID, otherID)
	if err != nil {
		logger.Error("OpenChat Error: Failed to search for existing chat: %v", err)
		return ""
	}
	if existing != nil {
		return existing.ID
	}

	chat := &entity.Chat{
		ParticipantIDs:   []string{userID, otherID},
		ParticipantNames: map[string]string{},
	}
	for _, id := range chat.ParticipantIDs {
		chat.ParticipantNames[id] = names[id]
	}
	if err := d.chatRepo.Create(ctx, chat); err != nil {
		logger.Error("OpenChat Error: Failed to create chat between %s and %s: %v", userID, otherID, err)
		return ""
	}
	return chat.ID
}

// Authorize fails unless the current user is a participant of chatID.
func (d *ChatDirectory) Authorize(ctx context.Context, chatID string) error {
	userID := d.identity.CurrentUserID(ctx)
	if userID == "" {
		return errors.Unauthorized("Authentication required", nil)
	}
	_, err := AuthorizeParticipant(ctx, d.chatRepo, chatID, userID)
	return err
}

func (d *ChatDirectory) findExistingChat(ctx context.Context, userID, otherID string) (*entity.Chat, error) {
	chats, err := d.chatRepo.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, chat := range chats {
		if len(chat.ParticipantIDs) == 2 && chat.HasParticipant(otherID) {
			return chat, nil
		}
	}
	return nil, nil
}
