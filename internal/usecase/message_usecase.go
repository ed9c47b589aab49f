package usecase

import (
	"context"
	"strings"
	"sync"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/errors"
	"matchchat/pkg/logger"
)

// SendPayload is an outgoing message before persistence. Type selects which
// fields are required: text needs Content, image/video/audio need MediaURL.
type SendPayload struct {
	Type         entity.MessageType
	Content      string
	MediaURL     string
	ThumbnailURL string
	Duration     float64
	Dimensions   *entity.Dimensions
	Caption      string
	GalleryItems []entity.MediaItem
	ReplyTo      *entity.ReplySnapshot
}

func (p SendPayload) Validate() error {
	switch {
	case p.Type == entity.MessageTypeText:
		if strings.TrimSpace(p.Content) == "" {
			return errors.Validation("content is required for text messages")
		}
	case p.Type.IsMedia():
		if strings.TrimSpace(p.MediaURL) == "" {
			return errors.Validation("mediaUrl is required for " + string(p.Type) + " messages")
		}
	default:
		return errors.Validation("unsupported message type: " + string(p.Type))
	}
	if p.ReplyTo != nil && p.ReplyTo.ID == "" {
		return errors.Validation("replyTo requires the original message id")
	}
	return nil
}

// SendState tracks how far a send got. The three writes are not atomic, so a
// send can stop at any state.
type SendState int

const (
	SendRejected SendState = iota
	SendPending
	SendPersisted
	SendSent
	SendPreviewSynced
	SendFailed
)

func (s SendState) String() string {
	switch s {
	case SendRejected:
		return "rejected"
	case SendPending:
		return "pending"
	case SendPersisted:
		return "persisted"
	case SendSent:
		return "sent"
	case SendPreviewSynced:
		return "preview_synced"
	case SendFailed:
		return "failed"
	}
	return "unknown"
}

type SendReceipt struct {
	MessageID string
	State     SendState
	Err       error
}

type MessageSender struct {
	chatRepo    repository.ChatRepository
	messageRepo repository.MessageRepository
	identity    Identity

	mu            sync.Mutex
	stalePreviews map[string]string
}

func NewMessageSender(chatRepo repository.ChatRepository, messageRepo repository.MessageRepository, identity Identity) *MessageSender {
	return &MessageSender{
		chatRepo:      chatRepo,
		messageRepo:   messageRepo,
		identity:      identity,
		stalePreviews: make(map[string]string),
	}
}

// Send validates and persists an outgoing message, then updates the chat
// preview. It reports true only when every step succeeded.
func (uc *MessageSender) Send(ctx context.Context, chatID string, payload SendPayload) bool {
	return uc.Deliver(ctx, chatID, payload).State == SendPreviewSynced
}

// Deliver runs the send and reports the state it reached. A receipt in
// SendSent means the message is persisted but the chat preview is stale.
func (uc *MessageSender) Deliver(ctx context.Context, chatID string, payload SendPayload) SendReceipt {
	if chatID == "" {
		logger.Warn("SendMessage Error: missing chat id")
		return SendReceipt{State: SendRejected, Err: errors.Validation("chat id is required")}
	}
	senderID := uc.identity.CurrentUserID(ctx)
	if senderID == "" {
		logger.Warn("SendMessage Error: no authenticated user for chat %s", chatID)
		return SendReceipt{State: SendRejected, Err: errors.Unauthorized("Authentication required", nil)}
	}
	if err := payload.Validate(); err != nil {
		logger.Debug("SendMessage rejected for chat %s: %v", chatID, err)
		return SendReceipt{State: SendRejected, Err: err}
	}
	if _, err := AuthorizeParticipant(ctx, uc.chatRepo, chatID, senderID); err != nil {
		if accessDenied(err) {
			logger.Warn("SendMessage rejected: user %s cannot post to chat %s: %v", senderID, chatID, err)
			return SendReceipt{State: SendRejected, Err: err}
		}
		logger.Error("SendMessage Error: Failed to load chat %s: %v", chatID, err)
		return SendReceipt{State: SendPending, Err: err}
	}

	message := buildMessage(chatID, senderID, payload)

	created, err := uc.messageRepo.Create(ctx, chatID, message)
	if err != nil {
		logger.Error("SendMessage Error: Failed to create message for chat %s: %v", chatID, err)
		return SendReceipt{State: SendPending, Err: err}
	}
	receipt := SendReceipt{MessageID: created.ID, State: SendPersisted}

	if err := uc.messageRepo.UpdateStatus(ctx, chatID, created.ID, entity.StatusSent); err != nil {
		logger.Error("SendMessage Error: Failed to mark message %s sent in chat %s: %v", created.ID, chatID, err)
		if ferr := uc.messageRepo.UpdateStatus(ctx, chatID, created.ID, entity.StatusFailed); ferr != nil {
			logger.Error("SendMessage Error: Failed to mark message %s failed: %v", created.ID, ferr)
		}
		receipt.State = SendFailed
		receipt.Err = err
		return receipt
	}
	created.Status = entity.StatusSent
	receipt.State = SendSent

	if err := uc.chatRepo.UpdateLastMessage(ctx, chatID, entity.LastMessageFrom(created)); err != nil {
		logger.Error("SendMessage Error: Failed to update chat %s with last message %s: %v", chatID, created.ID, err)
		uc.markStale(chatID, created.ID)
		receipt.Err = err
		return receipt
	}
	uc.clearStale(chatID)
	receipt.State = SendPreviewSynced
	return receipt
}

// ReconcilePreview rewrites the chat's lastMessage from the newest persisted
// message, repairing a preview left stale by a partially failed send.
func (uc *MessageSender) ReconcilePreview(ctx context.Context, chatID string) bool {
	userID := uc.identity.CurrentUserID(ctx)
	if chatID == "" || userID == "" {
		return false
	}
	if _, err := AuthorizeParticipant(ctx, uc.chatRepo, chatID, userID); err != nil {
		logger.Warn("ReconcilePreview rejected for user %s in chat %s: %v", userID, chatID, err)
		return false
	}

	latest, err := uc.messageRepo.Latest(ctx, chatID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			uc.clearStale(chatID)
			return true
		}
		logger.Error("ReconcilePreview Error: Failed to load latest message for chat %s: %v", chatID, err)
		return false
	}

	if err := uc.chatRepo.UpdateLastMessage(ctx, chatID, entity.LastMessageFrom(latest)); err != nil {
		logger.Error("ReconcilePreview Error: Failed to rewrite preview for chat %s: %v", chatID, err)
		return false
	}
	uc.clearStale(chatID)
	return true
}

// StalePreviews lists chats whose last send did not reach the preview write.
func (uc *MessageSender) StalePreviews() []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	chats := make([]string, 0, len(uc.stalePreviews))
	for chatID := range uc.stalePreviews {
		chats = append(chats, chatID)
	}
	return chats
}

func (uc *MessageSender) markStale(chatID, messageID string) {
	uc.mu.Lock()
	uc.stalePreviews[chatID] = messageID
	uc.mu.Unlock()
}

func (uc *MessageSender) clearStale(chatID string) {
	uc.mu.Lock()
	delete(uc.stalePreviews, chatID)
	uc.mu.Unlock()
}

// buildMessage copies only the fields the payload type uses, so the stored
// document stays sparse.
func buildMessage(chatID, senderID string, p SendPayload) *entity.Message {
	m := &entity.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Type:     p.Type,
		Status:   entity.StatusSending,
		ReplyTo:  p.ReplyTo.Clone(),
		ReadBy:   []string{},
	}

	if p.Type == entity.MessageTypeText {
		m.Content = strings.TrimSpace(p.Content)
	} else {
		m.Content = p.Content
		m.MediaURL = strings.TrimSpace(p.MediaURL)
		m.ThumbnailURL = p.ThumbnailURL
		m.Duration = p.Duration
		m.Caption = p.Caption
		if p.Dimensions != nil {
			d := *p.Dimensions
			m.Dimensions = &d
		}
	}

	for _, item := range p.GalleryItems {
		if item.URL == "" {
			continue
		}
		if item.Dimensions != nil {
			d := *item.Dimensions
			item.Dimensions = &d
		}
		m.GalleryItems = append(m.GalleryItems, item)
	}
	return m
}
