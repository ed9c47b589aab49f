package websocket

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"matchchat/internal/domain/entity"
	"matchchat/internal/infrastructure/ratelimit"
	"matchchat/internal/usecase"
)

// Client frame types
const (
	FramePing           = "ping"
	FrameSendMessage    = "send_message"
	FrameMarkRead       = "mark_read"
	FrameMarkDelivered  = "mark_delivered"
	FrameToggleReaction = "toggle_reaction"
)

// Server frame types
const (
	FramePong           = "pong"
	FrameMessages       = "messages"
	FrameSendResult     = "send_result"
	FrameReceipt        = "receipt"
	FrameReactionResult = "reaction_result"
	FrameError          = "error"
)

// ClientFrame is what a client sends. Data is decoded per Type.
type ClientFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WSMessage is what the server sends.
type WSMessage struct {
	Type      string      `json:"type"`
	ChatID    string      `json:"chat_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type SendMessageData struct {
	TempID       string                `json:"temp_id"`
	Type         string                `json:"type"`
	Content      string                `json:"content"`
	MediaURL     string                `json:"media_url"`
	ThumbnailURL string                `json:"thumbnail_url"`
	Duration     float64               `json:"duration"`
	Dimensions   *entity.Dimensions    `json:"dimensions"`
	Caption      string                `json:"caption"`
	GalleryItems []entity.MediaItem    `json:"gallery_items"`
	ReplyTo      *entity.ReplySnapshot `json:"reply_to"`
}

func (d SendMessageData) Payload() usecase.SendPayload {
	t := entity.MessageType(strings.TrimSpace(d.Type))
	if t == "" {
		t = entity.MessageTypeText
	}
	return usecase.SendPayload{
		Type:         t,
		Content:      d.Content,
		MediaURL:     d.MediaURL,
		ThumbnailURL: d.ThumbnailURL,
		Duration:     d.Duration,
		Dimensions:   d.Dimensions,
		Caption:      d.Caption,
		GalleryItems: d.GalleryItems,
		ReplyTo:      d.ReplyTo,
	}
}

type SendResultData struct {
	TempID    string `json:"temp_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	State     string `json:"state"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

type ToggleReactionData struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type ResultData struct {
	Action    string `json:"action"`
	MessageID string `json:"message_id,omitempty"`
	OK        bool   `json:"ok"`
}

// MessageData is a feed entry with its reactions grouped for the viewer.
type MessageData struct {
	*entity.Message
	ReactionGroups []entity.ReactionGroup `json:"reaction_groups,omitempty"`
}

func toMessageData(messages []*entity.Message, viewerID string) []MessageData {
	out := make([]MessageData, 0, len(messages))
	for _, m := range messages {
		out = append(out, MessageData{
			Message:        m,
			ReactionGroups: usecase.SummarizeReactions(m, viewerID),
		})
	}
	return out
}

// Dispatcher runs client actions against the chat usecases.
type Dispatcher struct {
	sender    *usecase.MessageSender
	receipts  *usecase.ReadReceiptTracker
	reactions *usecase.ReactionManager
	limiter   *ratelimit.RateLimiter
}

func NewDispatcher(
	sender *usecase.MessageSender,
	receipts *usecase.ReadReceiptTracker,
	reactions *usecase.ReactionManager,
	limiter *ratelimit.RateLimiter,
) *Dispatcher {
	return &Dispatcher{
		sender:    sender,
		receipts:  receipts,
		reactions: reactions,
		limiter:   limiter,
	}
}

// HandleClientMessage processes one incoming frame. ctx carries the
// connection's user.
func (m *Manager) HandleClientMessage(ctx context.Context, client *Client, raw []byte) {
	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		m.log.Debugw("Invalid frame", "client_id", client.ID, "error", err)
		m.sendErrorToClient(client, "Invalid message format")
		return
	}

	switch frame.Type {
	case FramePing:
		m.sendToClient(client, FramePong, map[string]string{"status": "alive"})

	case FrameSendMessage:
		m.handleSendMessage(ctx, client, frame.Data)

	case FrameMarkRead:
		if !m.allow(client, ratelimit.ActionMarkRead) {
			return
		}
		ok := m.dispatcher.receipts.MarkRead(ctx, client.ChatID)
		m.sendToClient(client, FrameReceipt, ResultData{Action: FrameMarkRead, OK: ok})

	case FrameMarkDelivered:
		if !m.allow(client, ratelimit.ActionMarkRead) {
			return
		}
		ok := m.dispatcher.receipts.MarkDelivered(ctx, client.ChatID)
		m.sendToClient(client, FrameReceipt, ResultData{Action: FrameMarkDelivered, OK: ok})

	case FrameToggleReaction:
		m.handleToggleReaction(ctx, client, frame.Data)

	default:
		m.log.Debugw("Unknown frame type", "client_id", client.ID, "type", frame.Type)
		m.sendErrorToClient(client, "Unknown message type")
	}
}

func (m *Manager) handleSendMessage(ctx context.Context, client *Client, data json.RawMessage) {
	var req SendMessageData
	if err := json.Unmarshal(data, &req); err != nil {
		m.sendErrorToClient(client, "Invalid send message format")
		return
	}
	if !m.allow(client, ratelimit.ActionSendMessage) {
		return
	}

	receipt := m.dispatcher.sender.Deliver(ctx, client.ChatID, req.Payload())
	result := SendResultData{
		TempID:    req.TempID,
		MessageID: receipt.MessageID,
		State:     receipt.State.String(),
		OK:        receipt.State == usecase.SendPreviewSynced,
	}
	if receipt.Err != nil {
		result.Error = receipt.Err.Error()
	}
	m.sendToClient(client, FrameSendResult, result)
}

func (m *Manager) handleToggleReaction(ctx context.Context, client *Client, data json.RawMessage) {
	var req ToggleReactionData
	if err := json.Unmarshal(data, &req); err != nil {
		m.sendErrorToClient(client, "Invalid reaction format")
		return
	}
	if !m.allow(client, ratelimit.ActionToggleReaction) {
		return
	}

	ok := m.dispatcher.reactions.ToggleReaction(ctx, client.ChatID, req.MessageID, req.Emoji, client.UserID)
	m.sendToClient(client, FrameReactionResult, ResultData{Action: FrameToggleReaction, MessageID: req.MessageID, OK: ok})
}

func (m *Manager) allow(client *Client, action string) bool {
	if m.dispatcher.limiter == nil {
		return true
	}
	ok, wait := m.dispatcher.limiter.Allow(client.UserID, action)
	if !ok {
		m.log.Warnw("Rate limited", "user_id", client.UserID, "action", action, "retry_after", wait)
		m.sendErrorToClient(client, "Rate limit exceeded")
	}
	return ok
}

func newFrame(frameType, chatID string, data interface{}) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      frameType,
		ChatID:    chatID,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (m *Manager) sendToClient(client *Client, frameType string, data interface{}) {
	frame, err := newFrame(frameType, client.ChatID, data)
	if err != nil {
		m.log.Errorw("Failed to encode frame", "client_id", client.ID, "type", frameType, "error", err)
		return
	}
	if !client.enqueue(frame) {
		m.log.Warnw("Client send buffer full, dropping frame", "client_id", client.ID, "type", frameType)
	}
}

func (m *Manager) sendErrorToClient(client *Client, errorMsg string) {
	m.sendToClient(client, FrameError, map[string]string{"error": errorMsg})
}
