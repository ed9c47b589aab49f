package handler

import (
	"github.com/labstack/echo/v4"

	"matchchat/internal/domain/entity"
	"matchchat/internal/usecase"
	"matchchat/pkg/errors"
	"matchchat/pkg/response"
)

type ChatHandler struct {
	directory  *usecase.ChatDirectory
	sender     *usecase.MessageSender
	receipts   *usecase.ReadReceiptTracker
	reactions  *usecase.ReactionManager
	aggregator *usecase.ChatPreviewAggregator
}

func NewChatHandler(
	directory *usecase.ChatDirectory,
	sender *usecase.MessageSender,
	receipts *usecase.ReadReceiptTracker,
	reactions *usecase.ReactionManager,
	aggregator *usecase.ChatPreviewAggregator,
) *ChatHandler {
	return &ChatHandler{
		directory:  directory,
		sender:     sender,
		receipts:   receipts,
		reactions:  reactions,
		aggregator: aggregator,
	}
}

type openChatRequest struct {
	OtherUserID string            `json:"other_user_id" validate:"required"`
	Names       map[string]string `json:"participant_names"`
}

type sendMessageRequest struct {
	Type         string                `json:"type" validate:"omitempty,oneof=text image video audio"`
	Content      string                `json:"content" validate:"max=4000"`
	MediaURL     string                `json:"media_url" validate:"omitempty,url"`
	ThumbnailURL string                `json:"thumbnail_url" validate:"omitempty,url"`
	Duration     float64               `json:"duration"`
	Dimensions   *entity.Dimensions    `json:"dimensions"`
	Caption      string                `json:"caption"`
	GalleryItems []entity.MediaItem    `json:"gallery_items"`
	ReplyTo      *entity.ReplySnapshot `json:"reply_to"`
}

type toggleReactionRequest struct {
	Emoji string `json:"emoji" validate:"required,max=32"`
}

type sendMessageResponse struct {
	MessageID string `json:"message_id"`
	State     string `json:"state"`
}

// ListChats returns the chat list previews for the authenticated user.
func (h *ChatHandler) ListChats(c echo.Context) error {
	previews := h.aggregator.Focus(c.Request().Context())
	return response.Success(c, previews)
}

// OpenChat returns the chat with another user, creating it on first use.
func (h *ChatHandler) OpenChat(c echo.Context) error {
	var req openChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	chatID := h.directory.OpenChat(c.Request().Context(), req.OtherUserID, req.Names)
	if chatID == "" {
		return response.Error(c, errors.Internal("Failed to open chat", nil))
	}
	return response.Created(c, map[string]string{"chat_id": chatID})
}

// SendMessage persists a message. 201 means the chat preview was updated too;
// 202 means the message is sent but the preview is stale.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}
	if req.Type == "" {
		req.Type = string(entity.MessageTypeText)
	}

	receipt := h.sender.Deliver(c.Request().Context(), c.Param("id"), usecase.SendPayload{
		Type:         entity.MessageType(req.Type),
		Content:      req.Content,
		MediaURL:     req.MediaURL,
		ThumbnailURL: req.ThumbnailURL,
		Duration:     req.Duration,
		Dimensions:   req.Dimensions,
		Caption:      req.Caption,
		GalleryItems: req.GalleryItems,
		ReplyTo:      req.ReplyTo,
	})

	body := sendMessageResponse{MessageID: receipt.MessageID, State: receipt.State.String()}
	switch receipt.State {
	case usecase.SendPreviewSynced:
		return response.Created(c, body)
	case usecase.SendSent:
		return response.Accepted(c, body)
	case usecase.SendRejected:
		return response.Error(c, receipt.Err)
	}
	return response.Error(c, errors.Persistence("Message could not be sent", receipt.Err))
}

func (h *ChatHandler) MarkRead(c echo.Context) error {
	if err := h.authorize(c); err != nil {
		return response.Error(c, err)
	}
	if !h.receipts.MarkRead(c.Request().Context(), c.Param("id")) {
		return response.Error(c, errors.Persistence("Failed to mark chat as read", nil))
	}
	return response.Success(c, map[string]bool{"ok": true})
}

func (h *ChatHandler) MarkDelivered(c echo.Context) error {
	if err := h.authorize(c); err != nil {
		return response.Error(c, err)
	}
	if !h.receipts.MarkDelivered(c.Request().Context(), c.Param("id")) {
		return response.Error(c, errors.Persistence("Failed to mark chat as delivered", nil))
	}
	return response.Success(c, map[string]bool{"ok": true})
}

func (h *ChatHandler) ToggleReaction(c echo.Context) error {
	var req toggleReactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if err := h.authorize(c); err != nil {
		return response.Error(c, err)
	}

	uid, _ := c.Get("uid").(string)
	if !h.reactions.ToggleReaction(c.Request().Context(), c.Param("id"), c.Param("messageId"), req.Emoji, uid) {
		return response.Error(c, errors.New("REACTION_FAILED", "Reaction could not be applied", 422, nil))
	}
	return response.Success(c, map[string]bool{"ok": true})
}

// ReconcilePreview rewrites a stale chat preview from the newest message.
func (h *ChatHandler) ReconcilePreview(c echo.Context) error {
	if err := h.authorize(c); err != nil {
		return response.Error(c, err)
	}
	if !h.sender.ReconcilePreview(c.Request().Context(), c.Param("id")) {
		return response.Error(c, errors.Persistence("Failed to reconcile chat preview", nil))
	}
	return response.Success(c, map[string]bool{"ok": true})
}

// authorize answers 403 or 404 up front; the usecases only report a boolean.
func (h *ChatHandler) authorize(c echo.Context) error {
	return h.directory.Authorize(c.Request().Context(), c.Param("id"))
}
