package entity

import (
	"strings"
	"time"
)

type MessageType string

const (
	MessageTypeText   MessageType = "text"
	MessageTypeImage  MessageType = "image"
	MessageTypeVideo  MessageType = "video"
	MessageTypeAudio  MessageType = "audio"
	MessageTypeSystem MessageType = "system"
)

// IsMedia reports whether the type carries a mediaUrl instead of text content.
func (t MessageType) IsMedia() bool {
	return t == MessageTypeImage || t == MessageTypeVideo || t == MessageTypeAudio
}

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeSystem:
		return true
	}
	return false
}

type Dimensions struct {
	Width  int `json:"width" firestore:"width"`
	Height int `json:"height" firestore:"height"`
}

type MediaItem struct {
	Type         MessageType `json:"type" firestore:"type"`
	URL          string      `json:"url" firestore:"url"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty" firestore:"thumbnailUrl,omitempty"`
	Duration     float64     `json:"duration,omitempty" firestore:"duration,omitempty"`
	Dimensions   *Dimensions `json:"dimensions,omitempty" firestore:"dimensions,omitempty"`
}

// ReplySnapshot is a point-in-time copy of the message being replied to. It is
// never re-resolved against the live message.
type ReplySnapshot struct {
	ID       string `json:"id" firestore:"id"`
	Content  string `json:"content" firestore:"content"`
	SenderID string `json:"sender_id" firestore:"senderId"`
}

func (r *ReplySnapshot) Clone() *ReplySnapshot {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

type Message struct {
	ID        string        `json:"id" firestore:"id"`
	ChatID    string        `json:"chat_id" firestore:"chatId"`
	SenderID  string        `json:"sender_id" firestore:"senderId"`
	Content   string        `json:"content" firestore:"content"`
	Type      MessageType   `json:"type" firestore:"type"`
	Status    MessageStatus `json:"status" firestore:"status"`
	CreatedAt time.Time     `json:"created_at" firestore:"createdAt"`

	MediaURL     string      `json:"media_url,omitempty" firestore:"mediaUrl,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty" firestore:"thumbnailUrl,omitempty"`
	Duration     float64     `json:"duration,omitempty" firestore:"duration,omitempty"`
	Dimensions   *Dimensions `json:"dimensions,omitempty" firestore:"dimensions,omitempty"`
	Caption      string      `json:"caption,omitempty" firestore:"caption,omitempty"`
	GalleryItems []MediaItem `json:"gallery_items,omitempty" firestore:"galleryItems,omitempty"`

	Reactions Reactions      `json:"reactions,omitempty" firestore:"reactions,omitempty"`
	ReplyTo   *ReplySnapshot `json:"reply_to,omitempty" firestore:"replyTo,omitempty"`
	ReadBy    []string       `json:"read_by" firestore:"readBy"`
}

// HasReader reports whether userID is already in readBy.
func (m *Message) HasReader(userID string) bool {
	for _, reader := range m.ReadBy {
		if reader == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stored documents never alias caller state.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	if m.Dimensions != nil {
		d := *m.Dimensions
		c.Dimensions = &d
	}
	if m.GalleryItems != nil {
		c.GalleryItems = make([]MediaItem, len(m.GalleryItems))
		for i, item := range m.GalleryItems {
			c.GalleryItems[i] = item
			if item.Dimensions != nil {
				d := *item.Dimensions
				c.GalleryItems[i].Dimensions = &d
			}
		}
	}
	c.Reactions = m.Reactions.Clone()
	c.ReplyTo = m.ReplyTo.Clone()
	if m.ReadBy != nil {
		c.ReadBy = append([]string(nil), m.ReadBy...)
	}
	return &c
}

// Fields returns the sparse document for a new message: optional fields are
// omitted rather than written as null. createdAt is left to the store.
func (m *Message) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"id":       m.ID,
		"chatId":   m.ChatID,
		"senderId": m.SenderID,
		"content":  m.Content,
		"type":     string(m.Type),
		"status":   string(m.Status),
		"readBy":   nonNilStrings(m.ReadBy),
	}
	if m.MediaURL != "" {
		fields["mediaUrl"] = m.MediaURL
	}
	if m.ThumbnailURL != "" {
		fields["thumbnailUrl"] = m.ThumbnailURL
	}
	if m.Duration > 0 {
		fields["duration"] = m.Duration
	}
	if m.Dimensions != nil {
		fields["dimensions"] = map[string]interface{}{
			"width":  m.Dimensions.Width,
			"height": m.Dimensions.Height,
		}
	}
	if strings.TrimSpace(m.Caption) != "" {
		fields["caption"] = m.Caption
	}
	if len(m.GalleryItems) > 0 {
		items := make([]interface{}, 0, len(m.GalleryItems))
		for _, item := range m.GalleryItems {
			entry := map[string]interface{}{
				"type": string(item.Type),
				"url":  item.URL,
			}
			if item.ThumbnailURL != "" {
				entry["thumbnailUrl"] = item.ThumbnailURL
			}
			if item.Duration > 0 {
				entry["duration"] = item.Duration
			}
			if item.Dimensions != nil {
				entry["dimensions"] = map[string]interface{}{
					"width":  item.Dimensions.Width,
					"height": item.Dimensions.Height,
				}
			}
			items = append(items, entry)
		}
		fields["galleryItems"] = items
	}
	if len(m.Reactions) > 0 {
		fields["reactions"] = m.Reactions.Fields()
	}
	if m.ReplyTo != nil {
		fields["replyTo"] = map[string]interface{}{
			"id":       m.ReplyTo.ID,
			"content":  m.ReplyTo.Content,
			"senderId": m.ReplyTo.SenderID,
		}
	}
	return fields
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
