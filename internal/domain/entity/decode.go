package entity

import (
	"fmt"
	"time"
)

// DecodeMessage validates a raw store document into a Message. Unknown types
// and missing senders are rejected. A missing or malformed createdAt decodes
// to the zero time; callers decide how to order such messages.
func DecodeMessage(id string, data map[string]interface{}) (*Message, error) {
	if data == nil {
		return nil, fmt.Errorf("message %s: empty document", id)
	}

	m := &Message{
		ID:       id,
		ChatID:   stringField(data, "chatId"),
		SenderID: stringField(data, "senderId"),
		Content:  stringField(data, "content"),
		Type:     MessageType(stringField(data, "type")),
		Status:   MessageStatus(stringField(data, "status")),
	}
	if m.SenderID == "" {
		return nil, fmt.Errorf("message %s: missing senderId", id)
	}
	if m.Type == "" {
		m.Type = MessageTypeText
	}
	if !m.Type.Valid() {
		return nil, fmt.Errorf("message %s: unknown type %q", id, m.Type)
	}
	if !m.Status.Valid() {
		m.Status = StatusSent
	}

	if ts, ok := data["createdAt"].(time.Time); ok {
		m.CreatedAt = ts
	}

	m.MediaURL = stringField(data, "mediaUrl")
	m.ThumbnailURL = stringField(data, "thumbnailUrl")
	m.Duration = floatField(data, "duration")
	m.Dimensions = dimensionsField(data["dimensions"])
	m.Caption = stringField(data, "caption")
	if m.Type.IsMedia() && m.MediaURL == "" {
		return nil, fmt.Errorf("message %s: %s without mediaUrl", id, m.Type)
	}

	if raw, ok := data["galleryItems"].([]interface{}); ok {
		for _, entry := range raw {
			item, ok := entry.(map[string]interface{})
			if !ok {
				continue
			}
			url := stringField(item, "url")
			if url == "" {
				continue
			}
			m.GalleryItems = append(m.GalleryItems, MediaItem{
				Type:         MessageType(stringField(item, "type")),
				URL:          url,
				ThumbnailURL: stringField(item, "thumbnailUrl"),
				Duration:     floatField(item, "duration"),
				Dimensions:   dimensionsField(item["dimensions"]),
			})
		}
	}

	if raw, ok := data["reactions"].(map[string]interface{}); ok {
		m.Reactions = DecodeReactions(raw)
	}

	if raw, ok := data["replyTo"].(map[string]interface{}); ok {
		if replyID := stringField(raw, "id"); replyID != "" {
			m.ReplyTo = &ReplySnapshot{
				ID:       replyID,
				Content:  stringField(raw, "content"),
				SenderID: stringField(raw, "senderId"),
			}
		}
	}

	m.ReadBy = stringSlice(data["readBy"])
	return m, nil
}

// DecodeReactions keeps only well-formed buckets and enforces one bucket per
// user, first bucket wins.
func DecodeReactions(raw map[string]interface{}) Reactions {
	reactions := Reactions{}
	seen := map[string]bool{}
	for emoji, value := range raw {
		for _, u := range stringSlice(value) {
			if seen[u] {
				continue
			}
			seen[u] = true
			reactions[emoji] = append(reactions[emoji], u)
		}
	}
	if len(reactions) == 0 {
		return nil
	}
	return reactions
}

func stringField(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

func floatField(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func intValue(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func dimensionsField(v interface{}) *Dimensions {
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	return &Dimensions{Width: intValue(raw["width"]), Height: intValue(raw["height"])}
}

func stringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...)
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
