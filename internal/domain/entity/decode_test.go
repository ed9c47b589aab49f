package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessageFullDocument(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	data := map[string]interface{}{
		"chatId":    "c1",
		"senderId":  "userA",
		"content":   "",
		"type":      "image",
		"status":    "delivered",
		"createdAt": created,
		"mediaUrl":  "https://cdn.example.com/p.jpg",
		"dimensions": map[string]interface{}{
			"width":  int64(640),
			"height": int64(480),
		},
		"galleryItems": []interface{}{
			map[string]interface{}{"type": "image", "url": "https://cdn.example.com/1.jpg"},
			map[string]interface{}{"type": "image"},
			"garbage",
		},
		"reactions": map[string]interface{}{
			"❤️": []interface{}{"userB"},
		},
		"replyTo": map[string]interface{}{"id": "m0", "content": "hi", "senderId": "userB"},
		"readBy":  []interface{}{"userB", 42},
	}

	m, err := DecodeMessage("m1", data)
	require.NoError(t, err)

	assert.Equal(t, MessageTypeImage, m.Type)
	assert.Equal(t, StatusDelivered, m.Status)
	assert.Equal(t, created, m.CreatedAt)
	assert.Equal(t, &Dimensions{Width: 640, Height: 480}, m.Dimensions)
	assert.Len(t, m.GalleryItems, 1)
	assert.Equal(t, []string{"userB"}, m.Reactions["❤️"])
	assert.Equal(t, &ReplySnapshot{ID: "m0", Content: "hi", SenderID: "userB"}, m.ReplyTo)
	assert.Equal(t, []string{"userB"}, m.ReadBy)
}

func TestDecodeMessageMissingCreatedAtIsZero(t *testing.T) {
	m, err := DecodeMessage("m1", map[string]interface{}{
		"senderId":  "userA",
		"content":   "hello",
		"createdAt": "yesterday",
	})
	require.NoError(t, err)

	assert.True(t, m.CreatedAt.IsZero())
	assert.Equal(t, MessageTypeText, m.Type)
	assert.Equal(t, StatusSent, m.Status)
}

func TestDecodeMessageRejectsUntrustedShapes(t *testing.T) {
	_, err := DecodeMessage("m1", map[string]interface{}{"content": "no sender"})
	assert.Error(t, err)

	_, err = DecodeMessage("m2", map[string]interface{}{"senderId": "u", "type": "sticker"})
	assert.Error(t, err)

	_, err = DecodeMessage("m3", map[string]interface{}{"senderId": "u", "type": "video"})
	assert.Error(t, err)

	_, err = DecodeMessage("m4", nil)
	assert.Error(t, err)
}

func TestDecodeReactionsEnforcesSingleBucket(t *testing.T) {
	r := DecodeReactions(map[string]interface{}{
		"❤️": []interface{}{"u1"},
		"😂": []interface{}{"u1", "u2"},
	})

	total := 0
	for _, users := range r {
		for _, u := range users {
			if u == "u1" {
				total++
			}
		}
	}
	assert.Equal(t, 1, total)
	assert.Equal(t, "😂", r.BucketOf("u2"))
}

func TestFieldsIsSparse(t *testing.T) {
	m := &Message{ID: "m1", ChatID: "c1", SenderID: "u", Content: "hi", Type: MessageTypeText, Status: StatusSending}

	fields := m.Fields()

	for _, key := range []string{"mediaUrl", "thumbnailUrl", "duration", "dimensions", "caption", "galleryItems", "reactions", "replyTo", "createdAt"} {
		assert.NotContains(t, fields, key)
	}
	assert.Equal(t, []string{}, fields["readBy"])
	assert.Equal(t, "sending", fields["status"])
}

func TestCloneDoesNotAliasReply(t *testing.T) {
	m := &Message{ReplyTo: &ReplySnapshot{ID: "m0", Content: "original"}, ReadBy: []string{"a"}}
	c := m.Clone()

	c.ReplyTo.Content = "edited"
	c.ReadBy[0] = "b"

	assert.Equal(t, "original", m.ReplyTo.Content)
	assert.Equal(t, "a", m.ReadBy[0])
}
