package entity

import "time"

// LastMessage is the denormalized preview copy kept on the chat document. It may
// lag the true latest message when the preview write of a send fails.
type LastMessage struct {
	Content   string         `json:"content" firestore:"content"`
	SenderID  string         `json:"sender_id" firestore:"senderId"`
	Timestamp time.Time      `json:"timestamp" firestore:"timestamp"`
	Type      MessageType    `json:"type" firestore:"type"`
	ReplyTo   *ReplySnapshot `json:"reply_to,omitempty" firestore:"replyTo,omitempty"`
}

type Chat struct {
	ID               string            `json:"id" firestore:"id"`
	ParticipantIDs   []string          `json:"participant_ids" firestore:"participantIds"`
	ParticipantNames map[string]string `json:"participant_names" firestore:"participantNames"`
	LastMessage      *LastMessage      `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	IsTestChat       bool              `json:"is_test_chat" firestore:"isTestChat"`
	UnreadCount      *int              `json:"unread_count,omitempty" firestore:"unreadCount,omitempty"`
	CreatedAt        time.Time         `json:"created_at" firestore:"createdAt"`
	UpdatedAt        time.Time         `json:"updated_at" firestore:"updatedAt"`
}

// OtherParticipant returns the participant that is not userID.
func (c *Chat) OtherParticipant(userID string) string {
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return ""
}

func (c *Chat) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Chat) Clone() *Chat {
	if c == nil {
		return nil
	}
	cp := *c
	cp.ParticipantIDs = append([]string(nil), c.ParticipantIDs...)
	if c.ParticipantNames != nil {
		cp.ParticipantNames = make(map[string]string, len(c.ParticipantNames))
		for k, v := range c.ParticipantNames {
			cp.ParticipantNames[k] = v
		}
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		lm.ReplyTo = c.LastMessage.ReplyTo.Clone()
		cp.LastMessage = &lm
	}
	if c.UnreadCount != nil {
		n := *c.UnreadCount
		cp.UnreadCount = &n
	}
	return &cp
}

// LastMessageFrom builds the chat preview copy of a persisted message.
func LastMessageFrom(m *Message) *LastMessage {
	return &LastMessage{
		Content:   m.Content,
		SenderID:  m.SenderID,
		Timestamp: m.CreatedAt,
		Type:      m.Type,
		ReplyTo:   m.ReplyTo.Clone(),
	}
}
