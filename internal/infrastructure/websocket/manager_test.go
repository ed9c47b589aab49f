package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	store "matchchat/internal/adapter/repository"
	"matchchat/internal/domain/entity"
	"matchchat/internal/infrastructure/ratelimit"
	"matchchat/internal/usecase"
)

type feedFrame struct {
	Type   string          `json:"type"`
	ChatID string          `json:"chat_id"`
	Data   json.RawMessage `json:"data"`
}

type wsFixture struct {
	store   *store.MemoryStore
	manager *Manager
	server  *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	s := store.NewMemoryStore()
	chats := store.NewMemoryChatRepository(s)
	messages := store.NewMemoryMessageRepository(s)
	require.NoError(t, chats.Create(context.Background(), &entity.Chat{ID: "c1", ParticipantIDs: []string{"alice", "bob"}}))

	identity := usecase.ContextIdentity{}
	dispatcher := NewDispatcher(
		usecase.NewMessageSender(chats, messages, identity),
		usecase.NewReadReceiptTracker(chats, messages, identity),
		usecase.NewReactionManager(chats, messages),
		ratelimit.NewRateLimiter(ratelimit.Policy{Limit: rate.Inf}),
	)
	manager := NewManager(chats, messages, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	manager.Start(ctx)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		manager.Serve(r.Context(), conn, r.URL.Query().Get("uid"), "c1")
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})

	return &wsFixture{store: s, manager: manager, server: server}
}

func (f *wsFixture) dial(t *testing.T, uid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?uid=" + uid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil returns the first frame of frameType accepted by match.
func readUntil(t *testing.T, conn *websocket.Conn, frameType string, match func(feedFrame) bool) feedFrame {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		var frame feedFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == frameType && (match == nil || match(frame)) {
			return frame
		}
	}
}

func decodeMessages(t *testing.T, frame feedFrame) []MessageData {
	t.Helper()
	var messages []MessageData
	require.NoError(t, json.Unmarshal(frame.Data, &messages))
	return messages
}

func TestServeStreamsInitialSnapshot(t *testing.T) {
	f := newWSFixture(t)
	f.store.PutMessage("c1", &entity.Message{ID: "m1", SenderID: "bob", Type: entity.MessageTypeText, Content: "hi", Status: entity.StatusSent, CreatedAt: time.Now()})

	conn := f.dial(t, "alice")
	frame := readUntil(t, conn, FrameMessages, nil)

	assert.Equal(t, "c1", frame.ChatID)
	messages := decodeMessages(t, frame)
	require.Len(t, messages, 1)
	assert.Equal(t, "hi", messages[0].Content)
}

func TestServeSendAndStream(t *testing.T) {
	f := newWSFixture(t)
	alice := f.dial(t, "alice")
	bob := f.dial(t, "bob")
	readUntil(t, alice, FrameMessages, nil)
	readUntil(t, bob, FrameMessages, nil)

	require.NoError(t, alice.WriteJSON(map[string]interface{}{
		"type": FrameSendMessage,
		"data": map[string]string{"temp_id": "t1", "content": "Hello"},
	}))

	result := readUntil(t, alice, FrameSendResult, nil)
	var sent SendResultData
	require.NoError(t, json.Unmarshal(result.Data, &sent))
	assert.True(t, sent.OK)
	assert.Equal(t, "t1", sent.TempID)
	assert.NotEmpty(t, sent.MessageID)

	frame := readUntil(t, bob, FrameMessages, func(fr feedFrame) bool {
		messages := decodeMessages(t, fr)
		return len(messages) == 1 && messages[0].Status == entity.StatusSent
	})
	messages := decodeMessages(t, frame)
	assert.Equal(t, "Hello", messages[0].Content)
	assert.Equal(t, "alice", messages[0].SenderID)

	require.NoError(t, bob.WriteJSON(map[string]string{"type": FrameMarkRead}))
	receipt := readUntil(t, bob, FrameReceipt, nil)
	var ack ResultData
	require.NoError(t, json.Unmarshal(receipt.Data, &ack))
	assert.True(t, ack.OK)

	assert.Equal(t, []string{"bob"}, f.store.Message("c1", sent.MessageID).ReadBy)
}

func TestServeToggleReaction(t *testing.T) {
	f := newWSFixture(t)
	f.store.PutMessage("c1", &entity.Message{ID: "m1", SenderID: "bob", Type: entity.MessageTypeText, Content: "hi", Status: entity.StatusSent, CreatedAt: time.Now()})
	alice := f.dial(t, "alice")
	readUntil(t, alice, FrameMessages, nil)

	require.NoError(t, alice.WriteJSON(map[string]interface{}{
		"type": FrameToggleReaction,
		"data": map[string]string{"message_id": "m1", "emoji": "🔥"},
	}))

	frame := readUntil(t, alice, FrameMessages, func(fr feedFrame) bool {
		messages := decodeMessages(t, fr)
		return len(messages) == 1 && len(messages[0].ReactionGroups) == 1
	})
	group := decodeMessages(t, frame)[0].ReactionGroups[0]
	assert.Equal(t, "🔥", group.Emoji)
	assert.True(t, group.ReactedByViewer)
}

func TestServeRejectsUnknownFrames(t *testing.T) {
	f := newWSFixture(t)
	alice := f.dial(t, "alice")
	readUntil(t, alice, FrameMessages, nil)

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("not json")))
	readUntil(t, alice, FrameError, nil)

	require.NoError(t, alice.WriteJSON(map[string]string{"type": "typing"}))
	readUntil(t, alice, FrameError, nil)

	require.NoError(t, alice.WriteJSON(map[string]string{"type": FramePing}))
	readUntil(t, alice, FramePong, nil)
}

func TestDisconnectDetachesFeed(t *testing.T) {
	f := newWSFixture(t)
	alice := f.dial(t, "alice")
	readUntil(t, alice, FrameMessages, nil)

	assert.Eventually(t, func() bool { return f.manager.Count("c1") == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, f.store.ListenerCount("c1"))

	alice.Close()

	assert.Eventually(t, func() bool {
		return f.manager.Count("c1") == 0 && f.store.ListenerCount("c1") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeClosesFeedForNonParticipant(t *testing.T) {
	f := newWSFixture(t)
	f.store.PutMessage("c1", &entity.Message{ID: "m1", SenderID: "bob", Type: entity.MessageTypeText, Content: "private", Status: entity.StatusSent, CreatedAt: time.Now()})
	mallory := f.dial(t, "mallory")

	require.NoError(t, mallory.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := mallory.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation))

	assert.Equal(t, 0, f.manager.Count("c1"))
	assert.Equal(t, 0, f.store.ListenerCount("c1"))
}
