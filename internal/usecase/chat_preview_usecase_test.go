package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository/mocks"
	"matchchat/pkg/errors"
)

type recordingPrefetcher struct {
	mu   sync.Mutex
	urls []string
	done chan struct{}
}

func (p *recordingPrefetcher) Prefetch(ctx context.Context, urls []string) {
	p.mu.Lock()
	p.urls = append(p.urls, urls...)
	p.mu.Unlock()
	close(p.done)
}

func TestClassifyLastMessage(t *testing.T) {
	tests := []struct {
		name     string
		last     *entity.LastMessage
		text     string
		vitality Vitality
	}{
		{"no message", nil, "No messages yet", VitalityText},
		{"text", &entity.LastMessage{Type: entity.MessageTypeText, Content: "hey"}, "hey", VitalityText},
		{"image", &entity.LastMessage{Type: entity.MessageTypeImage, Content: "caption"}, "Sent a photo", VitalityImage},
		{"video", &entity.LastMessage{Type: entity.MessageTypeVideo}, "Sent a video", VitalityVideo},
		{"audio", &entity.LastMessage{Type: entity.MessageTypeAudio}, "Sent a voice message", VitalityAudio},
		{"system", &entity.LastMessage{Type: entity.MessageTypeSystem, Content: "Chat created"}, "Chat created", VitalityText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, vitality := ClassifyLastMessage(tt.last)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.vitality, vitality)
		})
	}
}

func TestFormatRelativeTime(t *testing.T) {
	// Tuesday.
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"two hours", now.Add(-2 * time.Hour), "1:00 PM"},
		{"just now", now.Add(-30 * time.Second), "2:59 PM"},
		{"thirty hours", now.Add(-30 * time.Hour), "Yesterday"},
		{"three days", now.Add(-72 * time.Hour), "Saturday"},
		{"ten days", now.Add(-240 * time.Hour), "Feb 28, 2026"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRelativeTime(tt.ts, now))
		})
	}
}

func TestBuildPreviews(t *testing.T) {
	chatRepo := new(mocks.ChatRepository)
	profileRepo := new(mocks.ProfileRepository)
	aggregator := NewChatPreviewAggregator(chatRepo, profileRepo, StaticIdentity("alice"), nil, 0)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	aggregator.now = func() time.Time { return now }

	profileRepo.On("GetProfile", mock.Anything, "bob").
		Return(&entity.Profile{UserID: "bob", DisplayName: "Bobby", Photos: []string{"", "https://cdn.example.com/bob.jpg"}}, nil)
	profileRepo.On("GetProfile", mock.Anything, "carol").
		Return(nil, errors.NotFound("Profile", nil))

	zero := 0
	chats := []*entity.Chat{
		{
			ID:             "c1",
			ParticipantIDs: []string{"alice", "bob"},
			LastMessage:    &entity.LastMessage{Type: entity.MessageTypeVideo, SenderID: "bob", Timestamp: now.Add(-time.Hour)},
		},
		nil,
		{
			ID:               "c2",
			ParticipantIDs:   []string{"carol", "alice"},
			ParticipantNames: map[string]string{"carol": "Carol"},
			LastMessage:      &entity.LastMessage{Type: entity.MessageTypeText, Content: "ok", SenderID: "carol", Timestamp: now.Add(-30 * time.Hour)},
			UnreadCount:      &zero,
			IsTestChat:       true,
		},
		{
			ID:             "c3",
			ParticipantIDs: []string{"alice", "bob"},
			UpdatedAt:      now.Add(-10 * 24 * time.Hour),
		},
	}

	previews := aggregator.Build(context.Background(), "alice", chats)
	require.Len(t, previews, 3)

	assert.Equal(t, "c1", previews[0].ChatID)
	assert.Equal(t, "bob", previews[0].OtherUserID)
	assert.Equal(t, "Bobby", previews[0].DisplayName)
	assert.Equal(t, "https://cdn.example.com/bob.jpg", previews[0].AvatarURL)
	assert.Equal(t, "Sent a video", previews[0].LastMessageText)
	assert.Equal(t, VitalityVideo, previews[0].Vitality)
	assert.True(t, previews[0].Unread)
	assert.Equal(t, "2:00 PM", previews[0].Timestamp)

	assert.Equal(t, "c2", previews[1].ChatID)
	assert.Equal(t, "Carol (Test)", previews[1].DisplayName)
	assert.Equal(t, "ok", previews[1].LastMessageText)
	assert.False(t, previews[1].Unread)
	assert.Equal(t, "Yesterday", previews[1].Timestamp)
	assert.True(t, previews[1].IsTestChat)

	assert.Equal(t, "c3", previews[2].ChatID)
	assert.Equal(t, "No messages yet", previews[2].LastMessageText)
	assert.False(t, previews[2].Unread)
	assert.Equal(t, "Feb 28, 2026", previews[2].Timestamp)

	profileRepo.AssertNumberOfCalls(t, "GetProfile", 2)
}

func TestProfileLookupsAreCached(t *testing.T) {
	chatRepo := new(mocks.ChatRepository)
	profileRepo := new(mocks.ProfileRepository)
	aggregator := NewChatPreviewAggregator(chatRepo, profileRepo, StaticIdentity("alice"), nil, 0)

	profileRepo.On("GetProfile", mock.Anything, "bob").Return(&entity.Profile{UserID: "bob", Name: "Bob"}, nil)

	var chats []*entity.Chat
	for i := 0; i < 20; i++ {
		chats = append(chats, &entity.Chat{ID: "c" + string(rune('a'+i)), ParticipantIDs: []string{"alice", "bob"}})
	}

	aggregator.Build(context.Background(), "alice", chats)
	previews := aggregator.Build(context.Background(), "alice", chats)

	require.Len(t, previews, 20)
	assert.Equal(t, "Bob", previews[19].DisplayName)
	profileRepo.AssertNumberOfCalls(t, "GetProfile", 1)

	aggregator.InvalidateProfile("bob")
	aggregator.Build(context.Background(), "alice", chats[:1])
	profileRepo.AssertNumberOfCalls(t, "GetProfile", 2)
}

func TestFailedProfileLookupsAreRetried(t *testing.T) {
	chatRepo := new(mocks.ChatRepository)
	profileRepo := new(mocks.ProfileRepository)
	aggregator := NewChatPreviewAggregator(chatRepo, profileRepo, StaticIdentity("alice"), nil, 0)

	profileRepo.On("GetProfile", mock.Anything, "bob").Return(nil, errors.Persistence("unavailable", nil)).Once()
	profileRepo.On("GetProfile", mock.Anything, "bob").Return(&entity.Profile{UserID: "bob", Name: "Bob"}, nil).Once()

	chats := []*entity.Chat{{ID: "c1", ParticipantIDs: []string{"alice", "bob"}, ParticipantNames: map[string]string{"bob": "B."}}}

	first := aggregator.Build(context.Background(), "alice", chats)
	second := aggregator.Build(context.Background(), "alice", chats)

	assert.Equal(t, "B.", first[0].DisplayName)
	assert.Equal(t, "Bob", second[0].DisplayName)
	profileRepo.AssertExpectations(t)
}

func TestListPreviewsFailureYieldsEmpty(t *testing.T) {
	chatRepo := new(mocks.ChatRepository)
	profileRepo := new(mocks.ProfileRepository)
	aggregator := NewChatPreviewAggregator(chatRepo, profileRepo, StaticIdentity("alice"), nil, 0)

	chatRepo.On("ListByParticipant", mock.Anything, "alice").Return(nil, errors.Persistence("unavailable", nil))

	previews := aggregator.ListPreviews(context.Background())
	assert.NotNil(t, previews)
	assert.Empty(t, previews)

	anonymous := NewChatPreviewAggregator(chatRepo, profileRepo, StaticIdentity(""), nil, 0)
	assert.Empty(t, anonymous.ListPreviews(context.Background()))
	chatRepo.AssertNumberOfCalls(t, "ListByParticipant", 1)
}

func TestListPreviewsFromMemoryStore(t *testing.T) {
	f := newMemoryFixture(t, "c1")
	f.store.PutProfile(&entity.Profile{UserID: "bob", DisplayName: "Bob B"})
	sender := NewMessageSender(f.chats, f.messages, StaticIdentity("bob"))
	require.True(t, sender.Send(context.Background(), "c1", SendPayload{Type: entity.MessageTypeAudio, MediaURL: "https://cdn.example.com/a.m4a", Duration: 4}))

	aggregator := NewChatPreviewAggregator(f.chats, f.profiles, StaticIdentity("alice"), nil, 0)
	previews := aggregator.ListPreviews(context.Background())

	require.Len(t, previews, 1)
	assert.Equal(t, "Bob B", previews[0].DisplayName)
	assert.Equal(t, "Sent a voice message", previews[0].LastMessageText)
	assert.Equal(t, VitalityAudio, previews[0].Vitality)
	assert.True(t, previews[0].Unread)
}

func TestFocusPrefetchesFirstAvatars(t *testing.T) {
	chatRepo := new(mocks.ChatRepository)
	profileRepo := new(mocks.ProfileRepository)
	prefetcher := &recordingPrefetcher{done: make(chan struct{})}
	aggregator := NewChatPreviewAggregator(chatRepo, profileRepo, StaticIdentity("alice"), prefetcher, 2)

	chatRepo.On("ListByParticipant", mock.Anything, "alice").Return([]*entity.Chat{
		{ID: "c1", ParticipantIDs: []string{"alice", "u1"}},
		{ID: "c2", ParticipantIDs: []string{"alice", "u2"}},
		{ID: "c3", ParticipantIDs: []string{"alice", "u3"}},
	}, nil)
	for _, id := range []string{"u1", "u2", "u3"} {
		profileRepo.On("GetProfile", mock.Anything, id).
			Return(&entity.Profile{UserID: id, Name: id, Photos: []string{"https://cdn.example.com/" + id + ".jpg"}}, nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	previews := aggregator.Focus(ctx)
	cancel()
	require.Len(t, previews, 3)

	select {
	case <-prefetcher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("prefetch did not run")
	}
	prefetcher.mu.Lock()
	defer prefetcher.mu.Unlock()
	assert.Equal(t, []string{"https://cdn.example.com/u1.jpg", "https://cdn.example.com/u2.jpg"}, prefetcher.urls)
}
