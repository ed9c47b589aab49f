package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	store "matchchat/internal/adapter/repository"
	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
)

type memoryFixture struct {
	store    *store.MemoryStore
	chats    repository.ChatRepository
	messages repository.MessageRepository
	profiles repository.ProfileRepository
}

func newMemoryFixture(t *testing.T, chatIDs ...string) memoryFixture {
	t.Helper()
	s := store.NewMemoryStore()
	f := memoryFixture{
		store:    s,
		chats:    store.NewMemoryChatRepository(s),
		messages: store.NewMemoryMessageRepository(s),
		profiles: store.NewMemoryProfileRepository(s),
	}
	for _, id := range chatIDs {
		require.NoError(t, f.chats.Create(context.Background(), &entity.Chat{
			ID:             id,
			ParticipantIDs: []string{"alice", "bob"},
			ParticipantNames: map[string]string{
				"alice": "Alice",
				"bob":   "Bob",
			},
		}))
	}
	return f
}

func at(minute int) time.Time {
	return time.Date(2026, 3, 10, 12, minute, 0, 0, time.UTC)
}
