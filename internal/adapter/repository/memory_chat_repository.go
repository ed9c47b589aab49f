package repository

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/errors"
)

type memoryChatRepository struct {
	store *MemoryStore
}

func NewMemoryChatRepository(store *MemoryStore) repository.ChatRepository {
	return &memoryChatRepository{store: store}
}

func (r *memoryChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}
	if _, exists := s.chats[chat.ID]; exists {
		return errors.Conflict("Chat already exists")
	}

	now := s.now()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	chat.UpdatedAt = now

	s.chats[chat.ID] = chat.Clone()
	s.writes++
	return nil
}

func (r *memoryChatRepository) CreateWithSeed(ctx context.Context, chat *entity.Chat, seed *entity.Message) (*entity.Message, error) {
	s := r.store
	s.mu.Lock()

	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}
	created := seed.Clone()
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if _, exists := s.chats[chat.ID]; exists {
		s.mu.Unlock()
		return nil, errors.Conflict("Chat already exists")
	}
	if _, exists := s.messages[chat.ID][created.ID]; exists {
		s.mu.Unlock()
		return nil, errors.Conflict("Message already exists")
	}

	created.ChatID = chat.ID
	created.CreatedAt = s.nextTimestampLocked()
	if created.ReadBy == nil {
		created.ReadBy = []string{}
	}

	now := s.now()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	chat.UpdatedAt = now
	chat.LastMessage = entity.LastMessageFrom(created)

	s.chats[chat.ID] = chat.Clone()
	s.collectionLocked(chat.ID)[created.ID] = created.Clone()
	s.writes++
	notify := s.snapshotLocked(chat.ID)
	s.mu.Unlock()

	notify()
	return created, nil
}

func (r *memoryChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	return chat.Clone(), nil
}

func (r *memoryChatRepository) Exists(ctx context.Context, id string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.chats[id]
	return ok, nil
}

func (r *memoryChatRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Chat, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var chats []*entity.Chat
	for _, chat := range s.chats {
		if chat.HasParticipant(userID) {
			chats = append(chats, chat.Clone())
		}
	}
	sort.Slice(chats, func(i, j int) bool {
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
	return chats, nil
}

func (r *memoryChatRepository) UpdateLastMessage(ctx context.Context, chatID string, last *entity.LastMessage) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[chatID]
	if !ok {
		return errors.NotFound("Chat", nil)
	}
	lm := *last
	lm.ReplyTo = last.ReplyTo.Clone()
	chat.LastMessage = &lm
	chat.UpdatedAt = s.now()
	s.writes++
	return nil
}

func (r *memoryChatRepository) DeleteWithMessages(ctx context.Context, chatID string) error {
	s := r.store
	s.mu.Lock()
	delete(s.messages, chatID)
	delete(s.chats, chatID)
	s.writes++
	notify := s.snapshotLocked(chatID)
	s.mu.Unlock()

	notify()
	return nil
}
