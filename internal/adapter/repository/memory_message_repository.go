package repository

import (
	"context"

	"github.com/google/uuid"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/errors"
)

type memoryMessageRepository struct {
	store *MemoryStore
}

func NewMemoryMessageRepository(store *MemoryStore) repository.MessageRepository {
	return &memoryMessageRepository{store: store}
}

func (r *memoryMessageRepository) Create(ctx context.Context, chatID string, message *entity.Message) (*entity.Message, error) {
	s := r.store
	s.mu.Lock()

	created := message.Clone()
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	col := s.collectionLocked(chatID)
	if _, exists := col[created.ID]; exists {
		s.mu.Unlock()
		return nil, errors.Conflict("Message already exists")
	}
	created.ChatID = chatID
	created.CreatedAt = s.nextTimestampLocked()
	if created.ReadBy == nil {
		created.ReadBy = []string{}
	}

	col[created.ID] = created.Clone()
	s.writes++
	notify := s.snapshotLocked(chatID)
	s.mu.Unlock()

	notify()
	return created, nil
}

func (r *memoryMessageRepository) GetByID(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[chatID][messageID]
	if !ok {
		return nil, errors.NotFound("Message", nil)
	}
	return m.Clone(), nil
}

func (r *memoryMessageRepository) Latest(ctx context.Context, chatID string) (*entity.Message, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *entity.Message
	for _, m := range s.messages[chatID] {
		if latest == nil || m.CreatedAt.After(latest.CreatedAt) {
			latest = m
		}
	}
	if latest == nil {
		return nil, errors.NotFound("Message", nil)
	}
	return latest.Clone(), nil
}

func (r *memoryMessageRepository) ListIncoming(ctx context.Context, chatID, userID string) ([]*entity.Message, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var messages []*entity.Message
	for _, m := range s.messages[chatID] {
		if m.SenderID != userID {
			messages = append(messages, m.Clone())
		}
	}
	return messages, nil
}

func (r *memoryMessageRepository) UpdateStatus(ctx context.Context, chatID, messageID string, status entity.MessageStatus) error {
	s := r.store
	s.mu.Lock()

	m, ok := s.messages[chatID][messageID]
	if !ok {
		s.mu.Unlock()
		return errors.NotFound("Message", nil)
	}
	m.Status = status
	s.writes++
	notify := s.snapshotLocked(chatID)
	s.mu.Unlock()

	notify()
	return nil
}

func (r *memoryMessageRepository) ApplyReceipts(ctx context.Context, chatID string, receipts []repository.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}

	s := r.store
	s.mu.Lock()

	col := s.messages[chatID]
	for _, receipt := range receipts {
		if _, ok := col[receipt.MessageID]; !ok {
			s.mu.Unlock()
			return errors.NotFound("Message", nil)
		}
	}
	for _, receipt := range receipts {
		m := col[receipt.MessageID]
		if receipt.Reader != "" && !m.HasReader(receipt.Reader) {
			m.ReadBy = append(m.ReadBy, receipt.Reader)
		}
		if receipt.Status != "" {
			m.Status = receipt.Status
		}
	}
	s.writes++
	notify := s.snapshotLocked(chatID)
	s.mu.Unlock()

	notify()
	return nil
}

func (r *memoryMessageRepository) UpdateReactions(ctx context.Context, chatID, messageID string, mutate repository.ReactionMutator) (entity.Reactions, error) {
	s := r.store
	s.mu.Lock()

	m, ok := s.messages[chatID][messageID]
	if !ok {
		s.mu.Unlock()
		return nil, errors.NotFound("Message", nil)
	}
	next := mutate(m.Reactions.Clone())
	m.Reactions = next.Clone()
	s.writes++
	notify := s.snapshotLocked(chatID)
	s.mu.Unlock()

	notify()
	return next, nil
}

// Subscribe delivers the current collection before returning, then one
// snapshot per committed write.
func (r *memoryMessageRepository) Subscribe(ctx context.Context, chatID string, onSnapshot repository.SnapshotFunc, onError func(error)) func() {
	s := r.store
	l := &memoryListener{onSnapshot: onSnapshot, onError: onError}

	s.mu.Lock()
	s.nextListener++
	id := s.nextListener
	if s.listeners[chatID] == nil {
		s.listeners[chatID] = make(map[uint64]*memoryListener)
	}
	s.listeners[chatID][id] = l
	s.seq++
	seq := s.seq
	initial := s.sortedLocked(chatID)
	s.mu.Unlock()

	l.deliver(seq, initial)

	done := make(chan struct{})
	stop := func() {
		if l.stopped.Swap(true) {
			return
		}
		close(done)
		s.mu.Lock()
		delete(s.listeners[chatID], id)
		if len(s.listeners[chatID]) == 0 {
			delete(s.listeners, chatID)
		}
		s.mu.Unlock()
	}

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				stop()
			case <-done:
			}
		}()
	}
	return stop
}
