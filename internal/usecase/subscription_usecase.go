package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/logger"
)

// FeedFunc receives the complete ordered message list on every change. It is a
// full replace, never a diff.
type FeedFunc func(messages []*entity.Message)

// SubscriptionManager keeps at most one live message feed per chat.
type SubscriptionManager struct {
	messageRepo repository.MessageRepository
	now         func() time.Time
	log         *zap.SugaredLogger

	mu    sync.Mutex
	feeds map[string]*feed
}

type feed struct {
	chatID     string
	onMessages FeedFunc

	mu     sync.Mutex
	stop   func()
	closed bool
}

func NewSubscriptionManager(messageRepo repository.MessageRepository) *SubscriptionManager {
	return &SubscriptionManager{
		messageRepo: messageRepo,
		now:         time.Now,
		log:         logger.Named("subscriptions"),
		feeds:       make(map[string]*feed),
	}
}

// Subscribe attaches a live feed for chatID, replacing any feed this manager
// already holds for the same chat. The returned unsubscribe is idempotent.
func (m *SubscriptionManager) Subscribe(ctx context.Context, chatID string, onMessages FeedFunc) (unsubscribe func()) {
	if chatID == "" || onMessages == nil {
		m.log.Warnw("Subscribe rejected", "chat_id", chatID, "has_callback", onMessages != nil)
		return func() {}
	}

	f := &feed{chatID: chatID, onMessages: onMessages}

	m.mu.Lock()
	previous := m.feeds[chatID]
	m.feeds[chatID] = f
	m.mu.Unlock()

	if previous != nil {
		previous.close()
		m.log.Debugw("Replaced existing listener", "chat_id", chatID)
	}

	stop := m.messageRepo.Subscribe(ctx, chatID,
		func(messages []*entity.Message) {
			m.deliver(f, messages)
		},
		func(err error) {
			m.log.Errorw("Message listener failed", "chat_id", chatID, "error", err)
			m.deliver(f, nil)
		},
	)
	f.attach(stop)

	return func() {
		f.close()
		m.mu.Lock()
		if m.feeds[chatID] == f {
			delete(m.feeds, chatID)
		}
		m.mu.Unlock()
	}
}

// Active reports whether a feed is attached for chatID.
func (m *SubscriptionManager) Active(chatID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.feeds[chatID]
	return ok
}

// Close detaches every feed.
func (m *SubscriptionManager) Close() {
	m.mu.Lock()
	feeds := m.feeds
	m.feeds = make(map[string]*feed)
	m.mu.Unlock()

	for _, f := range feeds {
		f.close()
	}
}

func (m *SubscriptionManager) deliver(f *feed, messages []*entity.Message) {
	if !f.active() {
		return
	}

	ordered := m.order(f.chatID, messages)

	defer func() {
		if r := recover(); r != nil {
			m.log.Errorw("Feed callback panicked", "chat_id", f.chatID, "panic", r)
		}
	}()
	f.onMessages(ordered)
}

// order sorts by createdAt ascending. Messages without a usable createdAt are
// stamped with the current time so the feed still renders; this can place an
// old message after newer ones.
func (m *SubscriptionManager) order(chatID string, messages []*entity.Message) []*entity.Message {
	ordered := make([]*entity.Message, 0, len(messages))
	now := m.now()
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		if msg.CreatedAt.IsZero() {
			m.log.Warnw("Message missing createdAt, using fallback timestamp", "chat_id", chatID, "message_id", msg.ID)
			msg.CreatedAt = now
		}
		ordered = append(ordered, msg)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})
	return ordered
}

func (f *feed) attach(stop func()) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		stop()
		return
	}
	f.stop = stop
	f.mu.Unlock()
}

func (f *feed) close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	stop := f.stop
	f.stop = nil
	f.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (f *feed) active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}
