package repository

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
)

// MemoryStore is a process-local document store with the same per-document and
// batch atomicity the repositories promise. Listeners are notified
// synchronously after each committed write, outside the store lock.
type MemoryStore struct {
	mu  sync.Mutex
	now func() time.Time

	chats    map[string]*entity.Chat
	messages map[string]map[string]*entity.Message
	profiles map[string]*entity.Profile

	listeners    map[string]map[uint64]*memoryListener
	nextListener uint64
	seq          uint64
	lastCreated  time.Time

	writes int
}

type memoryListener struct {
	onSnapshot repository.SnapshotFunc
	onError    func(error)
	stopped    atomic.Bool
	lastSeq    atomic.Uint64
}

func (l *memoryListener) deliver(seq uint64, messages []*entity.Message) {
	if l.stopped.Load() {
		return
	}
	for {
		last := l.lastSeq.Load()
		if seq <= last {
			return
		}
		if l.lastSeq.CompareAndSwap(last, seq) {
			break
		}
	}
	l.onSnapshot(messages)
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:       time.Now,
		chats:     make(map[string]*entity.Chat),
		messages:  make(map[string]map[string]*entity.Message),
		profiles:  make(map[string]*entity.Profile),
		listeners: make(map[string]map[uint64]*memoryListener),
	}
}

// WithClock replaces the clock used for store-assigned timestamps.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// PutProfile seeds a user profile.
func (s *MemoryStore) PutProfile(profile *entity.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *profile
	p.Photos = append([]string(nil), profile.Photos...)
	s.profiles[profile.UserID] = &p
}

// PutMessage stores a message document verbatim, including its createdAt,
// which may be zero to model a document written without one.
func (s *MemoryStore) PutMessage(chatID string, message *entity.Message) {
	s.mu.Lock()
	m := message.Clone()
	m.ChatID = chatID
	s.collectionLocked(chatID)[m.ID] = m
	s.writes++
	notify := s.snapshotLocked(chatID)
	s.mu.Unlock()
	notify()
}

// FailListeners reports err to every listener on chatID, as a broken backend
// stream would.
func (s *MemoryStore) FailListeners(chatID string, err error) {
	s.mu.Lock()
	var ls []*memoryListener
	for _, l := range s.listeners[chatID] {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, l := range ls {
		if !l.stopped.Load() {
			l.onError(err)
		}
	}
}

// Writes counts committed mutations.
func (s *MemoryStore) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *MemoryStore) MessageCount(chatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[chatID])
}

func (s *MemoryStore) Message(chatID, messageID string) *entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages[chatID][messageID].Clone()
}

func (s *MemoryStore) Chat(chatID string) *entity.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chats[chatID].Clone()
}

func (s *MemoryStore) ListenerCount(chatID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners[chatID])
}

func (s *MemoryStore) collectionLocked(chatID string) map[string]*entity.Message {
	col, ok := s.messages[chatID]
	if !ok {
		col = make(map[string]*entity.Message)
		s.messages[chatID] = col
	}
	return col
}

// nextTimestampLocked returns a strictly increasing store timestamp.
func (s *MemoryStore) nextTimestampLocked() time.Time {
	ts := s.now()
	if !ts.After(s.lastCreated) {
		ts = s.lastCreated.Add(time.Microsecond)
	}
	s.lastCreated = ts
	return ts
}

// snapshotLocked captures the chat's messages for every listener and returns
// the delivery to run once the lock is released.
func (s *MemoryStore) snapshotLocked(chatID string) func() {
	if len(s.listeners[chatID]) == 0 {
		return func() {}
	}
	s.seq++
	seq := s.seq

	type delivery struct {
		listener *memoryListener
		messages []*entity.Message
	}
	deliveries := make([]delivery, 0, len(s.listeners[chatID]))
	for _, l := range s.listeners[chatID] {
		deliveries = append(deliveries, delivery{listener: l, messages: s.sortedLocked(chatID)})
	}

	return func() {
		for _, d := range deliveries {
			d.listener.deliver(seq, d.messages)
		}
	}
}

// sortedLocked clones the chat's messages in document-id order, which is
// unrelated to createdAt.
func (s *MemoryStore) sortedLocked(chatID string) []*entity.Message {
	ids := make([]string, 0, len(s.messages[chatID]))
	for id := range s.messages[chatID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	messages := make([]*entity.Message, 0, len(ids))
	for _, id := range ids {
		messages = append(messages, s.messages[chatID][id].Clone())
	}
	return messages
}
