package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchchat/internal/domain/entity"
)

type feedRecorder struct {
	mu        sync.Mutex
	snapshots [][]*entity.Message
}

func (r *feedRecorder) record(messages []*entity.Message) {
	r.mu.Lock()
	r.snapshots = append(r.snapshots, messages)
	r.mu.Unlock()
}

func (r *feedRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *feedRecorder) last() []*entity.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snapshots) == 0 {
		return nil
	}
	return r.snapshots[len(r.snapshots)-1]
}

func ids(messages []*entity.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ID)
	}
	return out
}

func TestSubscribeOrdersByCreatedAt(t *testing.T) {
	f := newMemoryFixture(t, "c1")
	manager := NewSubscriptionManager(f.messages)
	manager.now = func() time.Time { return at(59) }

	// Document ids sort opposite to createdAt.
	f.store.PutMessage("c1", &entity.Message{ID: "a", SenderID: "bob", Type: entity.MessageTypeText, Content: "3", CreatedAt: at(3)})
	f.store.PutMessage("c1", &entity.Message{ID: "b", SenderID: "bob", Type: entity.MessageTypeText, Content: "2", CreatedAt: at(2)})
	f.store.PutMessage("c1", &entity.Message{ID: "c", SenderID: "alice", Type: entity.MessageTypeText, Content: "1", CreatedAt: at(1)})

	rec := &feedRecorder{}
	unsubscribe := manager.Subscribe(context.Background(), "c1", rec.record)
	defer unsubscribe()

	require.Equal(t, 1, rec.count())
	assert.Equal(t, []string{"c", "b", "a"}, ids(rec.last()))

	f.store.PutMessage("c1", &entity.Message{ID: "0-pending", SenderID: "bob", Type: entity.MessageTypeText, Content: "late"})

	latest := rec.last()
	assert.Equal(t, []string{"c", "b", "a", "0-pending"}, ids(latest))
	assert.Equal(t, at(59), latest[3].CreatedAt)
}

func TestSubscribeDeliversFullListOnEveryChange(t *testing.T) {
	f := newMemoryFixture(t, "c1")
	manager := NewSubscriptionManager(f.messages)
	sender := NewMessageSender(f.chats, f.messages, StaticIdentity("alice"))
	ctx := context.Background()

	rec := &feedRecorder{}
	unsubscribe := manager.Subscribe(ctx, "c1", rec.record)
	defer unsubscribe()

	require.Equal(t, 1, rec.count())
	assert.Empty(t, rec.last())

	require.True(t, sender.Send(ctx, "c1", SendPayload{Type: entity.MessageTypeText, Content: "one"}))
	require.True(t, sender.Send(ctx, "c1", SendPayload{Type: entity.MessageTypeText, Content: "two"}))

	latest := rec.last()
	require.Len(t, latest, 2)
	assert.Equal(t, "one", latest[0].Content)
	assert.Equal(t, "two", latest[1].Content)
	assert.Equal(t, entity.StatusSent, latest[1].Status)
}

func TestSubscribeReplacesPreviousFeed(t *testing.T) {
	f := newMemoryFixture(t, "c1")
	manager := NewSubscriptionManager(f.messages)
	ctx := context.Background()

	first := &feedRecorder{}
	second := &feedRecorder{}
	manager.Subscribe(ctx, "c1", first.record)
	unsubscribe := manager.Subscribe(ctx, "c1", second.record)

	assert.Equal(t, 1, f.store.ListenerCount("c1"))

	f.store.PutMessage("c1", &entity.Message{ID: "m1", SenderID: "bob", Type: entity.MessageTypeText, Content: "hi", CreatedAt: at(1)})

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 2, second.count())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, f.store.ListenerCount("c1"))
	assert.False(t, manager.Active("c1"))

	f.store.PutMessage("c1", &entity.Message{ID: "m2", SenderID: "bob", Type: entity.MessageTypeText, Content: "again", CreatedAt: at(2)})
	assert.Equal(t, 2, second.count())
}

func TestStaleUnsubscribeKeepsReplacement(t *testing.T) {
	f := newMemoryFixture(t, "c1")
	manager := NewSubscriptionManager(f.messages)
	ctx := context.Background()

	stale := manager.Subscribe(ctx, "c1", func([]*entity.Message) {})
	current := &feedRecorder{}
	manager.Subscribe(ctx, "c1", current.record)

	stale()

	assert.True(t, manager.Active("c1"))
	assert.Equal(t, 1, f.store.ListenerCount("c1"))
}

func TestSubscribeListenerErrorYieldsEmptyList(t *testing.T) {
	f := newMemoryFixture(t, "c1")
	manager := NewSubscriptionManager(f.messages)
	f.store.PutMessage("c1", &entity.Message{ID: "m1", SenderID: "bob", Type: entity.MessageTypeText, Content: "hi", CreatedAt: at(1)})

	rec := &feedRecorder{}
	unsubscribe := manager.Subscribe(context.Background(), "c1", rec.record)
	defer unsubscribe()
	require.Len(t, rec.last(), 1)

	f.store.FailListeners("c1", errors.New("permission denied"))

	require.Equal(t, 2, rec.count())
	assert.NotNil(t, rec.last())
	assert.Empty(t, rec.last())
}

func TestSubscribeRecoversFromCallbackPanic(t *testing.T) {
	f := newMemoryFixture(t, "c1")
	manager := NewSubscriptionManager(f.messages)

	calls := 0
	unsubscribe := manager.Subscribe(context.Background(), "c1", func([]*entity.Message) {
		calls++
		panic("render failed")
	})
	defer unsubscribe()

	assert.NotPanics(t, func() {
		f.store.PutMessage("c1", &entity.Message{ID: "m1", SenderID: "bob", Type: entity.MessageTypeText, Content: "hi", CreatedAt: at(1)})
	})
	assert.Equal(t, 2, calls)
}

func TestSubscribeRejectsBadArguments(t *testing.T) {
	f := newMemoryFixture(t, "c1")
	manager := NewSubscriptionManager(f.messages)

	manager.Subscribe(context.Background(), "", func([]*entity.Message) {})()
	manager.Subscribe(context.Background(), "c1", nil)()

	assert.Equal(t, 0, f.store.ListenerCount("c1"))
	assert.False(t, manager.Active("c1"))
}

func TestCloseDetachesAllFeeds(t *testing.T) {
	f := newMemoryFixture(t, "c1", "c2")
	manager := NewSubscriptionManager(f.messages)
	ctx := context.Background()

	manager.Subscribe(ctx, "c1", func([]*entity.Message) {})
	manager.Subscribe(ctx, "c2", func([]*entity.Message) {})

	manager.Close()

	assert.Equal(t, 0, f.store.ListenerCount("c1"))
	assert.Equal(t, 0, f.store.ListenerCount("c2"))
	assert.False(t, manager.Active("c1"))
}
