package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchchat/internal/domain/entity"
)

func TestToggleReactionAddMoveRemove(t *testing.T) {
	f := newMemoryFixture(t, "c1")
	f.store.PutMessage("c1", &entity.Message{ID: "m1", SenderID: "bob", Type: entity.MessageTypeText, Content: "hi", CreatedAt: at(1)})
	reactions := NewReactionManager(f.chats, f.messages)
	ctx := context.Background()

	require.True(t, reactions.ToggleReaction(ctx, "c1", "m1", "❤️", "alice"))
	assert.Equal(t, entity.Reactions{"❤️": {"alice"}}, f.store.Message("c1", "m1").Reactions)

	require.True(t, reactions.ToggleReaction(ctx, "c1", "m1", "❤️", "bob"))
	require.True(t, reactions.ToggleReaction(ctx, "c1", "m1", "👍", "alice"))
	assert.Equal(t, entity.Reactions{"❤️": {"bob"}, "👍": {"alice"}}, f.store.Message("c1", "m1").Reactions)

	require.True(t, reactions.ToggleReaction(ctx, "c1", "m1", "👍", "alice"))
	assert.Equal(t, entity.Reactions{"❤️": {"bob"}}, f.store.Message("c1", "m1").Reactions)

	groups := SummarizeReactions(f.store.Message("c1", "m1"), "bob")
	require.Len(t, groups, 1)
	assert.Equal(t, "❤️", groups[0].Emoji)
	assert.Equal(t, 1, groups[0].Count)
	assert.True(t, groups[0].ReactedByViewer)
}

func TestToggleReactionRejects(t *testing.T) {
	f := newMemoryFixture(t, "c1")
	f.store.PutMessage("c1", &entity.Message{ID: "m1", SenderID: "bob", Type: entity.MessageTypeText, Content: "hi", CreatedAt: at(1)})
	reactions := NewReactionManager(f.chats, f.messages)
	ctx := context.Background()
	before := f.store.Writes()

	assert.False(t, reactions.ToggleReaction(ctx, "c1", "m1", " ", "alice"))
	assert.False(t, reactions.ToggleReaction(ctx, "c1", "m1", "❤️", ""))
	assert.False(t, reactions.ToggleReaction(ctx, "c1", "missing", "❤️", "alice"))
	assert.Equal(t, before, f.store.Writes())
}

func TestToggleReactionRequiresParticipant(t *testing.T) {
	f := newMemoryFixture(t, "c1")
	f.store.PutMessage("c1", &entity.Message{ID: "m1", SenderID: "bob", Type: entity.MessageTypeText, Content: "hi", CreatedAt: at(1)})
	f.store.PutMessage("ghost", &entity.Message{ID: "m1", SenderID: "bob", Type: entity.MessageTypeText, Content: "hi", CreatedAt: at(1)})
	reactions := NewReactionManager(f.chats, f.messages)
	ctx := context.Background()
	before := f.store.Writes()

	assert.False(t, reactions.ToggleReaction(ctx, "c1", "m1", "❤️", "mallory"))
	assert.False(t, reactions.ToggleReaction(ctx, "ghost", "m1", "❤️", "alice"))

	assert.Equal(t, before, f.store.Writes())
	assert.Empty(t, f.store.Message("c1", "m1").Reactions)
	assert.Empty(t, f.store.Message("ghost", "m1").Reactions)
}

func TestSummarizeReactionsNilMessage(t *testing.T) {
	assert.Nil(t, SummarizeReactions(nil, "alice"))
}
