package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/logger"
)

// Vitality tells the chat list which icon to show next to the last message.
type Vitality int

const (
	VitalityText  Vitality = 1
	VitalityImage Vitality = 2
	VitalityVideo Vitality = 3
	VitalityAudio Vitality = 4
)

const (
	testChatSuffix     = " (Test)"
	unknownDisplayName = "Unknown"
	noMessagesYet      = "No messages yet"

	previewConcurrency = 8
)

type ChatPreview struct {
	ChatID          string    `json:"chat_id"`
	OtherUserID     string    `json:"other_user_id"`
	DisplayName     string    `json:"display_name"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	LastMessageText string    `json:"last_message_text"`
	Vitality        Vitality  `json:"vitality"`
	Unread          bool      `json:"unread"`
	Timestamp       string    `json:"timestamp"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	IsTestChat      bool      `json:"is_test_chat"`
}

type ChatPreviewAggregator struct {
	chatRepo      repository.ChatRepository
	profileRepo   repository.ProfileRepository
	identity      Identity
	prefetcher    AvatarPrefetcher
	prefetchCount int
	now           func() time.Time

	mu       sync.RWMutex
	profiles map[string]*entity.Profile
	lookups  singleflight.Group
}

func NewChatPreviewAggregator(
	chatRepo repository.ChatRepository,
	profileRepo repository.ProfileRepository,
	identity Identity,
	prefetcher AvatarPrefetcher,
	prefetchCount int,
) *ChatPreviewAggregator {
	return &ChatPreviewAggregator{
		chatRepo:      chatRepo,
		profileRepo:   profileRepo,
		identity:      identity,
		prefetcher:    prefetcher,
		prefetchCount: prefetchCount,
		now:           time.Now,
		profiles:      make(map[string]*entity.Profile),
	}
}

// ListPreviews loads the current user's chats and summarizes them. Failures
// yield an empty list.
func (a *ChatPreviewAggregator) ListPreviews(ctx context.Context) []ChatPreview {
	userID := a.identity.CurrentUserID(ctx)
	if userID == "" {
		logger.Warn("ListPreviews rejected: no authenticated user")
		return []ChatPreview{}
	}

	chats, err := a.chatRepo.ListByParticipant(ctx, userID)
	if err != nil {
		logger.Error("ListPreviews Error: Failed to list chats for user %s: %v", userID, err)
		return []ChatPreview{}
	}
	return a.Build(ctx, userID, chats)
}

// Focus is called when the chat list gains focus: it builds the previews and
// starts warming the first avatars without waiting for them.
func (a *ChatPreviewAggregator) Focus(ctx context.Context) []ChatPreview {
	previews := a.ListPreviews(ctx)
	a.PrefetchAvatars(ctx, previews)
	return previews
}

// Build summarizes chats for userID, preserving input order.
func (a *ChatPreviewAggregator) Build(ctx context.Context, userID string, chats []*entity.Chat) []ChatPreview {
	previews := make([]ChatPreview, len(chats))
	now := a.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(previewConcurrency)
	for i, chat := range chats {
		i, chat := i, chat
		g.Go(func() error {
			previews[i] = a.preview(gctx, userID, chat, now)
			return nil
		})
	}
	_ = g.Wait()

	out := previews[:0]
	for _, p := range previews {
		if p.ChatID != "" {
			out = append(out, p)
		}
	}
	return out
}

func (a *ChatPreviewAggregator) preview(ctx context.Context, userID string, chat *entity.Chat, now time.Time) ChatPreview {
	if chat == nil {
		return ChatPreview{}
	}

	otherID := chat.OtherParticipant(userID)
	name := chat.ParticipantNames[otherID]
	avatar := ""
	if otherID != "" {
		if profile := a.profile(ctx, otherID); profile != nil {
			if resolved := profile.ResolvedName(); resolved != "" {
				name = resolved
			}
			avatar = profile.AvatarURL()
		}
	}
	if name == "" {
		name = unknownDisplayName
	}
	if chat.IsTestChat {
		name += testChatSuffix
	}

	text, vitality := ClassifyLastMessage(chat.LastMessage)

	activity := chat.UpdatedAt
	if chat.LastMessage != nil && !chat.LastMessage.Timestamp.IsZero() {
		activity = chat.LastMessage.Timestamp
	}

	return ChatPreview{
		ChatID:          chat.ID,
		OtherUserID:     otherID,
		DisplayName:     name,
		AvatarURL:       avatar,
		LastMessageText: text,
		Vitality:        vitality,
		Unread:          isUnread(chat, userID),
		Timestamp:       FormatRelativeTime(activity, now),
		LastActivityAt:  activity,
		IsTestChat:      chat.IsTestChat,
	}
}

// profile resolves a user profile once per session; concurrent lookups for the
// same user share one store read. Failed lookups are not cached.
func (a *ChatPreviewAggregator) profile(ctx context.Context, userID string) *entity.Profile {
	a.mu.RLock()
	cached, ok := a.profiles[userID]
	a.mu.RUnlock()
	if ok {
		return cached
	}

	v, err, _ := a.lookups.Do(userID, func() (interface{}, error) {
		a.mu.RLock()
		cached, ok := a.profiles[userID]
		a.mu.RUnlock()
		if ok {
			return cached, nil
		}
		profile, err := a.profileRepo.GetProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		a.mu.Lock()
		a.profiles[userID] = profile
		a.mu.Unlock()
		return profile, nil
	})
	if err != nil {
		logger.Warn("ChatPreview: profile lookup failed for %s: %v", userID, err)
		return nil
	}
	return v.(*entity.Profile)
}

// InvalidateProfile drops a cached profile, e.g. after the user edits it.
func (a *ChatPreviewAggregator) InvalidateProfile(userID string) {
	a.mu.Lock()
	delete(a.profiles, userID)
	a.mu.Unlock()
}

// PrefetchAvatars hands the first avatars to the prefetcher in the background.
// It never blocks the caller.
func (a *ChatPreviewAggregator) PrefetchAvatars(ctx context.Context, previews []ChatPreview) {
	if a.prefetcher == nil || a.prefetchCount <= 0 {
		return
	}

	urls := make([]string, 0, a.prefetchCount)
	for _, p := range previews {
		if len(urls) == a.prefetchCount {
			break
		}
		if p.AvatarURL != "" {
			urls = append(urls, p.AvatarURL)
		}
	}
	if len(urls) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Avatar prefetch panicked: %v", r)
			}
		}()
		a.prefetcher.Prefetch(detached, urls)
	}()
}

// ClassifyLastMessage turns the preview copy into list text and an icon hint.
// Media previews use a fixed placeholder whatever the stored content is.
func ClassifyLastMessage(last *entity.LastMessage) (string, Vitality) {
	if last == nil {
		return noMessagesYet, VitalityText
	}
	switch last.Type {
	case entity.MessageTypeImage:
		return "Sent a photo", VitalityImage
	case entity.MessageTypeVideo:
		return "Sent a video", VitalityVideo
	case entity.MessageTypeAudio:
		return "Sent a voice message", VitalityAudio
	}
	return last.Content, VitalityText
}

// isUnread prefers the server-provided counter and falls back to who sent the
// last message.
func isUnread(chat *entity.Chat, userID string) bool {
	if chat.UnreadCount != nil {
		return *chat.UnreadCount > 0
	}
	return chat.LastMessage != nil && chat.LastMessage.SenderID != userID
}

// FormatRelativeTime renders clock time under 24h, "Yesterday" under 48h, the
// weekday under a week and the calendar date beyond that.
func FormatRelativeTime(ts, now time.Time) string {
	if ts.IsZero() {
		return ""
	}
	ts = ts.In(now.Location())
	delta := now.Sub(ts)

	switch {
	case delta < 24*time.Hour:
		return ts.Format("3:04 PM")
	case delta < 48*time.Hour:
		return "Yesterday"
	case delta < 7*24*time.Hour:
		return ts.Weekday().String()
	}
	return ts.Format("Jan 2, 2006")
}
