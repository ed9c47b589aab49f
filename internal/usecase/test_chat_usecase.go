package usecase

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/errors"
	"matchchat/pkg/logger"
)

const (
	testChatSeedID      = "seed"
	systemSenderID      = "system"
	testChatSeedContent = "Test chat created. Messages here are for development only."
)

var pairNamespace = uuid.MustParse("6f1e2c3a-8f0b-4c9e-9a51-2d7c4b8e0f13")

// PairChatID derives the chat id for two users. The pair is sorted first, so
// both orders yield the same id.
func PairChatID(userA, userB string) string {
	ids := []string{userA, userB}
	sort.Strings(ids)
	return uuid.NewSHA1(pairNamespace, []byte(ids[0]+"\x00"+ids[1])).String()
}

type TestChatAccounts struct {
	UserAID   string
	UserAName string
	UserBID   string
	UserBName string
}

func (a TestChatAccounts) valid() bool {
	return a.UserAID != "" && a.UserBID != "" && a.UserAID != a.UserBID
}

func (a TestChatAccounts) includes(userID string) bool {
	return userID != "" && (userID == a.UserAID || userID == a.UserBID)
}

// TestChatLifecycle creates, seeds and tears down the dev-only chat between
// the two fixed test accounts.
type TestChatLifecycle struct {
	chatRepo   repository.ChatRepository
	identity   Identity
	accounts   TestChatAccounts
	production bool
}

func NewTestChatLifecycle(
	chatRepo repository.ChatRepository,
	identity Identity,
	accounts TestChatAccounts,
	production bool,
) *TestChatLifecycle {
	return &TestChatLifecycle{
		chatRepo:   chatRepo,
		identity:   identity,
		accounts:   accounts,
		production: production,
	}
}

func (l *TestChatLifecycle) ChatID() string {
	return PairChatID(l.accounts.UserAID, l.accounts.UserBID)
}

// InitializeTestChat returns the test chat id, creating the chat and its
// single seed message on first use. It returns "" on failure.
func (l *TestChatLifecycle) InitializeTestChat(ctx context.Context) string {
	if !l.allowed(ctx) {
		return ""
	}
	chatID := l.ChatID()

	exists, err := l.chatRepo.Exists(ctx, chatID)
	if err != nil {
		logger.Error("InitializeTestChat Error: Failed to check chat %s: %v", chatID, err)
		return ""
	}
	if exists {
		return chatID
	}

	ids := []string{l.accounts.UserAID, l.accounts.UserBID}
	sort.Strings(ids)
	chat := &entity.Chat{
		ID:             chatID,
		ParticipantIDs: ids,
		ParticipantNames: map[string]string{
			l.accounts.UserAID: l.accounts.UserAName,
			l.accounts.UserBID: l.accounts.UserBName,
		},
		IsTestChat: true,
	}
	seed := &entity.Message{
		ID:       testChatSeedID,
		SenderID: systemSenderID,
		Content:  testChatSeedContent,
		Type:     entity.MessageTypeSystem,
		Status:   entity.StatusSent,
		ReadBy:   []string{},
	}

	// The chat and its seed are one batch, so a failed seed never leaves an
	// unseeded chat behind.
	if _, err := l.chatRepo.CreateWithSeed(ctx, chat, seed); err != nil {
		if errors.Is(err, "CONFLICT") {
			// Another caller may have created it between Exists and
			// CreateWithSeed. Only a chat that is really there counts.
			if exists, xerr := l.chatRepo.Exists(ctx, chatID); xerr == nil && exists {
				return chatID
			}
		}
		logger.Error("InitializeTestChat Error: Failed to create chat %s: %v", chatID, err)
		return ""
	}

	logger.Info("Test chat %s created for %s and %s", chatID, l.accounts.UserAID, l.accounts.UserBID)
	return chatID
}

// CleanupTestChat deletes every message and the chat document in one batch.
// Production builds refuse without touching the store.
func (l *TestChatLifecycle) CleanupTestChat(ctx context.Context) bool {
	if l.production {
		logger.Warn("CleanupTestChat refused in production")
		return false
	}
	if !l.allowed(ctx) {
		return false
	}
	chatID := l.ChatID()

	if err := l.chatRepo.DeleteWithMessages(ctx, chatID); err != nil {
		logger.Error("CleanupTestChat Error: Failed to delete chat %s: %v", chatID, err)
		return false
	}
	logger.Info("Test chat %s deleted", chatID)
	return true
}

func (l *TestChatLifecycle) allowed(ctx context.Context) bool {
	if !l.accounts.valid() {
		logger.Warn("Test chat accounts are not configured")
		return false
	}
	if uid := l.identity.CurrentUserID(ctx); !l.accounts.includes(uid) {
		logger.Warn("Test chat rejected for non-test user %q", uid)
		return false
	}
	return true
}
