package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/errors"
	"matchchat/pkg/logger"
)

const (
	chatsCollection    = "chats"
	messagesCollection = "messages"

	// Firestore caps a transaction at 500 writes.
	maxBatchWrites = 500
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) chats() *firestore.CollectionRef {
	return r.client.Collection(chatsCollection)
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	var ref *firestore.DocumentRef
	if chat.ID == "" {
		ref = r.chats().NewDoc()
		chat.ID = ref.ID
	} else {
		ref = r.chats().Doc(chat.ID)
	}

	now := time.Now()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	chat.UpdatedAt = now

	if _, err := ref.Create(ctx, chat); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Chat already exists")
		}
		return errors.Persistence("Failed to create chat", err)
	}
	return nil
}

func (r *firestoreChatRepository) CreateWithSeed(ctx context.Context, chat *entity.Chat, seed *entity.Message) (*entity.Message, error) {
	var chatRef *firestore.DocumentRef
	if chat.ID == "" {
		chatRef = r.chats().NewDoc()
		chat.ID = chatRef.ID
	} else {
		chatRef = r.chats().Doc(chat.ID)
	}
	messages := chatRef.Collection(messagesCollection)

	var messageRef *firestore.DocumentRef
	if seed.ID == "" {
		messageRef = messages.NewDoc()
	} else {
		messageRef = messages.Doc(seed.ID)
	}

	// The transaction does not report a commit time, so the seed and the
	// preview share one client timestamp.
	now := time.Now()
	created := seed.Clone()
	created.ID = messageRef.ID
	created.ChatID = chat.ID
	created.CreatedAt = now

	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = now
	}
	chat.UpdatedAt = now
	chat.LastMessage = entity.LastMessageFrom(created)

	fields := created.Fields()
	fields["createdAt"] = now

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(chatRef, chat); err != nil {
			return err
		}
		return tx.Create(messageRef, fields)
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, errors.Conflict("Chat already exists")
		}
		return nil, errors.Persistence("Failed to create seeded chat", err)
	}
	return created, nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.chats().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", nil)
		}
		return nil, errors.Persistence("Failed to get chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	chat.ID = doc.Ref.ID
	return &chat, nil
}

func (r *firestoreChatRepository) Exists(ctx context.Context, id string) (bool, error) {
	doc, err := r.chats().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, errors.Persistence("Failed to get chat", err)
	}
	return doc.Exists(), nil
}

func (r *firestoreChatRepository) ListByParticipant(ctx context.Context, userID string) ([]*entity.Chat, error) {
	query := r.chats().Where("participantIds", "array-contains", userID).OrderBy("updatedAt", firestore.Desc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching chats for user %s: %v", userID, err)
		return nil, errors.Persistence("Failed to fetch chats", err)
	}

	chats := make([]*entity.Chat, 0, len(docs))
	for _, doc := range docs {
		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			logger.Warn("Skipping malformed chat %s for user %s: %v", doc.Ref.ID, userID, err)
			continue
		}
		chat.ID = doc.Ref.ID
		chats = append(chats, &chat)
	}
	return chats, nil
}

func (r *firestoreChatRepository) UpdateLastMessage(ctx context.Context, chatID string, last *entity.LastMessage) error {
	_, err := r.chats().Doc(chatID).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: last},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return errors.Persistence("Failed to update chat preview", err)
	}
	return nil
}

func (r *firestoreChatRepository) DeleteWithMessages(ctx context.Context, chatID string) error {
	chatRef := r.chats().Doc(chatID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(chatRef.Collection(messagesCollection)).GetAll()
		if err != nil {
			return err
		}
		if len(docs)+1 > maxBatchWrites {
			return errors.Persistence("Chat has too many messages for a single batch", nil)
		}
		for _, doc := range docs {
			if err := tx.Delete(doc.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(chatRef)
	})
	if err != nil {
		if errors.Is(err, "PERSISTENCE_ERROR") {
			return err
		}
		return errors.Persistence("Failed to delete chat", err)
	}
	return nil
}
