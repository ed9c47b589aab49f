package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/errors"
	"matchchat/pkg/logger"
)

type firestoreMessageRepository struct {
	client *firestore.Client
}

func NewFirestoreMessageRepository(client *firestore.Client) repository.MessageRepository {
	return &firestoreMessageRepository{
		client: client,
	}
}

func (r *firestoreMessageRepository) messages(chatID string) *firestore.CollectionRef {
	return r.client.Collection(chatsCollection).Doc(chatID).Collection(messagesCollection)
}

func (r *firestoreMessageRepository) Create(ctx context.Context, chatID string, message *entity.Message) (*entity.Message, error) {
	var ref *firestore.DocumentRef
	if message.ID == "" {
		ref = r.messages(chatID).NewDoc()
	} else {
		ref = r.messages(chatID).Doc(message.ID)
	}

	created := message.Clone()
	created.ID = ref.ID
	created.ChatID = chatID

	fields := created.Fields()
	fields["createdAt"] = firestore.ServerTimestamp

	result, err := ref.Create(ctx, fields)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, errors.Conflict("Message already exists")
		}
		return nil, errors.Persistence("Failed to create message", err)
	}

	// The server timestamp resolves to the commit time of the write.
	created.CreatedAt = result.UpdateTime
	return created, nil
}

func (r *firestoreMessageRepository) GetByID(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	doc, err := r.messages(chatID).Doc(messageID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, errors.Persistence("Failed to get message", err)
	}

	message, err := entity.DecodeMessage(doc.Ref.ID, doc.Data())
	if err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return message, nil
}

func (r *firestoreMessageRepository) Latest(ctx context.Context, chatID string) (*entity.Message, error) {
	iter := r.messages(chatID).OrderBy("createdAt", firestore.Desc).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, errors.NotFound("Message", nil)
	}
	if err != nil {
		return nil, errors.Persistence("Failed to query latest message", err)
	}

	message, err := entity.DecodeMessage(doc.Ref.ID, doc.Data())
	if err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	return message, nil
}

func (r *firestoreMessageRepository) ListIncoming(ctx context.Context, chatID, userID string) ([]*entity.Message, error) {
	docs, err := r.messages(chatID).Where("senderId", "!=", userID).Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while listing incoming messages for chat %s: %v", chatID, err)
		return nil, errors.Persistence("Failed to list messages", err)
	}
	return decodeAll(chatID, docs), nil
}

func (r *firestoreMessageRepository) UpdateStatus(ctx context.Context, chatID, messageID string, s entity.MessageStatus) error {
	_, err := r.messages(chatID).Doc(messageID).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(s)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Message", err)
		}
		return errors.Persistence("Failed to update message status", err)
	}
	return nil
}

func (r *firestoreMessageRepository) ApplyReceipts(ctx context.Context, chatID string, receipts []repository.Receipt) error {
	if len(receipts) == 0 {
		return nil
	}
	if len(receipts) > maxBatchWrites {
		return errors.Persistence("Too many receipts for a single batch", nil)
	}

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, receipt := range receipts {
			var updates []firestore.Update
			if receipt.Reader != "" {
				updates = append(updates, firestore.Update{Path: "readBy", Value: firestore.ArrayUnion(receipt.Reader)})
			}
			if receipt.Status != "" {
				updates = append(updates, firestore.Update{Path: "status", Value: string(receipt.Status)})
			}
			if len(updates) == 0 {
				continue
			}
			if err := tx.Update(r.messages(chatID).Doc(receipt.MessageID), updates); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Persistence("Failed to apply receipts", err)
	}
	return nil
}

func (r *firestoreMessageRepository) UpdateReactions(ctx context.Context, chatID, messageID string, mutate repository.ReactionMutator) (entity.Reactions, error) {
	ref := r.messages(chatID).Doc(messageID)

	var next entity.Reactions
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Message", err)
			}
			return err
		}

		var current entity.Reactions
		if raw, ok := doc.Data()["reactions"].(map[string]interface{}); ok {
			current = entity.DecodeReactions(raw)
		}
		next = mutate(current)

		return tx.Update(ref, []firestore.Update{
			{Path: "reactions", Value: next.Fields()},
		})
	})
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, err
		}
		return nil, errors.Persistence("Failed to update reactions", err)
	}
	return next, nil
}

// Subscribe listens to the whole messages collection. Ordering happens in the
// caller: an orderBy on createdAt would silently drop documents missing it.
func (r *firestoreMessageRepository) Subscribe(ctx context.Context, chatID string, onSnapshot repository.SnapshotFunc, onError func(error)) func() {
	ctx, cancel := context.WithCancel(ctx)
	iter := r.messages(chatID).Snapshots(ctx)

	go func() {
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled || err == iterator.Done {
					return
				}
				onError(errors.Subscription("Message listener failed", err))
				return
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				onError(errors.Subscription("Failed to read message snapshot", err))
				return
			}
			onSnapshot(decodeAll(chatID, docs))
		}
	}()

	return cancel
}

func decodeAll(chatID string, docs []*firestore.DocumentSnapshot) []*entity.Message {
	messages := make([]*entity.Message, 0, len(docs))
	for _, doc := range docs {
		message, err := entity.DecodeMessage(doc.Ref.ID, doc.Data())
		if err != nil {
			logger.Warn("Skipping malformed message in chat %s: %v", chatID, err)
			continue
		}
		messages = append(messages, message)
	}
	return messages
}
