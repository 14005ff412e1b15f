package repository

import (
	"context"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

type firestoreChatRepository struct {
	client  *firestore.Client
	timeout time.Duration
}

func NewFirestoreChatRepository(client *firestore.Client, timeout time.Duration) repository.ChatRepository {
	return &firestoreChatRepository{
		client:  client,
		timeout: timeout,
	}
}

func (r *firestoreChatRepository) chats() *firestore.CollectionRef {
	return r.client.Collection("chats")
}

func (r *firestoreChatRepository) messages(chatID string) *firestore.CollectionRef {
	return r.chats().Doc(chatID).Collection("messages")
}

// GetOrCreate relies on the content-derived document id: Create is
// insert-if-absent, so two concurrent callers for the same pair and listing
// collapse into one document and the loser reads the winner's chat back.
func (r *firestoreChatRepository) GetOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, error) {
	if chat.ID == "" {
		itemID := chat.ItemID
		chat.ID = entity.ChatDocID(chat.ParticipantIDs[0], chat.ParticipantIDs[1], itemID)
	}

	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.chats().Doc(chat.ID).Create(cctx, chat)
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return nil, storeErr("Failed to create chat", err)
	}

	// Read back in both cases so the caller sees resolved server timestamps.
	return r.GetByID(ctx, chat.ID)
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	doc, err := r.chats().Doc(id).Get(cctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, storeErr("Failed to get chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}
	chat.ID = doc.Ref.ID

	return &chat, nil
}

func (r *firestoreChatRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	query := r.chats().
		Where("participantIds", "array-contains", userID).
		OrderBy("lastMessageTime", firestore.Desc)

	allDocs, err := query.Documents(cctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching chats for user %s: %v", userID, err)
		return nil, 0, storeErr("Failed to fetch chats", err)
	}

	total := int64(len(allDocs))

	start := offset
	end := len(allDocs)
	if limit > 0 {
		end = start + limit
		if end > len(allDocs) {
			end = len(allDocs)
		}
	}
	if start > len(allDocs) {
		start = len(allDocs)
	}

	var chats []*entity.Chat
	for i := start; i < end; i++ {
		var chat entity.Chat
		if err := allDocs[i].DataTo(&chat); err != nil {
			logger.Warn("Skipping malformed chat document %s: %v", allDocs[i].Ref.ID, err)
			continue
		}
		chat.ID = allDocs[i].Ref.ID
		chats = append(chats, &chat)
	}

	return chats, total, nil
}

// UpdateLastMessage patches the denormalized preview fields on the parent
// chat. The timestamp is assigned by the store, matching the message it
// previews.
func (r *firestoreChatRepository) UpdateLastMessage(ctx context.Context, chatID, preview string) error {
	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.chats().Doc(chatID).Update(cctx, []firestore.Update{
		{Path: "lastMessage", Value: preview},
		{Path: "lastMessageTime", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat", err)
		}
		return storeErr("Failed to update chat preview", err)
	}
	return nil
}

func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.messages(message.ChatID).Doc(message.ID).Create(cctx, message)
	if err != nil {
		return storeErr("Failed to create message", err)
	}
	return nil
}

func (r *firestoreChatRepository) GetMessageByID(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	doc, err := r.messages(chatID).Doc(messageID).Get(cctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Message", err)
		}
		return nil, storeErr("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}
	message.ID = doc.Ref.ID

	return &message, nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, chatID string) ([]*entity.Message, error) {
	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	iter := r.messages(chatID).OrderBy("timestamp", firestore.Asc).Documents(cctx)
	var messages []*entity.Message

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for chat %s: %v", chatID, err)
			return nil, storeErr("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, errors.Internal("Failed to parse message data", err)
		}
		message.ID = doc.Ref.ID
		messages = append(messages, &message)
	}

	return messages, nil
}

// UpdateOfferStatus patches only the offerStatus field; the rest of the
// message stays immutable.
func (r *firestoreChatRepository) UpdateOfferStatus(ctx context.Context, chatID, messageID, offerStatus string) error {
	cctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.messages(chatID).Doc(messageID).Update(cctx, []firestore.Update{
		{Path: "offerStatus", Value: offerStatus},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Message", err)
		}
		return storeErr("Failed to update offer status", err)
	}
	return nil
}

func (r *firestoreChatRepository) SubscribeToUserChats(ctx context.Context, userID string, fn func([]*entity.Chat)) (func(), error) {
	query := r.chats().
		Where("participantIds", "array-contains", userID).
		OrderBy("lastMessageTime", firestore.Desc)

	return r.subscribe(ctx, query, func(docs []*firestore.DocumentSnapshot) {
		var chats []*entity.Chat
		for _, doc := range docs {
			var chat entity.Chat
			if err := doc.DataTo(&chat); err != nil {
				logger.Warn("Skipping malformed chat document %s: %v", doc.Ref.ID, err)
				continue
			}
			chat.ID = doc.Ref.ID
			chats = append(chats, &chat)
		}
		fn(chats)
	})
}

func (r *firestoreChatRepository) SubscribeToMessages(ctx context.Context, chatID string, fn func([]*entity.Message)) (func(), error) {
	query := r.messages(chatID).OrderBy("timestamp", firestore.Asc)

	return r.subscribe(ctx, query, func(docs []*firestore.DocumentSnapshot) {
		var messages []*entity.Message
		for _, doc := range docs {
			var message entity.Message
			if err := doc.DataTo(&message); err != nil {
				logger.Warn("Skipping malformed message document %s: %v", doc.Ref.ID, err)
				continue
			}
			message.ID = doc.Ref.ID
			messages = append(messages, &message)
		}
		fn(messages)
	})
}

// subscribe attaches a snapshot listener to a query. The first snapshot is
// fetched synchronously so an unreachable store surfaces as an error from
// Subscribe itself rather than as a silently empty feed. The cancel func is
// idempotent; once it returns, deliver will not run again.
func (r *firestoreChatRepository) subscribe(ctx context.Context, query firestore.Query, deliver func([]*firestore.DocumentSnapshot)) (func(), error) {
	subCtx, cancelCtx := context.WithCancel(ctx)
	snapshots := query.Snapshots(subCtx)

	var mu sync.Mutex
	stopped := false

	emit := func(snap *firestore.QuerySnapshot) {
		docs, err := snap.Documents.GetAll()
		if err != nil {
			logger.Warn("Failed to read snapshot documents: %v", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if !stopped {
			deliver(docs)
		}
	}

	first, err := snapshots.Next()
	if err != nil {
		snapshots.Stop()
		cancelCtx()
		return nil, storeErr("Failed to establish subscription", err)
	}
	emit(first)

	go func() {
		defer snapshots.Stop()
		for {
			snap, err := snapshots.Next()
			if err != nil {
				// Cancelled or broken; the feed ends here.
				return
			}
			emit(snap)
		}
	}()

	cancel := func() {
		mu.Lock()
		stopped = true
		mu.Unlock()
		cancelCtx()
	}
	return cancel, nil
}
