package repository

import (
	"context"

	"unimarket/internal/domain/entity"
)

// ChatRepository is the chat directory plus the per-chat message log.
//
// Subscribe methods deliver full ordered snapshots on every change, never
// diffs. The returned cancel func is idempotent; after it returns, the
// callback is guaranteed not to fire again.
type ChatRepository interface {
	// GetOrCreate inserts the chat under its precomputed document id, or
	// returns the existing chat when one is already stored under that id.
	GetOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, error)
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error)
	UpdateLastMessage(ctx context.Context, chatID, preview string) error

	CreateMessage(ctx context.Context, message *entity.Message) error
	GetMessageByID(ctx context.Context, chatID, messageID string) (*entity.Message, error)
	ListMessages(ctx context.Context, chatID string) ([]*entity.Message, error)
	UpdateOfferStatus(ctx context.Context, chatID, messageID, status string) error

	SubscribeToUserChats(ctx context.Context, userID string, fn func([]*entity.Chat)) (func(), error)
	SubscribeToMessages(ctx context.Context, chatID string, fn func([]*entity.Message)) (func(), error)
}
