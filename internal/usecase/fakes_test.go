package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
)

// In-memory repositories for exercising the use cases without Firestore.
// They honor the same contracts: ordered message logs, idempotent
// get-or-create keyed by the chat's document id, snapshot-style
// subscriptions.

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*entity.User
}

func newMemUserRepo(users ...*entity.User) *memUserRepo {
	r := &memUserRepo{users: map[string]*entity.User{}}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	copied := *u
	return &copied, nil
}

func (r *memUserRepo) Upsert(ctx context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

type memListingRepo struct {
	mu       sync.Mutex
	listings map[string]*entity.Listing

	updateStatusErr   error
	updateStatusCalls int
}

func newMemListingRepo(listings ...*entity.Listing) *memListingRepo {
	r := &memListingRepo{listings: map[string]*entity.Listing{}}
	for _, l := range listings {
		r.listings[l.ID] = l
	}
	return r
}

func (r *memListingRepo) Create(ctx context.Context, listing *entity.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *listing
	r.listings[listing.ID] = &copied
	return nil
}

func (r *memListingRepo) GetByID(ctx context.Context, id string) (*entity.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, errors.NotFound("Listing", nil)
	}
	copied := *l
	return &copied, nil
}

func (r *memListingRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*entity.Listing, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Listing
	for _, l := range r.listings {
		if l.Status == status {
			copied := *l
			out = append(out, &copied)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memListingRepo) UpdateStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateStatusCalls++
	if r.updateStatusErr != nil {
		return r.updateStatusErr
	}
	l, ok := r.listings[id]
	if !ok {
		return errors.NotFound("Listing", nil)
	}
	l.Status = status
	return nil
}

func (r *memListingRepo) status(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listings[id].Status
}

type memChatRepo struct {
	mu       sync.Mutex
	chats    map[string]*entity.Chat
	messages map[string][]*entity.Message

	createMessageErr     error
	updateLastMessageErr error
	updateOfferErr       error
	subscribeErr         error

	chatSubs map[string][]func([]*entity.Chat)    // keyed by user id
	msgSubs  map[string][]func([]*entity.Message) // keyed by chat id
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{
		chats:    map[string]*entity.Chat{},
		messages: map[string][]*entity.Message{},
		chatSubs: map[string][]func([]*entity.Chat){},
		msgSubs:  map[string][]func([]*entity.Message){},
	}
}

func (r *memChatRepo) GetOrCreate(ctx context.Context, chat *entity.Chat) (*entity.Chat, error) {
	r.mu.Lock()
	if existing, ok := r.chats[chat.ID]; ok {
		copied := *existing
		r.mu.Unlock()
		return &copied, nil
	}
	copied := *chat
	copied.CreatedAt = time.Now()
	copied.LastMessageTime = copied.CreatedAt
	r.chats[chat.ID] = &copied
	result := copied
	r.mu.Unlock()

	r.notifyChatSubs(chat.ParticipantIDs)
	return &result, nil
}

func (r *memChatRepo) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[id]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	copied := *chat
	return &copied, nil
}

func (r *memChatRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.chatsForUserLocked(userID)
	total := int64(len(all))
	if offset >= len(all) {
		return []*entity.Chat{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *memChatRepo) chatsForUserLocked(userID string) []*entity.Chat {
	var out []*entity.Chat
	for _, chat := range r.chats {
		if chat.HasParticipant(userID) {
			copied := *chat
			out = append(out, &copied)
		}
	}
	// newest activity first, matching the store ordering
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].LastMessageTime.After(out[i].LastMessageTime) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (r *memChatRepo) UpdateLastMessage(ctx context.Context, chatID, preview string) error {
	r.mu.Lock()
	if r.updateLastMessageErr != nil {
		err := r.updateLastMessageErr
		r.mu.Unlock()
		return err
	}
	chat, ok := r.chats[chatID]
	if !ok {
		r.mu.Unlock()
		return errors.NotFound("Chat", nil)
	}
	chat.LastMessage = preview
	chat.LastMessageTime = time.Now()
	participants := chat.ParticipantIDs
	r.mu.Unlock()

	r.notifyChatSubs(participants)
	return nil
}

func (r *memChatRepo) CreateMessage(ctx context.Context, message *entity.Message) error {
	r.mu.Lock()
	if r.createMessageErr != nil {
		err := r.createMessageErr
		r.mu.Unlock()
		return err
	}
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.Timestamp = time.Now()
	copied := *message
	r.messages[message.ChatID] = append(r.messages[message.ChatID], &copied)
	r.mu.Unlock()

	r.notifyMsgSubs(message.ChatID)
	return nil
}

func (r *memChatRepo) GetMessageByID(ctx context.Context, chatID, messageID string) (*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages[chatID] {
		if m.ID == messageID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, errors.NotFound("Message", nil)
}

func (r *memChatRepo) ListMessages(ctx context.Context, chatID string) ([]*entity.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listMessagesLocked(chatID), nil
}

func (r *memChatRepo) listMessagesLocked(chatID string) []*entity.Message {
	out := make([]*entity.Message, 0, len(r.messages[chatID]))
	for _, m := range r.messages[chatID] {
		copied := *m
		out = append(out, &copied)
	}
	return out
}

func (r *memChatRepo) UpdateOfferStatus(ctx context.Context, chatID, messageID, status string) error {
	r.mu.Lock()
	if r.updateOfferErr != nil {
		err := r.updateOfferErr
		r.mu.Unlock()
		return err
	}
	for _, m := range r.messages[chatID] {
		if m.ID == messageID {
			m.OfferStatus = status
			r.mu.Unlock()
			r.notifyMsgSubs(chatID)
			return nil
		}
	}
	r.mu.Unlock()
	return errors.NotFound("Message", nil)
}

func (r *memChatRepo) SubscribeToUserChats(ctx context.Context, userID string, fn func([]*entity.Chat)) (func(), error) {
	r.mu.Lock()
	if r.subscribeErr != nil {
		err := r.subscribeErr
		r.mu.Unlock()
		return nil, err
	}
	r.chatSubs[userID] = append(r.chatSubs[userID], fn)
	initial := r.chatsForUserLocked(userID)
	r.mu.Unlock()

	fn(initial)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.chatSubs[userID] = nil
	}, nil
}

func (r *memChatRepo) SubscribeToMessages(ctx context.Context, chatID string, fn func([]*entity.Message)) (func(), error) {
	r.mu.Lock()
	if r.subscribeErr != nil {
		err := r.subscribeErr
		r.mu.Unlock()
		return nil, err
	}
	r.msgSubs[chatID] = append(r.msgSubs[chatID], fn)
	initial := r.listMessagesLocked(chatID)
	r.mu.Unlock()

	fn(initial)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.msgSubs[chatID] = nil
	}, nil
}

func (r *memChatRepo) notifyChatSubs(userIDs []string) {
	r.mu.Lock()
	type delivery struct {
		fn    func([]*entity.Chat)
		chats []*entity.Chat
	}
	var deliveries []delivery
	for _, uid := range userIDs {
		for _, fn := range r.chatSubs[uid] {
			deliveries = append(deliveries, delivery{fn, r.chatsForUserLocked(uid)})
		}
	}
	r.mu.Unlock()

	for _, d := range deliveries {
		d.fn(d.chats)
	}
}

func (r *memChatRepo) notifyMsgSubs(chatID string) {
	r.mu.Lock()
	var fns []func([]*entity.Message)
	fns = append(fns, r.msgSubs[chatID]...)
	snapshot := r.listMessagesLocked(chatID)
	r.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

var _ repository.ChatRepository = (*memChatRepo)(nil)
var _ repository.UserRepository = (*memUserRepo)(nil)
var _ repository.ListingRepository = (*memListingRepo)(nil)
