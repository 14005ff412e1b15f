package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unimarket/internal/domain/entity"
	"unimarket/pkg/errors"
)

type recordingSink struct {
	mu            sync.Mutex
	chatSnapshots [][]*entity.Chat
	msgSnapshots  map[string][][]*entity.Message
}

func newRecordingSink() *recordingSink {
	return &recordingSink{msgSnapshots: map[string][][]*entity.Message{}}
}

func (s *recordingSink) ChatsUpdated(chats []*entity.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatSnapshots = append(s.chatSnapshots, chats)
}

func (s *recordingSink) MessagesUpdated(chatID string, messages []*entity.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgSnapshots[chatID] = append(s.msgSnapshots[chatID], messages)
}

func (s *recordingSink) chatSnapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chatSnapshots)
}

func (s *recordingSink) lastMessages(chatID string) []*entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	snaps := s.msgSnapshots[chatID]
	if len(snaps) == 0 {
		return nil
	}
	return snaps[len(snaps)-1]
}

func newSessionTestEnv(t *testing.T, userID string) (*chatTestEnv, *ChatSession, *recordingSink) {
	t.Helper()
	env := newChatTestEnv()
	sink := newRecordingSink()
	session := NewChatSession(userID, env.uc, env.chatRepo, sink)
	return env, session, sink
}

func TestChatSessionStart(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers the initial chat list", func(t *testing.T) {
		_, session, sink := newSessionTestEnv(t, "u1")
		defer session.Close()

		require.NoError(t, session.Start(ctx))
		require.Equal(t, 1, sink.chatSnapshotCount())
		assert.Empty(t, sink.chatSnapshots[0])
	})

	t.Run("surfaces establishment failures", func(t *testing.T) {
		env, session, _ := newSessionTestEnv(t, "u1")
		env.chatRepo.subscribeErr = errors.Unavailable("store down", nil)

		err := session.Start(ctx)
		assert.True(t, errors.Is(err, "UNAVAILABLE"))
	})

	t.Run("follows new chat activity", func(t *testing.T) {
		env, session, sink := newSessionTestEnv(t, "u2")
		defer session.Close()

		require.NoError(t, session.Start(ctx))
		before := sink.chatSnapshotCount()

		env.startListingChat(t, "u1")
		assert.Greater(t, sink.chatSnapshotCount(), before)
	})
}

func TestChatSessionCurrentChat(t *testing.T) {
	ctx := context.Background()

	t.Run("selecting a chat follows its messages", func(t *testing.T) {
		env, session, sink := newSessionTestEnv(t, "u2")
		defer session.Close()
		require.NoError(t, session.Start(ctx))

		chat := env.startListingChat(t, "u1")
		require.NoError(t, session.SetCurrentChat(ctx, chat.ID))
		require.NotNil(t, session.CurrentChat())
		assert.Equal(t, chat.ID, session.CurrentChat().ID)

		_, err := env.uc.SendMessage(ctx, "u1", SendMessageInput{ChatID: chat.ID, Text: "hi"})
		require.NoError(t, err)

		last := sink.lastMessages(chat.ID)
		require.Len(t, last, 1)
		assert.Equal(t, "hi", last[0].Text)
	})

	t.Run("StartChat creates and selects in one step", func(t *testing.T) {
		env, session, _ := newSessionTestEnv(t, "u1")
		defer session.Close()
		require.NoError(t, session.Start(ctx))

		chat, err := session.StartChat(ctx, StartChatInput{OtherUserID: "u2", ItemID: "item-9"})
		require.NoError(t, err)
		require.NotNil(t, session.CurrentChat())
		assert.Equal(t, chat.ID, session.CurrentChat().ID)
		assert.Len(t, env.chatRepo.chats, 1)
	})

	t.Run("empty id clears the selection", func(t *testing.T) {
		env, session, _ := newSessionTestEnv(t, "u2")
		defer session.Close()
		require.NoError(t, session.Start(ctx))

		chat := env.startListingChat(t, "u1")
		require.NoError(t, session.SetCurrentChat(ctx, chat.ID))
		require.NoError(t, session.SetCurrentChat(ctx, ""))
		assert.Nil(t, session.CurrentChat())
	})

	t.Run("non-participants cannot select a chat", func(t *testing.T) {
		env := newChatTestEnv()
		env.userRepo.Upsert(ctx, &entity.User{ID: "u3", Username: "carla"})
		sink := newRecordingSink()
		session := NewChatSession("u3", env.uc, env.chatRepo, sink)
		defer session.Close()

		chat := env.startListingChat(t, "u1")
		err := session.SetCurrentChat(ctx, chat.ID)
		assert.True(t, errors.Is(err, "FORBIDDEN"))
		assert.Nil(t, session.CurrentChat())
	})
}

func TestChatSessionSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("no current chat is a silent no-op", func(t *testing.T) {
		env, session, _ := newSessionTestEnv(t, "u1")
		defer session.Close()
		require.NoError(t, session.Start(ctx))

		require.NoError(t, session.SendMessage(ctx, "hello", "", 0))
		assert.Empty(t, env.chatRepo.messages)
	})

	t.Run("sends into the selected chat", func(t *testing.T) {
		env, session, _ := newSessionTestEnv(t, "u1")
		defer session.Close()
		require.NoError(t, session.Start(ctx))

		chat := env.startListingChat(t, "u1")
		require.NoError(t, session.SetCurrentChat(ctx, chat.ID))
		require.NoError(t, session.SendMessage(ctx, "hello", "", 0))

		messages, err := env.chatRepo.ListMessages(ctx, chat.ID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, "u1", messages[0].SenderID)
	})
}

func TestChatSessionOfferActions(t *testing.T) {
	ctx := context.Background()

	t.Run("require a selected chat", func(t *testing.T) {
		_, session, _ := newSessionTestEnv(t, "u2")
		defer session.Close()
		require.NoError(t, session.Start(ctx))

		err := session.AcceptOffer(ctx, "m1")
		assert.True(t, errors.Is(err, "INVALID_STATE"))

		err = session.RejectOffer(ctx, "m1")
		assert.True(t, errors.Is(err, "INVALID_STATE"))
	})

	t.Run("resolve offers in the selected chat", func(t *testing.T) {
		env, session, _ := newSessionTestEnv(t, "u2")
		defer session.Close()
		require.NoError(t, session.Start(ctx))

		chat := env.startListingChat(t, "u1")
		offer := env.sendOffer(t, chat.ID, 250)

		require.NoError(t, session.SetCurrentChat(ctx, chat.ID))
		require.NoError(t, session.AcceptOffer(ctx, offer.ID))
		assert.Equal(t, entity.ListingStatusReserved, env.listingRepo.status("item-9"))
	})
}

func TestChatSessionClose(t *testing.T) {
	ctx := context.Background()

	t.Run("stops deliveries and is idempotent", func(t *testing.T) {
		env, session, sink := newSessionTestEnv(t, "u2")
		require.NoError(t, session.Start(ctx))

		session.Close()
		session.Close()

		before := sink.chatSnapshotCount()
		env.startListingChat(t, "u1")
		assert.Equal(t, before, sink.chatSnapshotCount())
	})

	t.Run("closed sessions cannot restart", func(t *testing.T) {
		_, session, _ := newSessionTestEnv(t, "u1")
		session.Close()

		err := session.Start(ctx)
		assert.True(t, errors.Is(err, "INVALID_STATE"))
	})
}
