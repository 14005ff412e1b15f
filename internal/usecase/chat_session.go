package usecase

import (
	"context"
	"sync"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

// SessionSink receives the live state a session maintains for its client.
// Implementations must tolerate being called from subscription goroutines.
type SessionSink interface {
	ChatsUpdated(chats []*entity.Chat)
	MessagesUpdated(chatID string, messages []*entity.Message)
}

// ChatSession is the per-client coordination layer: one instance per
// connected client, owning that client's chat list subscription, current chat
// selection and message subscription. It replaces the ambient global state of
// a shared singleton with an explicit start/stop lifecycle.
type ChatSession struct {
	userID   string
	chatUC   *ChatUseCase
	chatRepo repository.ChatRepository
	sink     SessionSink

	mu          sync.Mutex
	currentChat *entity.Chat
	unsubChats  func()
	unsubMsgs   func()
	closed      bool
}

func NewChatSession(userID string, chatUC *ChatUseCase, chatRepo repository.ChatRepository, sink SessionSink) *ChatSession {
	return &ChatSession{
		userID:   userID,
		chatUC:   chatUC,
		chatRepo: chatRepo,
		sink:     sink,
	}
}

// Start begins the per-user chat list feed. An establishment failure is
// returned to the caller so the client can distinguish "can't load chats"
// from "no chats yet".
func (s *ChatSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.InvalidState("Session is closed", nil)
	}
	if s.unsubChats != nil {
		return nil
	}

	unsub, err := s.chatRepo.SubscribeToUserChats(ctx, s.userID, s.sink.ChatsUpdated)
	if err != nil {
		return err
	}
	s.unsubChats = unsub
	return nil
}

// SetCurrentChat selects the chat whose messages the session follows. The
// previous message subscription, if any, is stopped before the new one
// starts. Selecting the empty id just clears the selection.
func (s *ChatSession) SetCurrentChat(ctx context.Context, chatID string) error {
	if chatID == "" {
		s.clearCurrentChat()
		return nil
	}

	chat, err := s.chatUC.GetChatByID(ctx, s.userID, chatID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.InvalidState("Session is closed", nil)
	}

	if s.unsubMsgs != nil {
		s.unsubMsgs()
		s.unsubMsgs = nil
	}

	unsub, err := s.chatRepo.SubscribeToMessages(ctx, chat.ID, func(messages []*entity.Message) {
		s.sink.MessagesUpdated(chat.ID, messages)
	})
	if err != nil {
		s.currentChat = nil
		return err
	}

	s.currentChat = chat
	s.unsubMsgs = unsub
	return nil
}

func (s *ChatSession) clearCurrentChat() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubMsgs != nil {
		s.unsubMsgs()
		s.unsubMsgs = nil
	}
	s.currentChat = nil
}

// StartChat resolves or creates the chat with the other user and selects it.
func (s *ChatSession) StartChat(ctx context.Context, input StartChatInput) (*entity.Chat, error) {
	chat, err := s.chatUC.GetOrCreateChat(ctx, s.userID, input)
	if err != nil {
		return nil, err
	}

	if err := s.SetCurrentChat(ctx, chat.ID); err != nil {
		return nil, err
	}
	return chat, nil
}

// CurrentChat returns the selected chat, or nil.
func (s *ChatSession) CurrentChat() *entity.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentChat
}

// SendMessage sends to the current chat. With no chat selected this is a
// silent no-op: nothing is sent and no error is raised, mirroring a client
// typing into a view that was already torn down.
func (s *ChatSession) SendMessage(ctx context.Context, text, msgType string, offerAmount float64) error {
	s.mu.Lock()
	chat := s.currentChat
	s.mu.Unlock()

	if chat == nil {
		logger.Debug("SendMessage ignored: session for user %s has no current chat", s.userID)
		return nil
	}

	_, err := s.chatUC.SendMessage(ctx, s.userID, SendMessageInput{
		ChatID:      chat.ID,
		Text:        text,
		Type:        msgType,
		OfferAmount: offerAmount,
	})
	return err
}

func (s *ChatSession) AcceptOffer(ctx context.Context, messageID string) error {
	s.mu.Lock()
	chat := s.currentChat
	s.mu.Unlock()

	if chat == nil {
		return errors.InvalidState("No chat selected", nil)
	}
	return s.chatUC.AcceptOffer(ctx, chat.ID, messageID, s.userID)
}

func (s *ChatSession) RejectOffer(ctx context.Context, messageID string) error {
	s.mu.Lock()
	chat := s.currentChat
	s.mu.Unlock()

	if chat == nil {
		return errors.InvalidState("No chat selected", nil)
	}
	return s.chatUC.RejectOffer(ctx, chat.ID, messageID, s.userID)
}

// Close stops both subscriptions. Safe to call more than once and at any
// point of the lifecycle.
func (s *ChatSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if s.unsubMsgs != nil {
		s.unsubMsgs()
		s.unsubMsgs = nil
	}
	if s.unsubChats != nil {
		s.unsubChats()
		s.unsubChats = nil
	}
	s.currentChat = nil
}
