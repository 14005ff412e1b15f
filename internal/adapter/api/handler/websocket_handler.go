package handler

import (
	"context"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"unimarket/internal/domain/repository"
	"unimarket/internal/infrastructure/firebase"
	ws "unimarket/internal/infrastructure/websocket"
	"unimarket/internal/usecase"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

type WebSocketHandler struct {
	wsManager    *ws.Manager
	firebaseAuth *firebase.AuthClient
	chatUseCase  *usecase.ChatUseCase
	userUseCase  *usecase.UserUseCase
	chatRepo     repository.ChatRepository
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict in production
	},
}

func NewWebSocketHandler(
	wsManager *ws.Manager,
	firebaseAuth *firebase.AuthClient,
	chatUseCase *usecase.ChatUseCase,
	userUseCase *usecase.UserUseCase,
	chatRepo repository.ChatRepository,
) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:    wsManager,
		firebaseAuth: firebaseAuth,
		chatUseCase:  chatUseCase,
		userUseCase:  userUseCase,
		chatRepo:     chatRepo,
	}
}

// HandleWebSocket authenticates the token query param, upgrades the
// connection and wires a fresh chat session to it.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return errors.NotAuthenticated("Token is required", nil)
	}

	uid, err := h.firebaseAuth.VerifyToken(c.Request().Context(), token)
	if err != nil {
		return errors.NotAuthenticated("Invalid or expired token", err)
	}

	record, err := h.firebaseAuth.GetUser(c.Request().Context(), uid)
	if err != nil {
		return errors.NotAuthenticated("Unknown user", err)
	}

	if _, err := h.userUseCase.EnsureProfile(c.Request().Context(), uid, record.Email, record.DisplayName); err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	// The connection outlives the HTTP request, so the session gets its
	// own context rather than the request's.
	ctx, cancel := context.WithCancel(context.Background())

	client := ws.NewClient(uid, conn)
	client.Session = usecase.NewChatSession(uid, h.chatUseCase, h.chatRepo, client)

	if err := client.Session.Start(ctx); err != nil {
		logger.Error("Failed to start chat session for %s: %v", uid, err)
		client.WriteError("UNAVAILABLE", "Could not load your chats")
		cancel()
		conn.Close()
		return nil
	}

	h.wsManager.Register <- client

	go func() {
		defer cancel()
		client.ReadPump(ctx, h.wsManager)
	}()
	go client.WritePump()

	return nil
}
