package router

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/adapter/api/handler"
	"unimarket/internal/adapter/api/middleware"
)

// SetupChatRouter sets up all chat routes (excluding WebSocket).
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.POST("", chatHandler.StartChat)      // POST /v1/chats - resolve or create the chat
	chatGroup.GET("", chatHandler.GetUserChats)    // GET /v1/chats - list the caller's chats
	chatGroup.GET("/:id", chatHandler.GetChatByID) // GET /v1/chats/:id

	chatGroup.POST("/:id/messages", chatHandler.SendMessage)    // POST /v1/chats/:id/messages
	chatGroup.GET("/:id/messages", chatHandler.GetChatMessages) // GET /v1/chats/:id/messages

	chatGroup.POST("/:id/messages/accept-offer", chatHandler.AcceptOffer)       // POST /v1/chats/:id/messages/accept-offer
	chatGroup.POST("/:id/messages/reject-offer", chatHandler.RejectOffer)       // POST /v1/chats/:id/messages/reject-offer
	chatGroup.POST("/:id/messages/reconcile-offer", chatHandler.ReconcileOffer) // POST /v1/chats/:id/messages/reconcile-offer
}
