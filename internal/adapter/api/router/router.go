package router

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/adapter/api/handler"
	"unimarket/internal/adapter/api/middleware"
)

func Setup(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	chatHandler *handler.ChatHandler,
	listingHandler *handler.ListingHandler,
	userHandler *handler.UserHandler,
	wsHandler *handler.WebSocketHandler,
	healthHandler *handler.HealthHandler,
) {
	SetupChatRouter(e, chatHandler, authMiddleware)
	SetupListingRouter(e, listingHandler)
	SetupUserRouter(e, userHandler, authMiddleware)
	SetupWebSocketRouter(e, wsHandler)
	SetupHealthRouter(e, healthHandler)
}
