package router

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up the realtime endpoint. Auth happens inside
// the handler via the token query param.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/v1/ws", wsHandler.HandleWebSocket)
}
