package router

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/adapter/api/handler"
)

func SetupListingRouter(e *echo.Echo, listingHandler *handler.ListingHandler) {
	listingGroup := e.Group("/v1/listings")

	listingGroup.GET("", listingHandler.ListAvailable)
	listingGroup.GET("/:id", listingHandler.GetListingByID)
}
