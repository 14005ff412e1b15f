package handler

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/usecase"
	"unimarket/pkg/response"
	"unimarket/pkg/utils"
)

type ListingHandler struct {
	listingUseCase *usecase.ListingUseCase
}

func NewListingHandler(listingUseCase *usecase.ListingUseCase) *ListingHandler {
	return &ListingHandler{
		listingUseCase: listingUseCase,
	}
}

func (h *ListingHandler) GetListingByID(c echo.Context) error {
	listing, err := h.listingUseCase.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, listing)
}

func (h *ListingHandler) ListAvailable(c echo.Context) error {
	params := utils.GetPaginationParams(c)

	listings, total, err := h.listingUseCase.ListAvailable(c.Request().Context(), params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, listings, total, params.Page, params.PageSize)
}
