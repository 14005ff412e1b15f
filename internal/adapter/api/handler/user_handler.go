package handler

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/infrastructure/firebase"
	"unimarket/internal/usecase"
	"unimarket/pkg/response"
)

type UserHandler struct {
	userUseCase  *usecase.UserUseCase
	firebaseAuth *firebase.AuthClient
}

func NewUserHandler(userUseCase *usecase.UserUseCase, firebaseAuth *firebase.AuthClient) *UserHandler {
	return &UserHandler{
		userUseCase:  userUseCase,
		firebaseAuth: firebaseAuth,
	}
}

// GetCurrentUser returns the caller's profile, creating it from the auth
// record on first sight.
func (h *UserHandler) GetCurrentUser(c echo.Context) error {
	uid := c.Get("uid").(string)

	record, err := h.firebaseAuth.GetUser(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	user, err := h.userUseCase.EnsureProfile(c.Request().Context(), uid, record.Email, record.DisplayName)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}

func (h *UserHandler) GetUserByID(c echo.Context) error {
	user, err := h.userUseCase.GetProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, user)
}
