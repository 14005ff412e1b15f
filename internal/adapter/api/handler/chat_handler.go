package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"unimarket/internal/usecase"
	"unimarket/pkg/response"
	"unimarket/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type startChatRequest struct {
	OtherUserID string `json:"other_user_id" validate:"required"`
	ItemID      string `json:"item_id"`
	ItemTitle   string `json:"item_title"`
}

type sendMessageRequest struct {
	Text        string  `json:"text"`
	Type        string  `json:"type" validate:"omitempty,oneof=text offer"`
	OfferAmount float64 `json:"offer_amount" validate:"omitempty,gt=0"`
}

type offerActionRequest struct {
	MessageID string `json:"message_id" validate:"required"`
}

// StartChat resolves the chat between the caller and the other user,
// creating it if it does not exist yet.
func (h *ChatHandler) StartChat(c echo.Context) error {
	var req startChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.GetOrCreateChat(c.Request().Context(), userID, usecase.StartChatInput{
		OtherUserID: req.OtherUserID,
		ItemID:      req.ItemID,
		ItemTitle:   req.ItemTitle,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// GetUserChats lists the caller's chats, most recent activity first.
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	userID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c)

	chats, total, err := h.chatUseCase.GetUserChats(c.Request().Context(), userID, params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, chats, total, params.Page, params.PageSize)
}

func (h *ChatHandler) GetChatByID(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.GetChatByID(c.Request().Context(), userID, chatID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if req.Type == "" {
		req.Type = "text"
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		ChatID:      chatID,
		Text:        req.Text,
		Type:        req.Type,
		OfferAmount: req.OfferAmount,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// GetChatMessages returns the full message log of a chat, oldest first.
func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	messages, err := h.chatUseCase.GetChatMessages(c.Request().Context(), userID, chatID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

func (h *ChatHandler) AcceptOffer(c echo.Context) error {
	chatID := c.Param("id")

	var req offerActionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if err := h.chatUseCase.AcceptOffer(c.Request().Context(), chatID, req.MessageID, userID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Offer accepted"})
}

func (h *ChatHandler) RejectOffer(c echo.Context) error {
	chatID := c.Param("id")

	var req offerActionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if err := h.chatUseCase.RejectOffer(c.Request().Context(), chatID, req.MessageID, userID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Offer rejected"})
}

// ReconcileOffer finishes an acceptance that updated the offer but failed
// before reserving the listing.
func (h *ChatHandler) ReconcileOffer(c echo.Context) error {
	chatID := c.Param("id")

	var req offerActionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	if err := h.chatUseCase.ReconcileOffer(c.Request().Context(), chatID, req.MessageID, userID); err != nil {
		return response.Error(c, err)
	}
	return c.NoContent(http.StatusOK)
}
