package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"unimarket/internal/domain/entity"
	"unimarket/internal/usecase"
	apperrors "unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

// Inbound frame types.
const (
	FrameTypePing           = "ping"
	FrameTypeStartChat      = "start_chat"
	FrameTypeSetCurrentChat = "set_current_chat"
	FrameTypeSendMessage    = "send_message"
	FrameTypeAcceptOffer    = "accept_offer"
	FrameTypeRejectOffer    = "reject_offer"
)

// Outbound frame types.
const (
	FrameTypePong         = "pong"
	FrameTypeChatList     = "chat_list"
	FrameTypeMessageList  = "message_list"
	FrameTypeChatSelected = "chat_selected"
	FrameTypeError        = "error"
)

type Frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type startChatData struct {
	OtherUserID string `json:"other_user_id"`
	ItemID      string `json:"item_id,omitempty"`
	ItemTitle   string `json:"item_title,omitempty"`
}

type setCurrentChatData struct {
	ChatID string `json:"chat_id"`
}

type sendMessageData struct {
	Text        string  `json:"text"`
	Type        string  `json:"type,omitempty"`
	OfferAmount float64 `json:"offer_amount,omitempty"`
}

type offerActionData struct {
	MessageID string `json:"message_id"`
}

type chatListData struct {
	Chats []*entity.Chat `json:"chats"`
}

type messageListData struct {
	ChatID   string            `json:"chat_id"`
	Messages []*entity.Message `json:"messages"`
}

type errorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client is one websocket connection plus the chat session living behind it.
// It is the session's sink: live snapshots become outbound frames.
type Client struct {
	UserID  string
	Conn    *websocket.Conn
	Send    chan []byte
	Session *usecase.ChatSession
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 16),
	}
}

func (c *Client) ChatsUpdated(chats []*entity.Chat) {
	c.sendFrame(FrameTypeChatList, chatListData{Chats: chats})
}

func (c *Client) MessagesUpdated(chatID string, messages []*entity.Message) {
	c.sendFrame(FrameTypeMessageList, messageListData{ChatID: chatID, Messages: messages})
}

func (c *Client) sendFrame(frameType string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		logger.Error("Failed to marshal %s frame for %s: %v", frameType, c.UserID, err)
		return
	}
	raw, err := json.Marshal(Frame{
		Type:      frameType,
		Data:      payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	select {
	case c.Send <- raw:
	default:
		logger.Warn("Dropping %s frame for slow client %s", frameType, c.UserID)
	}
}

func (c *Client) sendError(err error) {
	code := "INTERNAL_ERROR"
	message := "An unexpected error occurred"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
	}
	c.sendFrame(FrameTypeError, errorData{Code: code, Message: message})
}

// WriteError writes an error frame synchronously, bypassing the Send channel.
// For use before the pumps are running.
func (c *Client) WriteError(code, message string) {
	payload, err := json.Marshal(errorData{Code: code, Message: message})
	if err != nil {
		return
	}
	c.Conn.WriteJSON(Frame{
		Type:      FrameTypeError,
		Data:      payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// ReadPump consumes inbound frames until the connection drops, then tears
// the session down and unregisters.
func (c *Client) ReadPump(ctx context.Context, m *Manager) {
	defer func() {
		c.Session.Close()
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("Websocket read error for %s: %v", c.UserID, err)
			}
			return
		}
		c.handleFrame(ctx, raw)
	}
}

func (c *Client) handleFrame(ctx context.Context, raw []byte) {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		c.sendFrame(FrameTypeError, errorData{Code: "VALIDATION_ERROR", Message: "Invalid frame"})
		return
	}

	switch frame.Type {
	case FrameTypePing:
		c.sendFrame(FrameTypePong, struct{}{})

	case FrameTypeStartChat:
		var data startChatData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			c.sendFrame(FrameTypeError, errorData{Code: "VALIDATION_ERROR", Message: "Invalid start_chat frame"})
			return
		}
		chat, err := c.Session.StartChat(ctx, usecase.StartChatInput{
			OtherUserID: data.OtherUserID,
			ItemID:      data.ItemID,
			ItemTitle:   data.ItemTitle,
		})
		if err != nil {
			c.sendError(err)
			return
		}
		c.sendFrame(FrameTypeChatSelected, chat)

	case FrameTypeSetCurrentChat:
		var data setCurrentChatData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			c.sendFrame(FrameTypeError, errorData{Code: "VALIDATION_ERROR", Message: "Invalid set_current_chat frame"})
			return
		}
		if err := c.Session.SetCurrentChat(ctx, data.ChatID); err != nil {
			c.sendError(err)
			return
		}
		if chat := c.Session.CurrentChat(); chat != nil {
			c.sendFrame(FrameTypeChatSelected, chat)
		}

	case FrameTypeSendMessage:
		var data sendMessageData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			c.sendFrame(FrameTypeError, errorData{Code: "VALIDATION_ERROR", Message: "Invalid send_message frame"})
			return
		}
		if err := c.Session.SendMessage(ctx, data.Text, data.Type, data.OfferAmount); err != nil {
			c.sendError(err)
		}

	case FrameTypeAcceptOffer:
		var data offerActionData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			c.sendFrame(FrameTypeError, errorData{Code: "VALIDATION_ERROR", Message: "Invalid accept_offer frame"})
			return
		}
		if err := c.Session.AcceptOffer(ctx, data.MessageID); err != nil {
			c.sendError(err)
		}

	case FrameTypeRejectOffer:
		var data offerActionData
		if err := json.Unmarshal(frame.Data, &data); err != nil {
			c.sendFrame(FrameTypeError, errorData{Code: "VALIDATION_ERROR", Message: "Invalid reject_offer frame"})
			return
		}
		if err := c.Session.RejectOffer(ctx, data.MessageID); err != nil {
			c.sendError(err)
		}

	default:
		c.sendFrame(FrameTypeError, errorData{Code: "VALIDATION_ERROR", Message: "Unknown frame type"})
	}
}

// WritePump drains the Send channel into the connection.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Warn("Websocket write error for %s: %v", c.UserID, err)
			return
		}
	}
}
