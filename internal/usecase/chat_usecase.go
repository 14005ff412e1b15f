package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"unimarket/internal/domain/entity"
	"unimarket/internal/domain/repository"
	"unimarket/internal/infrastructure/ratelimit"
	"unimarket/pkg/errors"
	"unimarket/pkg/logger"
)

// ChatUseCase composes the chat directory, the message log and the offer
// workflows. The offer workflows validate everything before the first write,
// so a validation failure never leaves partial state; only the inherent
// multi-write gap of acceptance can, and that surfaces as PARTIAL_FAILURE.
type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	listingRepo repository.ListingRepository
	rateLimiter *ratelimit.RateLimiter
	currency    string
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	listingRepo repository.ListingRepository,
	currency string,
) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		listingRepo: listingRepo,
		rateLimiter: rateLimiter,
		currency:    currency,
	}
}

type StartChatInput struct {
	OtherUserID string
	ItemID      string
	ItemTitle   string
}

type SendMessageInput struct {
	ChatID      string
	Text        string
	Type        string
	OfferAmount float64
}

// GetOrCreateChat resolves the single chat between the caller and the other
// user, scoped to a listing when ItemID is set. Both orderings of the pair
// resolve to the same chat. Participant order in the stored document carries
// no authority; seller identity always comes from the listing's owner.
func (uc *ChatUseCase) GetOrCreateChat(ctx context.Context, userID string, input StartChatInput) (*entity.Chat, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "create_chat")
	if !allowed {
		logger.Warn("GetOrCreateChat rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before starting another chat")
	}

	if userID == input.OtherUserID {
		return nil, errors.Validation("You cannot start a chat with yourself", nil)
	}

	currentUser, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	otherUser, err := uc.userRepo.GetByID(ctx, input.OtherUserID)
	if err != nil {
		return nil, err
	}

	itemTitle := input.ItemTitle
	if input.ItemID != "" {
		listing, err := uc.listingRepo.GetByID(ctx, input.ItemID)
		if err != nil {
			return nil, err
		}
		if itemTitle == "" {
			itemTitle = listing.Title
		}
	}

	chat := &entity.Chat{
		ID:             entity.ChatDocID(userID, input.OtherUserID, input.ItemID),
		ParticipantIDs: []string{userID, input.OtherUserID},
		Participants: []entity.Participant{
			{
				UserID:   currentUser.ID,
				Name:     currentUser.Name(),
				Email:    currentUser.Email,
				Username: currentUser.Username,
			},
			{
				UserID:   otherUser.ID,
				Name:     otherUser.Name(),
				Email:    otherUser.Email,
				Username: otherUser.Username,
			},
		},
		ItemID:    input.ItemID,
		ItemTitle: itemTitle,
	}

	return uc.chatRepo.GetOrCreate(ctx, chat)
}

// SendMessage appends one message to the chat's log and refreshes the parent
// chat's preview fields. Offer messages start pending and are only allowed in
// listing-scoped chats.
func (uc *ChatUseCase) SendMessage(ctx context.Context, userID string, input SendMessageInput) (*entity.Message, error) {
	allowed, waitTime := uc.rateLimiter.Allow(userID, "send_message")
	if !allowed {
		logger.Warn("SendMessage rate limited: user %s must wait %v", userID, waitTime)
		return nil, errors.TooManyRequests("Rate limit exceeded. Please wait before sending another message")
	}

	chat, err := uc.chatRepo.GetByID(ctx, input.ChatID)
	if err != nil {
		return nil, err
	}

	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	msgType := input.Type
	if msgType == "" {
		msgType = entity.MessageTypeText
	}

	text := strings.TrimSpace(input.Text)

	switch msgType {
	case entity.MessageTypeText:
		if text == "" {
			return nil, errors.Validation("Message text must not be empty", nil)
		}
	case entity.MessageTypeOffer:
		if input.OfferAmount <= 0 {
			return nil, errors.Validation("Offer amount must be positive", nil)
		}
		if !chat.IsListingScoped() {
			return nil, errors.Validation("Offers are only allowed in listing chats", nil)
		}
	default:
		return nil, errors.Validation("Unknown message type", nil)
	}

	sender, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	message := &entity.Message{
		ChatID:     input.ChatID,
		Text:       text,
		SenderID:   userID,
		SenderName: sender.Name(),
		Type:       msgType,
	}
	if msgType == entity.MessageTypeOffer {
		message.OfferAmount = input.OfferAmount
		message.OfferStatus = entity.OfferStatusPending
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}

	preview := text
	if msgType == entity.MessageTypeOffer {
		preview = uc.offerPreview(input.OfferAmount)
	}

	if err := uc.chatRepo.UpdateLastMessage(ctx, input.ChatID, preview); err != nil {
		logger.Error("SendMessage: message %s stored but preview update failed: %v", message.ID, err)
		return nil, err
	}

	return message, nil
}

// AcceptOffer is the seller-side acceptance workflow: mark the offer
// accepted, reserve the listing, announce the acceptance in the chat. All
// checks run before the first write. Failures after the offer is marked
// accepted come back as PARTIAL_FAILURE so the caller knows the workflow
// stopped halfway; ReconcileOffer can finish the listing step.
func (uc *ChatUseCase) AcceptOffer(ctx context.Context, chatID, messageID, userID string) error {
	chat, message, listing, err := uc.loadOfferContext(ctx, chatID, messageID, userID)
	if err != nil {
		return err
	}

	if !entity.CanTransitionOffer(message.OfferStatus, entity.OfferStatusAccepted) {
		return errors.InvalidState(fmt.Sprintf("Offer is %s, not pending", message.OfferStatus), nil)
	}

	if err := uc.chatRepo.UpdateOfferStatus(ctx, chatID, messageID, entity.OfferStatusAccepted); err != nil {
		return err
	}

	if err := uc.listingRepo.UpdateStatus(ctx, listing.ID, entity.ListingStatusReserved); err != nil {
		logger.Error("AcceptOffer: offer %s accepted but listing %s not reserved: %v", messageID, listing.ID, err)
		return errors.PartialFailure("Offer accepted but the listing was not reserved; retry via reconcile", err)
	}

	announcement := fmt.Sprintf("%s accepted the offer of %s", uc.participantName(chat, userID), uc.offerPreviewAmount(message.OfferAmount))
	if err := uc.appendConfirmation(ctx, chat, userID, announcement); err != nil {
		logger.Error("AcceptOffer: offer %s accepted but confirmation not sent: %v", messageID, err)
		return errors.PartialFailure("Offer accepted but the confirmation message was not sent", err)
	}

	return nil
}

// RejectOffer marks the offer rejected and announces it. The listing is never
// touched on rejection.
func (uc *ChatUseCase) RejectOffer(ctx context.Context, chatID, messageID, userID string) error {
	chat, message, _, err := uc.loadOfferContext(ctx, chatID, messageID, userID)
	if err != nil {
		return err
	}

	if !entity.CanTransitionOffer(message.OfferStatus, entity.OfferStatusRejected) {
		return errors.InvalidState(fmt.Sprintf("Offer is %s, not pending", message.OfferStatus), nil)
	}

	if err := uc.chatRepo.UpdateOfferStatus(ctx, chatID, messageID, entity.OfferStatusRejected); err != nil {
		return err
	}

	announcement := fmt.Sprintf("%s rejected the offer of %s", uc.participantName(chat, userID), uc.offerPreviewAmount(message.OfferAmount))
	if err := uc.appendConfirmation(ctx, chat, userID, announcement); err != nil {
		logger.Error("RejectOffer: offer %s rejected but confirmation not sent: %v", messageID, err)
		return errors.PartialFailure("Offer rejected but the confirmation message was not sent", err)
	}

	return nil
}

// ReconcileOffer completes the listing step of an acceptance that failed
// halfway: an offer already marked accepted whose listing never became
// reserved. Idempotent; reconciling a fully-applied acceptance is a no-op.
func (uc *ChatUseCase) ReconcileOffer(ctx context.Context, chatID, messageID, userID string) error {
	_, message, listing, err := uc.loadOfferContext(ctx, chatID, messageID, userID)
	if err != nil {
		return err
	}

	if message.OfferStatus != entity.OfferStatusAccepted {
		return errors.InvalidState("Only accepted offers can be reconciled", nil)
	}

	if listing.Status == entity.ListingStatusReserved {
		return nil
	}

	return uc.listingRepo.UpdateStatus(ctx, listing.ID, entity.ListingStatusReserved)
}

// loadOfferContext runs the shared validation of the offer workflows: the
// message must be an offer in a listing-scoped chat, and the acting user must
// own the listing — ownership is read fresh from the listing store, never
// inferred from participant positions.
func (uc *ChatUseCase) loadOfferContext(ctx context.Context, chatID, messageID, userID string) (*entity.Chat, *entity.Message, *entity.Listing, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, nil, nil, err
	}

	if !chat.HasParticipant(userID) {
		return nil, nil, nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	message, err := uc.chatRepo.GetMessageByID(ctx, chatID, messageID)
	if err != nil {
		return nil, nil, nil, err
	}

	if !message.IsOffer() {
		return nil, nil, nil, errors.InvalidState("Message is not an offer", nil)
	}

	if !chat.IsListingScoped() {
		return nil, nil, nil, errors.InvalidState("Offers cannot be resolved in a general chat", nil)
	}

	listing, err := uc.listingRepo.GetByID(ctx, chat.ItemID)
	if err != nil {
		return nil, nil, nil, err
	}

	if listing.OwnerID != userID {
		return nil, nil, nil, errors.Forbidden("Only the listing owner can resolve an offer", nil)
	}

	return chat, message, listing, nil
}

// appendConfirmation writes the announcement text message from the seller and
// refreshes the chat preview, bypassing the send rate limit.
func (uc *ChatUseCase) appendConfirmation(ctx context.Context, chat *entity.Chat, userID, text string) error {
	message := &entity.Message{
		ChatID:     chat.ID,
		Text:       text,
		SenderID:   userID,
		SenderName: uc.participantName(chat, userID),
		Type:       entity.MessageTypeText,
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		return err
	}
	return uc.chatRepo.UpdateLastMessage(ctx, chat.ID, text)
}

func (uc *ChatUseCase) participantName(chat *entity.Chat, userID string) string {
	for _, p := range chat.Participants {
		if p.UserID == userID {
			return p.Name
		}
	}
	return userID
}

func (uc *ChatUseCase) offerPreview(amount float64) string {
	return "Offer: " + uc.offerPreviewAmount(amount)
}

func (uc *ChatUseCase) offerPreviewAmount(amount float64) string {
	return fmt.Sprintf("%s %s", uc.currency, strconv.FormatFloat(amount, 'f', -1, 64))
}

func (uc *ChatUseCase) GetUserChats(ctx context.Context, userID string, limit, offset int) ([]*entity.Chat, int64, error) {
	return uc.chatRepo.ListByUser(ctx, userID, limit, offset)
}

func (uc *ChatUseCase) GetChatByID(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	return chat, nil
}

func (uc *ChatUseCase) GetChatMessages(ctx context.Context, userID, chatID string) ([]*entity.Message, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if !chat.HasParticipant(userID) {
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	return uc.chatRepo.ListMessages(ctx, chatID)
}
