package entity

import "time"

const (
	MessageTypeText  = "text"
	MessageTypeOffer = "offer"
)

// Offer statuses. pending is the only non-terminal state.
const (
	OfferStatusPending  = "pending"
	OfferStatusAccepted = "accepted"
	OfferStatusRejected = "rejected"
)

// Message is one entry in a chat's append-only log. Everything except
// OfferStatus is immutable after creation; OfferStatus is mutated exclusively
// through the offer workflows.
type Message struct {
	ID          string    `json:"id" firestore:"id"`
	ChatID      string    `json:"chat_id" firestore:"chatId"`
	Text        string    `json:"text" firestore:"text"`
	SenderID    string    `json:"sender_id" firestore:"senderId"`
	SenderName  string    `json:"sender_name" firestore:"senderName"`
	Timestamp   time.Time `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	Read        bool      `json:"read" firestore:"read"`
	Type        string    `json:"type" firestore:"type"`
	OfferAmount float64   `json:"offer_amount,omitempty" firestore:"offerAmount,omitempty"`
	OfferStatus string    `json:"offer_status,omitempty" firestore:"offerStatus,omitempty"`
}

func (m *Message) IsOffer() bool {
	return m.Type == MessageTypeOffer
}

// CanTransitionOffer reports whether an offer may move from one status to
// another. accepted and rejected are terminal; there is no path between them
// and none back to pending.
func CanTransitionOffer(from, to string) bool {
	if from != OfferStatusPending {
		return false
	}
	return to == OfferStatusAccepted || to == OfferStatusRejected
}
