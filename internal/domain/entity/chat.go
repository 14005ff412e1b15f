package entity

import (
	"sort"
	"strings"
	"time"
)

// Participant is a snapshot of a user captured when the chat is created. It is
// not re-synced if the user later renames themselves.
type Participant struct {
	UserID   string `json:"user_id" firestore:"userId"`
	Name     string `json:"name" firestore:"name"`
	Email    string `json:"email" firestore:"email"`
	Username string `json:"username" firestore:"username"`
}

// Chat is a two-party conversation, optionally scoped to one listing. A
// listing-scoped chat and a general chat between the same pair are distinct
// conversations. ParticipantIDs never changes after creation.
type Chat struct {
	ID              string        `json:"id" firestore:"id"`
	ParticipantIDs  []string      `json:"participant_ids" firestore:"participantIds"`
	Participants    []Participant `json:"participants" firestore:"participants"`
	ItemID          string        `json:"item_id,omitempty" firestore:"itemId,omitempty"`
	ItemTitle       string        `json:"item_title,omitempty" firestore:"itemTitle,omitempty"`
	LastMessage     string        `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageTime time.Time     `json:"last_message_time" firestore:"lastMessageTime,serverTimestamp"`
	CreatedAt       time.Time     `json:"created_at" firestore:"createdAt,serverTimestamp"`
}

// ChatDocID derives the document id for the chat between two users, scoped to
// a listing when itemID is non-empty. The id is order-insensitive in the two
// user ids, so concurrent get-or-create attempts from both sides collapse
// into the same document instead of racing a query-then-insert.
func ChatDocID(userA, userB, itemID string) string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	parts := pair
	if itemID != "" {
		parts = append(parts, itemID)
	}
	return strings.Join(parts, "_")
}

func (c *Chat) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the snapshot of the participant that is not userID.
func (c *Chat) OtherParticipant(userID string) *Participant {
	for i := range c.Participants {
		if c.Participants[i].UserID != userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// IsListingScoped reports whether this chat negotiates a specific listing.
// Offers are only meaningful in listing-scoped chats.
func (c *Chat) IsListingScoped() bool {
	return c.ItemID != ""
}
