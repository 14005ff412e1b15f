package entity

import "time"

// Listing statuses. The moderation statuses (pending/approved/rejected) are
// owned by the moderation workflow; the chat subsystem only ever moves a
// listing from available to reserved.
const (
	ListingStatusPending   = "pending"
	ListingStatusApproved  = "approved"
	ListingStatusRejected  = "rejected"
	ListingStatusAvailable = "available"
	ListingStatusReserved  = "reserved"
	ListingStatusSold      = "sold"
)

type Listing struct {
	ID          string    `json:"id" firestore:"id"`
	OwnerID     string    `json:"owner_id" firestore:"ownerId"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	Price       float64   `json:"price,omitempty" firestore:"price,omitempty"`
	Category    string    `json:"category,omitempty" firestore:"category,omitempty"`
	Status      string    `json:"status" firestore:"status"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}
