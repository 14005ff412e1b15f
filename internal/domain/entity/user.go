package entity

import "time"

type User struct {
	ID          string    `json:"id" firestore:"id"`
	Email       string    `json:"email" firestore:"email"`
	Username    string    `json:"username" firestore:"username"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	Role        string    `json:"role" firestore:"role"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}

// Name resolves the label shown next to a user's messages. Falls back to the
// username when no display name was ever set.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
