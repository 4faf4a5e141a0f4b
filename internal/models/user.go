package models

import "time"

// Profile is a user profile document ("users" collection, doc id = auth uid).
// Name and phone are required before any payment order can be created for the
// user, because the gateway needs them for the customer record.
type Profile struct {
	UID       string    `json:"uid" firestore:"-"`
	Email     string    `json:"email" firestore:"email"`
	Name      string    `json:"name" firestore:"name"`
	Phone     string    `json:"phone" firestore:"phone"`
	College   string    `json:"college,omitempty" firestore:"college,omitempty"`
	Branch    string    `json:"branch,omitempty" firestore:"branch,omitempty"`
	Year      string    `json:"year,omitempty" firestore:"year,omitempty"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}
