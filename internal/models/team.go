package models

import "time"

// HackathonEventID is the sentinel event key for the hackathon track.
// Regular events use the keys configured in internal/events.
const HackathonEventID = "hackathon"

// Team is the payable unit of registration: a leader plus 0..N members,
// stored as one document in the "registrations" collection.
type Team struct {
	ID          string   `json:"id" firestore:"-"`
	EventID     string   `json:"eventId" firestore:"eventId"`
	TeamName    string   `json:"teamName,omitempty" firestore:"teamName,omitempty"`
	LeaderEmail string   `json:"leaderEmail" firestore:"leaderEmail"`
	LeaderName  string   `json:"leaderName,omitempty" firestore:"leaderName,omitempty"`
	Members     []string `json:"members" firestore:"members"`

	Registered  bool   `json:"registered" firestore:"registered"`
	PaymentDone bool   `json:"paymentDone" firestore:"paymentDone"`
	Finalized   bool   `json:"finalized" firestore:"finalized"`
	DriveLink   string `json:"driveLink,omitempty" firestore:"driveLink,omitempty"`

	// Pending-order fields are set while a gateway order is outstanding and
	// cleared in the same transaction that marks the team paid.
	PendingOrderID        string    `json:"pendingOrderId,omitempty" firestore:"pendingOrderId,omitempty"`
	PendingOrderAmount    int       `json:"pendingOrderAmount,omitempty" firestore:"pendingOrderAmount,omitempty"`
	PendingOrderCreatedAt time.Time `json:"pendingOrderCreatedAt,omitempty" firestore:"pendingOrderCreatedAt,omitempty"`

	// Version is bumped on every mutation; stale writes are rejected.
	Version   int64     `json:"-" firestore:"version"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// HasMember reports whether email is the leader or a member.
func (t *Team) HasMember(email string) bool {
	for _, m := range t.Members {
		if m == email {
			return true
		}
	}
	return false
}

// RemoveMember drops email from the member list. Returns false if absent.
func (t *Team) RemoveMember(email string) bool {
	for i, m := range t.Members {
		if m == email {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return true
		}
	}
	return false
}

// AddMember appends email if not already present (set-union semantics, so
// repeated joins are idempotent at the storage layer).
func (t *Team) AddMember(email string) bool {
	if t.HasMember(email) {
		return false
	}
	t.Members = append(t.Members, email)
	return true
}

// Locked reports whether membership is immutable (finalized or already paid).
func (t *Team) Locked() bool {
	return t.Finalized || t.Registered
}
