// Package store persists registrations, user profiles, and the payment log
// in a document database. The production implementation is Firestore; an
// in-memory implementation backs unit tests and local development.
package store

import (
	"context"
	"errors"

	"github.com/SalmanNajah/devhost-2025/internal/models"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("store: not found")

// Teams persists team/registration documents.
//
// Mutate and ConfirmPayment are transactional read-modify-writes: the
// callback (or the paid-flag guard) runs against a fresh read and the write
// is rejected if the document changed underneath, so capacity, finalize, and
// payment invariants hold under concurrent requests.
type Teams interface {
	Create(ctx context.Context, t *models.Team) (string, error)
	Get(ctx context.Context, id string) (*models.Team, error)
	// FindByMember returns the team for the event that email belongs to
	// (leader or member), or ErrNotFound.
	FindByMember(ctx context.Context, eventID, email string) (*models.Team, error)
	// FindByLeader returns the event team led by leaderEmail, or ErrNotFound.
	FindByLeader(ctx context.Context, eventID, leaderEmail string) (*models.Team, error)
	// FindByPendingOrder returns every team whose pendingOrderId equals
	// orderID. At most one is expected; the result is a slice for robustness.
	FindByPendingOrder(ctx context.Context, orderID string) ([]*models.Team, error)
	// Mutate applies fn to a fresh copy of the team inside a transaction and
	// persists the result with a version bump. An error from fn aborts the
	// transaction and is returned unchanged.
	Mutate(ctx context.Context, id string, fn func(*models.Team) error) (*models.Team, error)
	// ConfirmPayment marks the team paid, clears its pending-order fields,
	// and appends rec to the payment log, all in one transaction. It is a
	// no-op returning false when the team is already marked paid, so
	// re-verification never double-applies.
	ConfirmPayment(ctx context.Context, id string, rec *models.Payment) (bool, error)
	Delete(ctx context.Context, id string) error
}

// Profiles persists user profiles keyed by auth uid.
type Profiles interface {
	Get(ctx context.Context, uid string) (*models.Profile, error)
	Upsert(ctx context.Context, p *models.Profile) error
}

// Payments reads the append-only payment log. Writes happen only through
// Teams.ConfirmPayment.
type Payments interface {
	ListByOrder(ctx context.Context, orderID string) ([]*models.Payment, error)
}
