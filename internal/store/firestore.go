package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/SalmanNajah/devhost-2025/internal/models"
)

const (
	collRegistrations = "registrations"
	collUsers         = "users"
	collPayments      = "payments"
)

// Firestore bundles the Firestore-backed repositories.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore wraps a Firestore client.
func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

// Teams returns the team repository.
func (f *Firestore) Teams() Teams { return &fsTeams{f} }

// Profiles returns the profile repository.
func (f *Firestore) Profiles() Profiles { return &fsProfiles{f} }

// Payments returns the payment-log repository.
func (f *Firestore) Payments() Payments { return &fsPayments{f} }

func (f *Firestore) teamsColl() *firestore.CollectionRef {
	return f.client.Collection(collRegistrations)
}
func (f *Firestore) usersColl() *firestore.CollectionRef {
	return f.client.Collection(collUsers)
}
func (f *Firestore) paymentsColl() *firestore.CollectionRef {
	return f.client.Collection(collPayments)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func teamFromSnap(snap *firestore.DocumentSnapshot) (*models.Team, error) {
	var t models.Team
	if err := snap.DataTo(&t); err != nil {
		return nil, fmt.Errorf("decode team %s: %w", snap.Ref.ID, err)
	}
	t.ID = snap.Ref.ID
	return &t, nil
}

type fsTeams struct {
	f *Firestore
}

func (r *fsTeams) Create(ctx context.Context, t *models.Team) (string, error) {
	ref := r.f.teamsColl().NewDoc()
	now := time.Now().UTC()
	t.ID = ref.ID
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now
	if _, err := ref.Create(ctx, t); err != nil {
		return "", fmt.Errorf("create team: %w", err)
	}
	return ref.ID, nil
}

func (r *fsTeams) Get(ctx context.Context, id string) (*models.Team, error) {
	snap, err := r.f.teamsColl().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get team: %w", err)
	}
	return teamFromSnap(snap)
}

func (r *fsTeams) first(ctx context.Context, q firestore.Query) (*models.Team, error) {
	it := q.Limit(1).Documents(ctx)
	defer it.Stop()
	snap, err := it.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	return teamFromSnap(snap)
}

func (r *fsTeams) FindByMember(ctx context.Context, eventID, email string) (*models.Team, error) {
	q := r.f.teamsColl().
		Where("eventId", "==", eventID).
		Where("members", "array-contains", email)
	return r.first(ctx, q)
}

func (r *fsTeams) FindByLeader(ctx context.Context, eventID, leaderEmail string) (*models.Team, error) {
	q := r.f.teamsColl().
		Where("eventId", "==", eventID).
		Where("leaderEmail", "==", leaderEmail)
	return r.first(ctx, q)
}

func (r *fsTeams) FindByPendingOrder(ctx context.Context, orderID string) ([]*models.Team, error) {
	it := r.f.teamsColl().Where("pendingOrderId", "==", orderID).Documents(ctx)
	defer it.Stop()
	var out []*models.Team
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query pending orders: %w", err)
		}
		t, err := teamFromSnap(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Mutate runs fn against a fresh read of the team inside a transaction, so
// invariant checks and the write land atomically.
func (r *fsTeams) Mutate(ctx context.Context, id string, fn func(*models.Team) error) (*models.Team, error) {
	ref := r.f.teamsColl().Doc(id)
	var result *models.Team
	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		t, err := teamFromSnap(snap)
		if err != nil {
			return err
		}
		if err := fn(t); err != nil {
			return err
		}
		t.Version++
		t.UpdatedAt = time.Now().UTC()
		result = t
		return tx.Set(ref, t)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *fsTeams) ConfirmPayment(ctx context.Context, id string, rec *models.Payment) (bool, error) {
	ref := r.f.teamsColl().Doc(id)
	applied := false
	err := r.f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		applied = false
		snap, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return ErrNotFound
			}
			return err
		}
		t, err := teamFromSnap(snap)
		if err != nil {
			return err
		}
		if t.PaymentDone {
			// Already credited; re-verification must not double-apply.
			return nil
		}
		t.PaymentDone = true
		t.Registered = true
		t.PendingOrderID = ""
		t.PendingOrderAmount = 0
		t.PendingOrderCreatedAt = time.Time{}
		t.Version++
		t.UpdatedAt = time.Now().UTC()
		if err := tx.Set(ref, t); err != nil {
			return err
		}
		payRef := r.f.paymentsColl().NewDoc()
		stored := *rec
		stored.ID = payRef.ID
		stored.RegistrationID = id
		if err := tx.Create(payRef, &stored); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *fsTeams) Delete(ctx context.Context, id string) error {
	if _, err := r.f.teamsColl().Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}

type fsProfiles struct {
	f *Firestore
}

func (r *fsProfiles) Get(ctx context.Context, uid string) (*models.Profile, error) {
	snap, err := r.f.usersColl().Doc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var p models.Profile
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", uid, err)
	}
	p.UID = uid
	return &p, nil
}

func (r *fsProfiles) Upsert(ctx context.Context, p *models.Profile) error {
	p.UpdatedAt = time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	if _, err := r.f.usersColl().Doc(p.UID).Set(ctx, p); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

type fsPayments struct {
	f *Firestore
}

func (r *fsPayments) ListByOrder(ctx context.Context, orderID string) ([]*models.Payment, error) {
	it := r.f.paymentsColl().Where("orderId", "==", orderID).Documents(ctx)
	defer it.Stop()
	var out []*models.Payment
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query payments: %w", err)
		}
		var p models.Payment
		if err := snap.DataTo(&p); err != nil {
			return nil, fmt.Errorf("decode payment %s: %w", snap.Ref.ID, err)
		}
		p.ID = snap.Ref.ID
		out = append(out, &p)
	}
	return out, nil
}
