package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SalmanNajah/devhost-2025/internal/models"
)

// Memory is an in-process implementation of the repositories, used by unit
// tests and local development without a Firestore project. A single mutex
// stands in for document transactions.
type Memory struct {
	mu       sync.Mutex
	teams    map[string]*models.Team
	profiles map[string]*models.Profile
	payments []*models.Payment
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		teams:    make(map[string]*models.Team),
		profiles: make(map[string]*models.Profile),
	}
}

// Teams returns the team repository.
func (m *Memory) Teams() Teams { return &memTeams{m} }

// Profiles returns the profile repository.
func (m *Memory) Profiles() Profiles { return &memProfiles{m} }

// Payments returns the payment-log repository.
func (m *Memory) Payments() Payments { return &memPayments{m} }

func copyTeam(t *models.Team) *models.Team {
	c := *t
	c.Members = append([]string(nil), t.Members...)
	return &c
}

type memTeams struct {
	m *Memory
}

func (r *memTeams) Create(ctx context.Context, t *models.Team) (string, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	now := time.Now().UTC()
	t.ID = uuid.NewString()
	t.Version = 1
	t.CreatedAt = now
	t.UpdatedAt = now
	r.m.teams[t.ID] = copyTeam(t)
	return t.ID, nil
}

func (r *memTeams) Get(ctx context.Context, id string) (*models.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTeam(t), nil
}

func (r *memTeams) FindByMember(ctx context.Context, eventID, email string) (*models.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, t := range r.m.teams {
		if t.EventID == eventID && t.HasMember(email) {
			return copyTeam(t), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memTeams) FindByLeader(ctx context.Context, eventID, leaderEmail string) (*models.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, t := range r.m.teams {
		if t.EventID == eventID && t.LeaderEmail == leaderEmail {
			return copyTeam(t), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memTeams) FindByPendingOrder(ctx context.Context, orderID string) ([]*models.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Team
	for _, t := range r.m.teams {
		if t.PendingOrderID == orderID {
			out = append(out, copyTeam(t))
		}
	}
	return out, nil
}

func (r *memTeams) Mutate(ctx context.Context, id string, fn func(*models.Team) error) (*models.Team, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	work := copyTeam(t)
	if err := fn(work); err != nil {
		return nil, err
	}
	work.Version++
	work.UpdatedAt = time.Now().UTC()
	r.m.teams[id] = copyTeam(work)
	return work, nil
}

func (r *memTeams) ConfirmPayment(ctx context.Context, id string, rec *models.Payment) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t, ok := r.m.teams[id]
	if !ok {
		return false, ErrNotFound
	}
	if t.PaymentDone {
		return false, nil
	}
	t.PaymentDone = true
	t.Registered = true
	t.PendingOrderID = ""
	t.PendingOrderAmount = 0
	t.PendingOrderCreatedAt = time.Time{}
	t.Version++
	t.UpdatedAt = time.Now().UTC()
	stored := *rec
	stored.ID = uuid.NewString()
	stored.RegistrationID = id
	r.m.payments = append(r.m.payments, &stored)
	return true, nil
}

func (r *memTeams) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.teams[id]; !ok {
		return ErrNotFound
	}
	delete(r.m.teams, id)
	return nil
}

type memProfiles struct {
	m *Memory
}

func (r *memProfiles) Get(ctx context.Context, uid string) (*models.Profile, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.profiles[uid]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *memProfiles) Upsert(ctx context.Context, p *models.Profile) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p.UpdatedAt = time.Now().UTC()
	if existing, ok := r.m.profiles[p.UID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}
	c := *p
	r.m.profiles[p.UID] = &c
	return nil
}

type memPayments struct {
	m *Memory
}

func (r *memPayments) ListByOrder(ctx context.Context, orderID string) ([]*models.Payment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Payment
	for _, p := range r.m.payments {
		if p.OrderID == orderID {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}
