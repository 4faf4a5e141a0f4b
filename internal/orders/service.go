// Package orders implements the payment-order reconciliation workflow:
// creating gateway orders without duplicates, verifying payment outcomes with
// bounded polling, and transitioning registrations into the paid state
// exactly once.
package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/SalmanNajah/devhost-2025/internal/events"
	"github.com/SalmanNajah/devhost-2025/internal/gateway"
	"github.com/SalmanNajah/devhost-2025/internal/models"
	"github.com/SalmanNajah/devhost-2025/internal/store"
)

var (
	// ErrProfileNotFound means the payer has no profile document.
	ErrProfileNotFound = errors.New("orders: user profile not found")
	// ErrProfileIncomplete means name or phone is missing from the profile.
	ErrProfileIncomplete = errors.New("orders: user profile missing name or phone")
	// ErrInvalidRedirectURL means the return URL is not absolute HTTP(S).
	ErrInvalidRedirectURL = errors.New("orders: invalid redirect url")
	// ErrTeamNotFound means the registration does not exist.
	ErrTeamNotFound = errors.New("orders: team not found")
	// ErrUnknownEvent means the team's event has no configured policy.
	ErrUnknownEvent = errors.New("orders: unknown event")
	// ErrEventMismatch means the request event does not match the team's.
	ErrEventMismatch = errors.New("orders: team does not belong to this event")
	// ErrSizeOutOfRange means the team size is outside the payable bounds.
	ErrSizeOutOfRange = errors.New("orders: team size outside event bounds")
	// ErrAlreadyPaid means the registration is already paid with no order
	// outstanding.
	ErrAlreadyPaid = errors.New("orders: registration already paid")
	// ErrUpstream means the gateway returned an unusable response.
	ErrUpstream = errors.New("orders: unexpected gateway response")
)

var redirectURLPattern = regexp.MustCompile(`^https?://.+`)

// Currency is the only currency the gateway is configured for.
const Currency = "INR"

// PollConfig bounds the verification polling loop.
type PollConfig struct {
	Delay       time.Duration
	MaxAttempts int
}

// DefaultPollConfig polls every 5s up to 5 times, matching the caller-facing
// bound of delay*attempts that request timeouts must exceed.
func DefaultPollConfig() PollConfig {
	return PollConfig{Delay: 5 * time.Second, MaxAttempts: 5}
}

// Service is the order reconciliation workflow.
type Service struct {
	teams    store.Teams
	profiles store.Profiles
	gw       gateway.Client
	policies events.Policies
	poll     PollConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires the workflow. The gateway client is injected so the
// workflow can run against a fake in tests.
func NewService(teams store.Teams, profiles store.Profiles, gw gateway.Client, policies events.Policies, poll PollConfig, logger *zap.Logger) *Service {
	if poll.Delay <= 0 {
		poll.Delay = DefaultPollConfig().Delay
	}
	if poll.MaxAttempts <= 0 {
		poll.MaxAttempts = DefaultPollConfig().MaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		teams:    teams,
		profiles: profiles,
		gw:       gw,
		policies: policies,
		poll:     poll,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateOrderInput is the validated request for a new payment order.
type CreateOrderInput struct {
	EventID       string
	TeamID        string
	RedirectURL   string
	CustomerID    string // defaults to the payer's uid
	CustomerEmail string // defaults to the payer's verified email
}

// CreateOrderResult is returned to the client for checkout redirection.
type CreateOrderResult struct {
	OrderID          string `json:"orderId"`
	PaymentSessionID string `json:"paymentSessionId,omitempty"`
	Amount           int    `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Reused           bool   `json:"reused,omitempty"`
}

// CreateOrder creates a gateway order for a team, or short-circuits when an
// earlier order for the team already went through.
func (s *Service) CreateOrder(ctx context.Context, uid string, in CreateOrderInput) (*CreateOrderResult, error) {
	profile, err := s.profiles.Get(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}
	if profile.Name == "" || profile.Phone == "" {
		return nil, ErrProfileIncomplete
	}
	if !redirectURLPattern.MatchString(in.RedirectURL) {
		return nil, ErrInvalidRedirectURL
	}

	team, err := s.teams.Get(ctx, in.TeamID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, err
	}
	if in.EventID != "" && in.EventID != team.EventID {
		return nil, ErrEventMismatch
	}
	policy, ok := s.policies.Lookup(team.EventID)
	if !ok {
		return nil, ErrUnknownEvent
	}

	// Quick check: if an order is already outstanding and the gateway says it
	// was paid, reuse it instead of creating a duplicate.
	if team.PendingOrderID != "" {
		res := s.verify(ctx, team.PendingOrderID, true)
		if res.Status == models.PaymentStatusSuccess {
			return &CreateOrderResult{
				OrderID:  team.PendingOrderID,
				Amount:   team.PendingOrderAmount,
				Currency: Currency,
				Status:   models.PaymentStatusSuccess,
				Reused:   true,
			}, nil
		}
	} else if team.PaymentDone || team.Registered {
		return nil, ErrAlreadyPaid
	}

	if !policy.FitsSize(len(team.Members)) {
		return nil, ErrSizeOutOfRange
	}
	amount := policy.Charge(len(team.Members))

	customerID := in.CustomerID
	if customerID == "" {
		customerID = uid
	}
	customerEmail := in.CustomerEmail
	if customerEmail == "" {
		customerEmail = profile.Email
	}

	orderID := fmt.Sprintf("order_%d", s.now().UnixMilli())
	created, err := s.gw.CreateOrder(ctx, gateway.CreateOrderRequest{
		OrderID:  orderID,
		Amount:   amount,
		Currency: Currency,
		Customer: gateway.Customer{
			ID:    customerID,
			Name:  profile.Name,
			Email: customerEmail,
			Phone: profile.Phone,
		},
		ReturnURL: in.RedirectURL + "?order_id={order_id}",
	})
	if err != nil {
		s.logger.Error("gateway create order failed", zap.Error(err), zap.String("order_id", orderID))
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if created.PaymentSessionID == "" {
		// Do not persist pending fields for an order we cannot hand to the
		// client; the stored order id must always match a usable session.
		s.logger.Error("gateway response missing payment session", zap.String("order_id", orderID))
		return nil, ErrUpstream
	}

	finalAmount := amount
	if created.Amount > 0 {
		finalAmount = int(math.Round(created.Amount))
	}
	if _, err := s.teams.Mutate(ctx, team.ID, func(t *models.Team) error {
		t.PendingOrderID = orderID
		t.PendingOrderAmount = finalAmount
		t.PendingOrderCreatedAt = s.now().UTC()
		return nil
	}); err != nil {
		return nil, err
	}

	currency := created.Currency
	if currency == "" {
		currency = Currency
	}
	s.logger.Info("order created",
		zap.String("order_id", orderID),
		zap.String("team_id", team.ID),
		zap.Int("amount", finalAmount),
	)
	return &CreateOrderResult{
		OrderID:          orderID,
		PaymentSessionID: created.PaymentSessionID,
		Amount:           finalAmount,
		Currency:         currency,
		Status:           gateway.PaymentStatusPending,
	}, nil
}

// VerifyResult is the terminal outcome reported to the client. Status is
// always SUCCESS or FAIL, never pending.
type VerifyResult struct {
	OrderID  string  `json:"orderId"`
	Amount   float64 `json:"amount,omitempty"`
	Currency string  `json:"currency,omitempty"`
	Status   string  `json:"status"`
}

// VerifyOrder fetches the order outcome, polling in-flight payment attempts
// up to the configured budget, and on success marks every matching
// registration paid exactly once.
func (s *Service) VerifyOrder(ctx context.Context, orderID string) *VerifyResult {
	return s.verify(ctx, orderID, false)
}

func (s *Service) verify(ctx context.Context, orderID string, quick bool) *VerifyResult {
	fail := &VerifyResult{OrderID: orderID, Status: models.PaymentStatusFail}

	order, err := s.gw.FetchOrder(ctx, orderID)
	if err != nil {
		// Upstream trouble degrades to FAIL; verification is retryable.
		s.logger.Warn("fetch order failed", zap.Error(err), zap.String("order_id", orderID))
		return fail
	}

	paid := false
	switch order.Status {
	case gateway.OrderStatusPaid:
		paid = true
	case gateway.OrderStatusActive:
		if !quick {
			paid = s.pollPayments(ctx, orderID)
		}
	}
	if !paid {
		fail.Amount = order.Amount
		fail.Currency = order.Currency
		return fail
	}

	if err := s.confirm(ctx, order); err != nil {
		// The payment went through but our records did not; report FAIL so
		// the client retries and the idempotent confirm finishes the job.
		s.logger.Error("confirm payment failed", zap.Error(err), zap.String("order_id", orderID))
		return fail
	}
	return &VerifyResult{
		OrderID:  orderID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Status:   models.PaymentStatusSuccess,
	}
}

// pollPayments watches the first payment attempt on an active order until it
// reaches a terminal status or the poll budget runs out. Exhaustion is FAIL.
func (s *Service) pollPayments(ctx context.Context, orderID string) bool {
	attempts, err := s.gw.FetchPayments(ctx, orderID)
	if err != nil {
		s.logger.Warn("fetch payments failed", zap.Error(err), zap.String("order_id", orderID))
		return false
	}
	if len(attempts) == 0 {
		return false
	}
	paymentID := attempts[0].PaymentID

	status := gateway.PaymentStatusPending
	for i := 0; i < s.poll.MaxAttempts && status == gateway.PaymentStatusPending; i++ {
		attempt, err := s.gw.FetchPayment(ctx, orderID, paymentID)
		if err != nil {
			s.logger.Warn("fetch payment failed", zap.Error(err), zap.String("order_id", orderID))
			return false
		}
		status = attempt.Status
		if gateway.TerminalPayment(status) {
			break
		}
		timer := time.NewTimer(s.poll.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
	return status == gateway.PaymentStatusSuccess
}

// confirm transitions every registration holding this order into the paid
// state and appends one payment record per transition. Already-paid
// registrations are skipped inside the store transaction.
func (s *Service) confirm(ctx context.Context, order *gateway.Order) error {
	teams, err := s.teams.FindByPendingOrder(ctx, order.OrderID)
	if err != nil {
		return err
	}
	for _, t := range teams {
		rec := &models.Payment{
			OrderID:        order.OrderID,
			RegistrationID: t.ID,
			Amount:         int(math.Round(order.Amount)),
			Currency:       order.Currency,
			Status:         models.PaymentStatusSuccess,
			Customer: models.Customer{
				ID:    order.Customer.ID,
				Name:  order.Customer.Name,
				Email: order.Customer.Email,
				Phone: order.Customer.Phone,
			},
			GatewayOrderID: order.GatewayOrderID,
			PaymentTime:    s.now().UTC(),
		}
		applied, err := s.teams.ConfirmPayment(ctx, t.ID, rec)
		if err != nil {
			return err
		}
		if applied {
			s.logger.Info("registration paid",
				zap.String("order_id", order.OrderID),
				zap.String("team_id", t.ID),
				zap.Float64("amount", order.Amount),
			)
		}
	}
	return nil
}
