// Package gateway wraps the Cashfree payment gateway. Callers depend on the
// Client interface; the REST implementation is injected at startup so the
// order workflow can be tested against a fake.
package gateway

import "context"

// Order statuses returned by the gateway.
const (
	OrderStatusActive    = "ACTIVE"
	OrderStatusPaid      = "PAID"
	OrderStatusExpired   = "EXPIRED"
	OrderStatusFailed    = "FAILED"
	OrderStatusCancelled = "CANCELLED"
)

// Payment attempt statuses returned by the gateway.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusSuccess   = "SUCCESS"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusCancelled = "CANCELLED"
)

// Customer identifies the payer on an order.
type Customer struct {
	ID    string `json:"customer_id"`
	Name  string `json:"customer_name"`
	Email string `json:"customer_email,omitempty"`
	Phone string `json:"customer_phone"`
}

// CreateOrderRequest is the payload for creating a gateway order.
type CreateOrderRequest struct {
	OrderID   string
	Amount    int // whole INR
	Currency  string
	Customer  Customer
	ReturnURL string
}

// Order is a gateway order as returned by create/fetch calls.
type Order struct {
	OrderID          string   `json:"order_id"`
	GatewayOrderID   string   `json:"cf_order_id"`
	Status           string   `json:"order_status"`
	PaymentSessionID string   `json:"payment_session_id"`
	Amount           float64  `json:"order_amount"`
	Currency         string   `json:"order_currency"`
	Customer         Customer `json:"customer_details"`
}

// PaymentAttempt is one payment attempt against an order.
type PaymentAttempt struct {
	PaymentID int64  `json:"cf_payment_id"`
	Status    string `json:"payment_status"`
}

// Client is the payment gateway collaborator.
type Client interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	FetchPayments(ctx context.Context, orderID string) ([]PaymentAttempt, error)
	FetchPayment(ctx context.Context, orderID string, paymentID int64) (*PaymentAttempt, error)
}

// TerminalPayment reports whether a payment attempt status will not change
// anymore.
func TerminalPayment(status string) bool {
	switch status {
	case PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusCancelled:
		return true
	}
	return false
}
