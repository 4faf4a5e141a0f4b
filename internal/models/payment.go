package models

import "time"

// Payment statuses recorded in the payments log.
const (
	PaymentStatusSuccess = "SUCCESS"
	PaymentStatusFail    = "FAIL"
)

// Customer is the snapshot of customer details stored with a payment.
type Customer struct {
	ID    string `json:"customer_id" firestore:"customerId"`
	Name  string `json:"customer_name" firestore:"customerName"`
	Email string `json:"customer_email" firestore:"customerEmail"`
	Phone string `json:"customer_phone" firestore:"customerPhone"`
}

// Payment is an append-only log entry, created exactly once per successful
// order per registration and never mutated afterwards.
type Payment struct {
	ID             string    `json:"id" firestore:"-"`
	OrderID        string    `json:"orderId" firestore:"orderId"`
	RegistrationID string    `json:"registrationId" firestore:"registrationId"`
	Amount         int       `json:"amount" firestore:"amount"`
	Currency       string    `json:"currency" firestore:"currency"`
	Status         string    `json:"status" firestore:"status"`
	Customer       Customer  `json:"customer" firestore:"customer"`
	GatewayOrderID string    `json:"cfOrderId,omitempty" firestore:"cfOrderId,omitempty"`
	PaymentTime    time.Time `json:"paymentTime" firestore:"paymentTime"`
}
