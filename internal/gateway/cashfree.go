package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	// SandboxBaseURL is the Cashfree PG sandbox endpoint.
	SandboxBaseURL = "https://sandbox.cashfree.com/pg"
	// ProductionBaseURL is the Cashfree PG production endpoint.
	ProductionBaseURL = "https://api.cashfree.com/pg"

	apiVersion = "2023-08-01"
)

// ErrMissingCredentials is returned by NewCashfree when the client id or
// secret is not configured.
var ErrMissingCredentials = errors.New("gateway: missing cashfree credentials")

// CashfreeConfig configures the REST client.
type CashfreeConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // SandboxBaseURL or ProductionBaseURL
	Timeout      time.Duration
}

// Cashfree calls the Cashfree PG REST API.
type Cashfree struct {
	cfg    CashfreeConfig
	http   *http.Client
	logger *zap.Logger
}

// NewCashfree builds the REST client, failing fast on missing credentials so
// misconfiguration surfaces at startup rather than as a 400 to users.
func NewCashfree(cfg CashfreeConfig, logger *zap.Logger) (*Cashfree, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = SandboxBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cashfree{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}, nil
}

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

func (c *Cashfree) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("cashfree: encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("cashfree: build request: %w", err)
	}
	req.Header.Set("x-client-id", c.cfg.ClientID)
	req.Header.Set("x-client-secret", c.cfg.ClientSecret)
	req.Header.Set("x-api-version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cashfree: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		c.logger.Warn("cashfree api error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message),
		)
		return fmt.Errorf("cashfree: %s %s: http %d: %s", method, path, resp.StatusCode, apiErr.Message)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cashfree: decode response: %w", err)
	}
	return nil
}

type createOrderPayload struct {
	OrderID       string    `json:"order_id"`
	OrderAmount   int       `json:"order_amount"`
	OrderCurrency string    `json:"order_currency"`
	Customer      Customer  `json:"customer_details"`
	OrderMeta     orderMeta `json:"order_meta"`
}

type orderMeta struct {
	ReturnURL string `json:"return_url"`
}

// CreateOrder creates a new order and payment session.
func (c *Cashfree) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	payload := createOrderPayload{
		OrderID:       req.OrderID,
		OrderAmount:   req.Amount,
		OrderCurrency: req.Currency,
		Customer:      req.Customer,
		OrderMeta:     orderMeta{ReturnURL: req.ReturnURL},
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", payload, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchOrder returns the current state of an order.
func (c *Cashfree) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchPayments lists payment attempts made against an order.
func (c *Cashfree) FetchPayments(ctx context.Context, orderID string) ([]PaymentAttempt, error) {
	var attempts []PaymentAttempt
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID+"/payments", nil, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

// FetchPayment returns the state of one payment attempt.
func (c *Cashfree) FetchPayment(ctx context.Context, orderID string, paymentID int64) (*PaymentAttempt, error) {
	var attempt PaymentAttempt
	path := "/orders/" + orderID + "/payments/" + strconv.FormatInt(paymentID, 10)
	if err := c.do(ctx, http.MethodGet, path, nil, &attempt); err != nil {
		return nil, err
	}
	return &attempt, nil
}
