package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pizzabox/pizzabox-backend/pkg/config"
)

// ErrSignatureMismatch marks a checkout callback whose HMAC does not match.
// Callers treat it differently from transport failures.
var ErrSignatureMismatch = errors.New("razorpay signature mismatch")

// Order is the gateway-side order created before checkout.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Payment is the gateway-side payment record.
type Payment struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	Method      string `json:"method"`
	ErrorReason string `json:"error_reason"`
}

// CreateOrderParams describes the order to open on the gateway. Amount is in
// the currency's smallest unit (paise for INR).
type CreateOrderParams struct {
	Amount   int64
	Currency string
	Receipt  string
}

// Gateway is the payment-provider surface the payments service depends on.
type Gateway interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	VerifySignature(orderID, paymentID, signature string) error
}

// Client talks to the Razorpay REST API using basic auth.
type Client struct {
	http      *resty.Client
	keyID     string
	keySecret string
}

func New(cfg config.RazorpayConfig) (*Client, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("razorpay credentials are required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: http, keyID: cfg.KeyID, keySecret: cfg.KeySecret}, nil
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder opens an order on the gateway.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	if params.Amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	if params.Currency == "" {
		params.Currency = "INR"
	}

	var (
		order  Order
		apiErr apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]any{
			"amount":   params.Amount,
			"currency": params.Currency,
			"receipt":  params.Receipt,
		}).
		SetResult(&order).
		SetError(&apiErr).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("create order failed with status %d: %s", resp.StatusCode(), apiErr.Error.Description)
	}
	if order.ID == "" {
		return nil, errors.New("gateway returned an order without an id")
	}
	return &order, nil
}

// FetchPayment pulls the current payment state from the gateway.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if paymentID == "" {
		return nil, errors.New("payment id is required")
	}

	var (
		payment Payment
		apiErr  apiError
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&payment).
		SetError(&apiErr).
		Get("/payments/" + paymentID)
	if err != nil {
		return nil, fmt.Errorf("fetch payment: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch payment failed with status %d: %s", resp.StatusCode(), apiErr.Error.Description)
	}
	return &payment, nil
}

// VerifySignature checks the checkout callback HMAC. The signed message is
// "<order_id>|<payment_id>" keyed with the API secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) error {
	if orderID == "" || paymentID == "" || signature == "" {
		return ErrSignatureMismatch
	}
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}
