/**
 * @description
 * This package provides a client for the Razorpay Orders API and the checkout
 * signature check. It encapsulates authenticated HTTP requests, amount conversion
 * to paise, and response parsing. Every outbound call runs behind a circuit breaker
 * so a failing gateway is not hammered while it recovers.
 *
 * @dependencies
 * - github.com/sony/gobreaker/v2: Circuit breaker around gateway calls.
 * - github.com/shopspring/decimal: INR amounts.
 */
package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrInvalidSignature means the checkout signature does not match order and payment ids.
	ErrInvalidSignature = errors.New("invalid payment signature")
	// ErrUnavailable means the circuit is open or the gateway could not be reached.
	ErrUnavailable = errors.New("payment gateway unavailable")
)

const (
	CurrencyINR   = "INR"
	breakerName   = "razorpay-api"
	paisePerRupee = 100
)

// Config holds the gateway credentials and tuning.
type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
	// OnStateChange is called on circuit transitions, e.g. to export a gauge.
	OnStateChange func(name string, from, to gobreaker.State)
}

// Client is a client for the Razorpay API.
type Client struct {
	BaseURL    string
	KeyID      string
	keySecret  string
	HTTPClient *http.Client
	cb         *gobreaker.CircuitBreaker[*Order]
}

// NewClient creates a new Razorpay API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.razorpay.com"
	}

	cb := gobreaker.NewCircuitBreaker[*Order](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// Client-side rejections (4xx) say nothing about gateway health.
		IsSuccessful: func(err error) bool {
			var apiErr *ErrorResponse
			return err == nil || (errors.As(err, &apiErr) && apiErr.StatusCode < 500)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("component", "razorpay_client").Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			if cfg.OnStateChange != nil {
				cfg.OnStateChange(name, from, to)
			}
		},
	})

	return &Client{
		BaseURL:    baseURL,
		KeyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		HTTPClient: &http.Client{Timeout: timeout},
		cb:         cb,
	}
}

// Order is the gateway order entity.
type Order struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	Amount     int64             `json:"amount"` // in paise
	AmountPaid int64             `json:"amount_paid"`
	Currency   string            `json:"currency"`
	Receipt    string            `json:"receipt"`
	Status     string            `json:"status"`
	Notes      map[string]string `json:"-"`
	RawNotes   json.RawMessage   `json:"notes"`
}

// AmountINR converts the paise amount back to rupees.
func (o *Order) AmountINR() decimal.Decimal {
	return decimal.New(o.Amount, -2)
}

// parseNotes accepts an object of strings; the API sends [] when there are none.
func (o *Order) parseNotes() {
	o.Notes = map[string]string{}
	if len(o.RawNotes) == 0 || o.RawNotes[0] != '{' {
		return
	}
	_ = json.Unmarshal(o.RawNotes, &o.Notes)
}

type createOrderRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Receipt        string            `json:"receipt"`
	PaymentCapture int               `json:"payment_capture"`
	Notes          map[string]string `json:"notes,omitempty"`
}

// ErrorResponse represents an error from the Razorpay API.
type ErrorResponse struct {
	StatusCode int `json:"-"`
	Err        struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (e *ErrorResponse) Error() string {
	if e.Err.Description != "" {
		return fmt.Sprintf("razorpay api error: %s - %s", e.Err.Code, e.Err.Description)
	}
	return fmt.Sprintf("unknown razorpay api error (status %d)", e.StatusCode)
}

// ToPaise converts an INR amount to the integer paise value the API expects.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(paisePerRupee)).Round(0).IntPart()
}

// CreateOrder opens a captured-on-payment order for amount INR.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string, notes map[string]string) (*Order, error) {
	payload := createOrderRequest{
		Amount:         ToPaise(amount),
		Currency:       CurrencyINR,
		Receipt:        receipt,
		PaymentCapture: 1,
		Notes:          notes,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order request: %w", err)
	}
	return c.execute(ctx, "create_order", http.MethodPost, "/v1/orders", body)
}

// FetchOrder loads an order by id.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	return c.execute(ctx, "fetch_order", http.MethodGet, "/v1/orders/"+url.PathEscape(orderID), nil)
}

// VerifyPaymentSignature checks the checkout signature: hex(HMAC-SHA256(secret, orderID|paymentID)).
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

// VerifySignature is the key-explicit form of VerifyPaymentSignature.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

// VerifyPayment checks the signature and then fetches the order so the caller
// can trust its amount and notes instead of client-supplied values.
func (c *Client) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (*Order, error) {
	if !c.VerifyPaymentSignature(orderID, paymentID, signature) {
		return nil, ErrInvalidSignature
	}
	return c.FetchOrder(ctx, orderID)
}

func (c *Client) execute(ctx context.Context, op, method, path string, body []byte) (*Order, error) {
	order, err := c.cb.Execute(func() (*Order, error) {
		return c.do(ctx, op, method, path, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return order, err
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte) (*Order, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.SetBasicAuth(c.KeyID, c.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errResp := &ErrorResponse{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(bodyBytes, errResp); err != nil {
			log.Warn().Str("component", "razorpay_client").Str("op", op).Int("status", resp.StatusCode).Msg("non-2xx response (unparsable error body)")
		} else {
			log.Warn().Str("component", "razorpay_client").Str("op", op).Int("status", resp.StatusCode).Str("code", errResp.Err.Code).Str("detail", errResp.Err.Description).Msg("non-2xx response")
		}
		return nil, errResp
	}

	var order Order
	if err := json.Unmarshal(bodyBytes, &order); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	order.parseNotes()
	return &order, nil
}
