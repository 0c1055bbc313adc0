package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	// MinRechargeAmount is the smallest wallet recharge in INR.
	MinRechargeAmount = decimal.NewFromInt(10)
	// SubscriptionPrice is the monthly subscription price in INR.
	SubscriptionPrice = decimal.NewFromInt(199)
)

// SubscriptionBonusCoins are credited on each verified subscription payment.
const SubscriptionBonusCoins = 150

// Gateway order purposes, stored in order notes and checked on verification.
const (
	PaymentPurposeRecharge     = "recharge"
	PaymentPurposeSubscription = "subscription"
)

// RechargeOrderRequest is the DTO for POST /payments/recharge-wallet.
type RechargeOrderRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PaymentVerificationRequest is the DTO for both verify endpoints.
type PaymentVerificationRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// PaymentOrder is returned to the client to open the gateway checkout.
type PaymentOrder struct {
	OrderID  string          `json:"orderId"`
	Amount   decimal.Decimal `json:"amount"`
	Coins    int64           `json:"coins,omitempty"`
	Currency string          `json:"currency"`
	Key      string          `json:"key"`
}

// RechargeOutcome reports the result of a verified recharge.
type RechargeOutcome struct {
	CoinsAdded    int64           `json:"coinsAdded"`
	AmountAdded   decimal.Decimal `json:"amountAdded"`
	BecameCreator bool            `json:"becameCreator"`
	User          User            `json:"-"`
}

// SubscriptionOutcome reports the result of a verified subscription payment.
type SubscriptionOutcome struct {
	CoinsAdded int64     `json:"coinsAdded"`
	ExpiryDate time.Time `json:"expiryDate"`
	User       User      `json:"-"`
}
