package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MinWithdrawalCoins is the smallest withdrawal a user may submit.
const MinWithdrawalCoins = 100

// PaymentRequestStatus tracks a withdrawal through its single admin decision.
type PaymentRequestStatus string

const (
	PaymentRequestStatusPending  PaymentRequestStatus = "pending"
	PaymentRequestStatusApproved PaymentRequestStatus = "approved"
	PaymentRequestStatusRejected PaymentRequestStatus = "rejected"
)

// ParsePaymentRequestStatus accepts the three known statuses.
func ParsePaymentRequestStatus(raw string) (PaymentRequestStatus, bool) {
	switch s := PaymentRequestStatus(raw); s {
	case PaymentRequestStatusPending, PaymentRequestStatusApproved, PaymentRequestStatusRejected:
		return s, true
	}
	return "", false
}

// IsDecision reports whether the status is a terminal admin decision.
func (s PaymentRequestStatus) IsDecision() bool {
	return s == PaymentRequestStatusApproved || s == PaymentRequestStatusRejected
}

// PaymentRequest is a user's withdrawal request. Coins are held (debited) on creation.
type PaymentRequest struct {
	ID          uuid.UUID            `json:"id"`
	UserID      uuid.UUID            `json:"userId"`
	UPIID       string               `json:"upiId"`
	Coins       int64                `json:"coins"`
	Amount      decimal.Decimal      `json:"amount"` // INR, 1:1 with coins
	Status      PaymentRequestStatus `json:"status"`
	Note        string               `json:"note,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	ProcessedAt *time.Time           `json:"processedAt,omitempty"`
}

// WithdrawalRequest is the DTO for POST /payments/request-withdrawal.
type WithdrawalRequest struct {
	Coins int64  `json:"coins" validate:"required,gt=0"`
	UPIID string `json:"upiId" validate:"required,max=100"`
}

// ProcessPaymentRequest is the DTO for PUT /admin/payment-requests/{requestId}.
type ProcessPaymentRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}
