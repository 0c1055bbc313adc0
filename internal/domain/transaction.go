/**
 * @description
 * This file defines the core domain models for the ledger-service.
 * These structs represent the main entities and data transfer objects (DTOs)
 * used throughout the service's business logic, database interactions, and API layers.
 *
 * @notes
 * - Coins are whole virtual units and are stored as `int64`.
 * - Real-currency amounts (INR) use shopspring/decimal, mapped to NUMERIC columns,
 *   which avoids floating-point inaccuracies with financial data.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a journal entry. The sign of Coins is implied by the type.
type TransactionType string

const (
	TransactionTypeEarn         TransactionType = "earn"
	TransactionTypeSpend        TransactionType = "spend"
	TransactionTypeSubscription TransactionType = "subscription"
	TransactionTypeRecharge     TransactionType = "recharge"
)

// TransactionStatus is set once when the entry is written.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is an immutable journal record of a coin or currency movement.
// This struct maps directly to the `transactions` table in the database.
type Transaction struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"userId"`
	VideoID          *uuid.UUID        `json:"videoId,omitempty"`
	Type             TransactionType   `json:"type"`
	Amount           decimal.Decimal   `json:"amount"` // in INR, may be zero
	Coins            int64             `json:"coins"`
	Status           TransactionStatus `json:"status"`
	GatewayPaymentID *string           `json:"razorpayPaymentId,omitempty"`
	GatewayOrderID   *string           `json:"razorpayOrderId,omitempty"`
	GatewaySignature *string           `json:"-"`
	CreatedAt        time.Time         `json:"createdAt"`
}

// NewTransaction builds a completed journal entry with zero currency amount.
func NewTransaction(userID uuid.UUID, txType TransactionType, coins int64) *Transaction {
	return &Transaction{
		UserID: userID,
		Type:   txType,
		Amount: decimal.Zero,
		Coins:  coins,
		Status: TransactionStatusCompleted,
	}
}

// WithVideo links the entry to a campaign.
func (t *Transaction) WithVideo(videoID uuid.UUID) *Transaction {
	id := videoID
	t.VideoID = &id
	return t
}

// WithGatewayPayment attaches the verified gateway identifiers and the settled amount.
func (t *Transaction) WithGatewayPayment(payment VerifiedPayment) *Transaction {
	orderID := payment.OrderID
	paymentID := payment.PaymentID
	signature := payment.Signature
	t.GatewayOrderID = &orderID
	t.GatewayPaymentID = &paymentID
	t.GatewaySignature = &signature
	t.Amount = payment.Amount
	return t
}

// VerifiedPayment is the outcome of a successful gateway signature and order check.
type VerifiedPayment struct {
	OrderID   string
	PaymentID string
	Signature string
	Amount    decimal.Decimal
}

// TransactionHistoryPage is one newest-first page of a user's journal.
type TransactionHistoryPage struct {
	Transactions []Transaction `json:"transactions"`
	Limit        int           `json:"limit"`
	Offset       int           `json:"offset"`
}
