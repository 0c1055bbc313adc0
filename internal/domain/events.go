package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routing keys for ledger events published after a successful commit.
const (
	EventCampaignCreated       = "campaign.created"
	EventCampaignViewRecorded  = "campaign.view.recorded"
	EventWithdrawalRequested   = "withdrawal.requested"
	EventWithdrawalProcessed   = "withdrawal.processed"
	EventWalletRecharged       = "wallet.recharged"
	EventSubscriptionActivated = "subscription.activated"
)

// LedgerEvent is the message emitted to downstream consumers (notifications, analytics).
type LedgerEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	UserID     uuid.UUID       `json:"user_id"`
	VideoID    *uuid.UUID      `json:"video_id,omitempty"`
	RequestID  *uuid.UUID      `json:"request_id,omitempty"`
	Coins      int64           `json:"coins"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EventUserRegistered is consumed from the identity service to provision wallets.
const EventUserRegistered = "user.registered"

// UserRegisteredEvent is the identity service's announcement of a new account.
type UserRegisteredEvent struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	UserType  string `json:"user_type"`
}
