/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the ledger-service. Every method that moves coins
 * or currency is a single atomic unit: the balance change, the campaign or withdrawal
 * state change, and the journal entry commit together or not at all.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation and handling.
 * - github.com/shopspring/decimal: Currency amounts.
 * - internal/domain: For the service's domain models.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/viewcoin/ledger-service/internal/domain"
)

var (
	ErrUserNotFound           = errors.New("user not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrCampaignNotFound       = errors.New("video not found")
	ErrCampaignInactive       = errors.New("video is no longer active")
	ErrBudgetExhausted        = errors.New("video has reached its budget limit")
	ErrNotCampaignOwner       = errors.New("not authorized to update this video")
	ErrPaymentRequestNotFound = errors.New("payment request not found")
	ErrAlreadyProcessed       = errors.New("only pending requests can be processed")
	ErrDuplicatePayment       = errors.New("payment has already been applied")
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// User and wallet methods
	FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ListWallets(ctx context.Context) ([]domain.User, error)
	UpdateUserType(ctx context.Context, userID uuid.UUID, userType domain.UserType) (*domain.User, error)
	EnsureUser(ctx context.Context, user domain.User) (bool, error)
	ListSubscribers(ctx context.Context) ([]domain.User, error)

	// Currency-backed credits. Each applies the wallet change and writes its journal
	// entry atomically; a gateway payment id can be applied only once.
	CreditCurrency(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, coins int64, promote bool, entry *domain.Transaction) (*domain.User, error)
	ActivateSubscription(ctx context.Context, userID uuid.UUID, expiry time.Time, coins int64, entry *domain.Transaction) (*domain.User, error)
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)

	// Campaign methods
	CreateCampaign(ctx context.Context, campaign *domain.Campaign, entry *domain.Transaction) (*domain.Campaign, error)
	FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error)
	ListCampaignsByCreator(ctx context.Context, creatorID uuid.UUID) ([]domain.Campaign, error)
	ListAvailableCampaigns(ctx context.Context) ([]domain.Campaign, error)
	RecordCampaignView(ctx context.Context, campaignID, viewerID uuid.UUID, reward int64, entry *domain.Transaction) (*domain.ViewOutcome, error)
	SetCampaignActive(ctx context.Context, campaignID, creatorID uuid.UUID, active bool) (*domain.Campaign, error)
	ListTopCreators(ctx context.Context, limit int) ([]domain.CreatorBudget, error)

	// Journal methods
	FindTransactionsByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, error)

	// Withdrawal (payment request) methods
	CreatePaymentRequest(ctx context.Context, request *domain.PaymentRequest, entry *domain.Transaction) (*domain.PaymentRequest, error)
	FindPaymentRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.PaymentRequest, error)
	ListPaymentRequestsByUser(ctx context.Context, userID uuid.UUID) ([]domain.PaymentRequest, error)
	ListPaymentRequestsByStatus(ctx context.Context, status domain.PaymentRequestStatus) ([]domain.PaymentRequest, error)
	ProcessPaymentRequest(ctx context.Context, requestID uuid.UUID, status domain.PaymentRequestStatus, note string, refund *domain.Transaction) (*domain.PaymentRequest, error)

	// Reporting
	GetPlatformStatistics(ctx context.Context, now time.Time) (*domain.PlatformStatistics, error)
}
