package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/viewcoin/ledger-service/internal/domain"
)

// ClampHistoryPage normalises paging input: a non-positive limit becomes the default,
// larger limits are capped and negative offsets start at zero.
func ClampHistoryPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// TransactionHistory returns one page of the user's journal, newest first.
func (s *Service) TransactionHistory(ctx context.Context, userID uuid.UUID, limit, offset int) (*domain.TransactionHistoryPage, error) {
	limit, offset = ClampHistoryPage(limit, offset)
	entries, err := s.repo.FindTransactionsByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction history: %w", err)
	}
	return &domain.TransactionHistoryPage{
		Transactions: entries,
		Limit:        limit,
		Offset:       offset,
	}, nil
}

// Wallet reads the caller's current balances.
func (s *Service) Wallet(ctx context.Context, userID uuid.UUID) (*domain.WalletSummary, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.FindTransactionsByUserID(ctx, userID, RecentEntriesLimit, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent transactions: %w", err)
	}
	return &domain.WalletSummary{
		Coins:              user.Coins,
		WalletBalance:      user.WalletBalance,
		UserType:           user.UserType,
		SubscriptionStatus: user.HasActiveSubscription(s.now()),
		SubscriptionExpiry: user.SubscriptionExpiry,
		RecentTransactions: recent,
	}, nil
}

// Subscription reports the caller's subscription state. An expired subscription
// reads as inactive even before the expiry sweep clears the flag.
func (s *Service) Subscription(ctx context.Context, userID uuid.UUID) (*domain.SubscriptionSummary, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.SubscriptionSummary{
		Active:     user.HasActiveSubscription(s.now()),
		ExpiryDate: user.SubscriptionExpiry,
	}, nil
}
