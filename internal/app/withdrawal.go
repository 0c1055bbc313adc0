package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/viewcoin/ledger-service/internal/domain"
	"github.com/viewcoin/ledger-service/internal/logging"
	"github.com/viewcoin/ledger-service/internal/metrics"
)

// SubmitWithdrawal holds the requested coins and opens a pending payout request.
func (s *Service) SubmitWithdrawal(ctx context.Context, user domain.User, req domain.WithdrawalRequest) (*domain.PaymentRequest, error) {
	if req.Coins < domain.MinWithdrawalCoins {
		return nil, ErrBelowMinimum
	}
	upiID := strings.TrimSpace(req.UPIID)
	if upiID == "" {
		return nil, ErrUPIRequired
	}

	request := &domain.PaymentRequest{
		UserID: user.ID,
		UPIID:  upiID,
		Coins:  req.Coins,
		Amount: decimal.NewFromInt(req.Coins),
	}
	created, err := s.repo.CreatePaymentRequest(ctx, request, domain.NewTransaction(user.ID, domain.TransactionTypeSpend, req.Coins))
	if err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	metrics.RecordDebit("withdrawal_hold", created.Coins)
	metrics.WithdrawalRequests.WithLabelValues(string(domain.PaymentRequestStatusPending)).Inc()
	logging.Ctx(ctx, s.logger).Info().
		Str("user_id", user.ID.String()).
		Str("request_id", created.ID.String()).
		Int64("coins", created.Coins).
		Msg("withdrawal requested")

	requestID := created.ID
	s.publishEvent(ctx, domain.LedgerEvent{
		EventType: domain.EventWithdrawalRequested,
		UserID:    user.ID,
		RequestID: &requestID,
		Coins:     created.Coins,
		Amount:    created.Amount,
		Status:    string(created.Status),
	})
	return created, nil
}

// ProcessWithdrawal applies an admin's approve or reject decision to a pending request.
// A rejection returns the held coins to the user.
func (s *Service) ProcessWithdrawal(ctx context.Context, admin domain.User, requestID uuid.UUID, req domain.ProcessPaymentRequest) (*domain.PaymentRequest, error) {
	if !admin.UserType.IsAdmin() {
		return nil, ErrForbidden
	}
	status, ok := domain.ParsePaymentRequestStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !ok || !status.IsDecision() {
		return nil, ErrInvalidStatus
	}

	refund := domain.NewTransaction(uuid.Nil, domain.TransactionTypeRecharge, 0)
	processed, err := s.repo.ProcessPaymentRequest(ctx, requestID, status, strings.TrimSpace(req.Note), refund)
	if err != nil {
		return nil, fmt.Errorf("failed to process withdrawal request: %w", err)
	}

	metrics.WithdrawalRequests.WithLabelValues(string(processed.Status)).Inc()
	if processed.Status == domain.PaymentRequestStatusRejected {
		metrics.RecordCredit("withdrawal_refund", processed.Coins)
	}
	logging.Ctx(ctx, s.logger).Info().
		Str("admin_id", admin.ID.String()).
		Str("request_id", processed.ID.String()).
		Str("status", string(processed.Status)).
		Int64("coins", processed.Coins).
		Msg("withdrawal request processed")

	id := processed.ID
	s.publishEvent(ctx, domain.LedgerEvent{
		EventType: domain.EventWithdrawalProcessed,
		UserID:    processed.UserID,
		RequestID: &id,
		Coins:     processed.Coins,
		Amount:    processed.Amount,
		Status:    string(processed.Status),
	})
	return processed, nil
}

// WithdrawalHistory returns the user's requests, newest first.
func (s *Service) WithdrawalHistory(ctx context.Context, userID uuid.UUID) ([]domain.PaymentRequest, error) {
	return s.repo.ListPaymentRequestsByUser(ctx, userID)
}

// ListPaymentRequests returns requests in the given status; empty means pending.
func (s *Service) ListPaymentRequests(ctx context.Context, rawStatus string) ([]domain.PaymentRequest, error) {
	status := domain.PaymentRequestStatusPending
	if trimmed := strings.ToLower(strings.TrimSpace(rawStatus)); trimmed != "" {
		parsed, ok := domain.ParsePaymentRequestStatus(trimmed)
		if !ok {
			return nil, ErrInvalidStatus
		}
		status = parsed
	}
	return s.repo.ListPaymentRequestsByStatus(ctx, status)
}
