package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/viewcoin/ledger-service/internal/domain"
)

const paymentRequestColumns = `id, user_id, upi_id, coins, amount, status, note, created_at, processed_at`

func scanPaymentRequest(row pgx.Row) (*domain.PaymentRequest, error) {
	var pr domain.PaymentRequest
	err := row.Scan(
		&pr.ID,
		&pr.UserID,
		&pr.UPIID,
		&pr.Coins,
		&pr.Amount,
		&pr.Status,
		&pr.Note,
		&pr.CreatedAt,
		&pr.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentRequestNotFound
		}
		return nil, err
	}
	return &pr, nil
}

func collectPaymentRequests(rows pgx.Rows) ([]domain.PaymentRequest, error) {
	defer rows.Close()
	requests := make([]domain.PaymentRequest, 0)
	for rows.Next() {
		pr, err := scanPaymentRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment request: %w", err)
		}
		requests = append(requests, *pr)
	}
	return requests, rows.Err()
}

// CreatePaymentRequest holds the requested coins and opens a pending withdrawal.
// The debit, the request row and its spend entry commit together.
func (r *PostgresRepository) CreatePaymentRequest(ctx context.Context, request *domain.PaymentRequest, entry *domain.Transaction) (*domain.PaymentRequest, error) {
	var created *domain.PaymentRequest
	err := r.withTx(ctx, func(l *pgLedger) error {
		if _, err := l.debitCoins(ctx, request.UserID, request.Coins); err != nil {
			return err
		}

		query := `
			INSERT INTO payment_requests (user_id, upi_id, coins, amount, status)
			VALUES ($1, $2, $3, $4, 'pending')
			RETURNING ` + paymentRequestColumns
		var err error
		created, err = scanPaymentRequest(l.tx.QueryRow(ctx, query,
			request.UserID,
			request.UPIID,
			request.Coins,
			request.Amount,
		))
		if err != nil {
			return fmt.Errorf("failed to insert payment request: %w", err)
		}

		entry.UserID = request.UserID
		return l.recordEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// FindPaymentRequestByID retrieves a withdrawal request by its ID.
func (r *PostgresRepository) FindPaymentRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE id = $1`
	return scanPaymentRequest(r.db.QueryRow(ctx, query, requestID))
}

// ListPaymentRequestsByUser returns the user's withdrawals, newest first.
func (r *PostgresRepository) ListPaymentRequestsByUser(ctx context.Context, userID uuid.UUID) ([]domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment requests: %w", err)
	}
	return collectPaymentRequests(rows)
}

// ListPaymentRequestsByStatus returns every request in the given status, newest first.
func (r *PostgresRepository) ListPaymentRequestsByStatus(ctx context.Context, status domain.PaymentRequestStatus) ([]domain.PaymentRequest, error) {
	query := `SELECT ` + paymentRequestColumns + ` FROM payment_requests WHERE status = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list payment requests: %w", err)
	}
	return collectPaymentRequests(rows)
}

// ProcessPaymentRequest applies the single admin decision to a pending request.
// Only the first decision wins: the update is guarded by status = 'pending'.
// A rejection returns the held coins and writes the refund entry in the same transaction.
func (r *PostgresRepository) ProcessPaymentRequest(ctx context.Context, requestID uuid.UUID, status domain.PaymentRequestStatus, note string, refund *domain.Transaction) (*domain.PaymentRequest, error) {
	var processed *domain.PaymentRequest
	err := r.withTx(ctx, func(l *pgLedger) error {
		query := `
			UPDATE payment_requests
			SET status = $2,
			    note = $3,
			    processed_at = NOW()
			WHERE id = $1
			  AND status = 'pending'
			RETURNING ` + paymentRequestColumns
		var err error
		processed, err = scanPaymentRequest(l.tx.QueryRow(ctx, query, requestID, string(status), note))
		if err != nil {
			if !errors.Is(err, ErrPaymentRequestNotFound) {
				return fmt.Errorf("failed to process payment request: %w", err)
			}
			var exists bool
			if err := l.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM payment_requests WHERE id = $1)`, requestID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check payment request: %w", err)
			}
			if !exists {
				return ErrPaymentRequestNotFound
			}
			return ErrAlreadyProcessed
		}

		if status != domain.PaymentRequestStatusRejected {
			return nil
		}
		if _, err := l.creditCoins(ctx, processed.UserID, processed.Coins); err != nil {
			return err
		}
		refund.UserID = processed.UserID
		refund.Coins = processed.Coins
		return l.recordEntry(ctx, refund)
	})
	if err != nil {
		return nil, err
	}
	return processed, nil
}
