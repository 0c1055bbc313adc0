package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/viewcoin/ledger-service/internal/domain"
)

// pgLedger carries the wallet and journal primitives inside one database transaction.
// All balance changes are relative increments guarded by a condition on the row.
type pgLedger struct {
	tx pgx.Tx
}

// withTx runs fn inside a transaction, committing only if fn returns nil.
func (r *PostgresRepository) withTx(ctx context.Context, fn func(l *pgLedger) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgLedger{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// debitCoins subtracts coins only when the balance covers them.
func (l *pgLedger) debitCoins(ctx context.Context, userID uuid.UUID, coins int64) (int64, error) {
	var balance int64
	query := `UPDATE users SET coins = coins - $2 WHERE id = $1 AND coins >= $2 RETURNING coins`
	err := l.tx.QueryRow(ctx, query, userID, coins).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to debit coins: %w", err)
	}

	// The guarded update matched nothing: tell a missing user apart from a short balance.
	var exists bool
	if err := l.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return 0, ErrUserNotFound
	}
	return 0, ErrInsufficientFunds
}

func (l *pgLedger) creditCoins(ctx context.Context, userID uuid.UUID, coins int64) (int64, error) {
	var balance int64
	query := `UPDATE users SET coins = coins + $2 WHERE id = $1 RETURNING coins`
	if err := l.tx.QueryRow(ctx, query, userID, coins).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to credit coins: %w", err)
	}
	return balance, nil
}

func (l *pgLedger) creditCurrency(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, coins int64, promote bool) (*domain.User, error) {
	query := `
		UPDATE users
		SET wallet_balance = wallet_balance + $2,
		    coins = coins + $3,
		    user_type = CASE WHEN $4 AND user_type = 'normal' THEN 'creator' ELSE user_type END
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(l.tx.QueryRow(ctx, query, userID, amount, coins, promote))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to credit currency: %w", err)
	}
	return user, err
}

// recordEntry appends a journal entry. The table has no update path.
func (l *pgLedger) recordEntry(ctx context.Context, entry *domain.Transaction) error {
	if entry.Status == "" {
		entry.Status = domain.TransactionStatusCompleted
	}
	query := `
		INSERT INTO transactions (
			user_id, video_id, type, amount, coins, status,
			gateway_payment_id, gateway_order_id, gateway_signature
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := l.tx.QueryRow(ctx, query,
		entry.UserID,
		entry.VideoID,
		string(entry.Type),
		entry.Amount,
		entry.Coins,
		string(entry.Status),
		entry.GatewayPaymentID,
		entry.GatewayOrderID,
		entry.GatewaySignature,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicatePayment
		}
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// FindTransactionsByUserID returns one newest-first page of the user's journal.
func (r *PostgresRepository) FindTransactionsByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	query := `
		SELECT id, user_id, video_id, type, amount, coins, status,
		       gateway_payment_id, gateway_order_id, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0)
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.VideoID,
			&t.Type,
			&t.Amount,
			&t.Coins,
			&t.Status,
			&t.GatewayPaymentID,
			&t.GatewayOrderID,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}
