/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It holds the user, wallet and reporting queries; campaign, withdrawal and ledger
 * primitives live in the sibling postgres_*.go files.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - github.com/shopspring/decimal: NUMERIC columns for currency.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/viewcoin/ledger-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, user_type, coins, wallet_balance, upi_id, subscription_status, subscription_expiry, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.UserType,
		&user.Coins,
		&user.WalletBalance,
		&user.UPIID,
		&user.SubscriptionStatus,
		&user.SubscriptionExpiry,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// FindUserByID retrieves a user from the database by their ID.
func (r *PostgresRepository) FindUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, userID))
}

// ListWallets returns every user ordered by coin balance, richest first.
func (r *PostgresRepository) ListWallets(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY coins DESC, created_at ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// ListSubscribers returns users with the subscription flag set, soonest expiry first.
func (r *PostgresRepository) ListSubscribers(ctx context.Context) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE subscription_status ORDER BY subscription_expiry ASC NULLS LAST, created_at ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscribers: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateUserType sets the role of a user.
func (r *PostgresRepository) UpdateUserType(ctx context.Context, userID uuid.UUID, userType domain.UserType) (*domain.User, error) {
	query := `UPDATE users SET user_type = $2 WHERE id = $1 RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, userID, string(userType)))
}

// EnsureUser provisions the wallet row for an account created by the identity service.
// Replayed registrations leave the existing row untouched and report false.
func (r *PostgresRepository) EnsureUser(ctx context.Context, user domain.User) (bool, error) {
	query := `
		INSERT INTO users (id, first_name, last_name, email, user_type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, user.ID, user.FirstName, user.LastName, user.Email, string(user.UserType))
	if err != nil {
		return false, fmt.Errorf("failed to provision user: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CreditCurrency adds a verified recharge to the wallet and journals it.
// When promote is set, a normal user becomes a creator in the same statement.
func (r *PostgresRepository) CreditCurrency(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, coins int64, promote bool, entry *domain.Transaction) (*domain.User, error) {
	var user *domain.User
	err := r.withTx(ctx, func(l *pgLedger) error {
		var err error
		user, err = l.creditCurrency(ctx, userID, amount, coins, promote)
		if err != nil {
			return err
		}
		entry.UserID = userID
		return l.recordEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ActivateSubscription marks the subscription active until expiry, credits the bonus
// coins and journals the payment.
func (r *PostgresRepository) ActivateSubscription(ctx context.Context, userID uuid.UUID, expiry time.Time, coins int64, entry *domain.Transaction) (*domain.User, error) {
	var user *domain.User
	err := r.withTx(ctx, func(l *pgLedger) error {
		query := `
			UPDATE users
			SET subscription_status = TRUE,
			    subscription_expiry = $2,
			    coins = coins + $3
			WHERE id = $1
			RETURNING ` + userColumns
		var err error
		user, err = scanUser(l.tx.QueryRow(ctx, query, userID, expiry, coins))
		if err != nil {
			return err
		}
		entry.UserID = userID
		return l.recordEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ExpireSubscriptions clears the subscription flag on every subscription that has lapsed.
func (r *PostgresRepository) ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE users
		SET subscription_status = FALSE
		WHERE subscription_status = TRUE
		  AND subscription_expiry IS NOT NULL
		  AND subscription_expiry <= $1
	`
	tag, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to expire subscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetPlatformStatistics aggregates the admin dashboard figures in one round trip.
func (r *PostgresRepository) GetPlatformStatistics(ctx context.Context, now time.Time) (*domain.PlatformStatistics, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE user_type = 'creator'),
			(SELECT COUNT(*) FROM users WHERE user_type = 'normal'),
			(SELECT COUNT(*) FROM users WHERE subscription_status AND subscription_expiry > $1),
			(SELECT COUNT(*) FROM video_campaigns),
			(SELECT COUNT(*) FROM video_campaigns WHERE active),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = 'subscription' AND status = 'completed'),
			(SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE type = 'recharge' AND status = 'completed'),
			(SELECT COALESCE(SUM(amount), 0) FROM payment_requests WHERE status = 'pending')
	`
	var stats domain.PlatformStatistics
	err := r.db.QueryRow(ctx, query, now).Scan(
		&stats.Users.Total,
		&stats.Users.Creators,
		&stats.Users.Normal,
		&stats.Users.ActiveSubscribers,
		&stats.Videos.Total,
		&stats.Videos.Active,
		&stats.Financials.SubscriptionRevenue,
		&stats.Financials.RechargeRevenue,
		&stats.Financials.PendingPayments,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load platform statistics: %w", err)
	}
	stats.Financials.TotalRevenue = stats.Financials.SubscriptionRevenue.Add(stats.Financials.RechargeRevenue)
	return &stats, nil
}
