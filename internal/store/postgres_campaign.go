package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/viewcoin/ledger-service/internal/domain"
)

const campaignColumns = `id, creator_id, youtube_url, title, budget, coins_per_view, total_views, total_coins_spent, active, created_at`

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID,
		&c.CreatorID,
		&c.YoutubeURL,
		&c.Title,
		&c.Budget,
		&c.CoinsPerView,
		&c.TotalViews,
		&c.TotalCoinsSpent,
		&c.Active,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &c, nil
}

func collectCampaigns(rows pgx.Rows) ([]domain.Campaign, error) {
	defer rows.Close()
	campaigns := make([]domain.Campaign, 0)
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

// CreateCampaign funds a new campaign from the creator's coins. The debit, the insert
// and the spend entry commit together.
func (r *PostgresRepository) CreateCampaign(ctx context.Context, campaign *domain.Campaign, entry *domain.Transaction) (*domain.Campaign, error) {
	var created *domain.Campaign
	err := r.withTx(ctx, func(l *pgLedger) error {
		if _, err := l.debitCoins(ctx, campaign.CreatorID, campaign.Budget); err != nil {
			return err
		}

		query := `
			INSERT INTO video_campaigns (creator_id, youtube_url, title, budget, coins_per_view, active)
			VALUES ($1, $2, $3, $4, $5, TRUE)
			RETURNING ` + campaignColumns
		var err error
		created, err = scanCampaign(l.tx.QueryRow(ctx, query,
			campaign.CreatorID,
			campaign.YoutubeURL,
			campaign.Title,
			campaign.Budget,
			campaign.CoinsPerView,
		))
		if err != nil {
			return fmt.Errorf("failed to insert video: %w", err)
		}

		entry.UserID = campaign.CreatorID
		entry.WithVideo(created.ID)
		return l.recordEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// FindCampaignByID retrieves a campaign by its ID.
func (r *PostgresRepository) FindCampaignByID(ctx context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM video_campaigns WHERE id = $1`
	return scanCampaign(r.db.QueryRow(ctx, query, campaignID))
}

// ListCampaignsByCreator returns the creator's campaigns, newest first.
func (r *PostgresRepository) ListCampaignsByCreator(ctx context.Context, creatorID uuid.UUID) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM video_campaigns WHERE creator_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list creator videos: %w", err)
	}
	return collectCampaigns(rows)
}

// ListAvailableCampaigns returns campaigns that can still pay for a view, best rate first.
func (r *PostgresRepository) ListAvailableCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	query := `
		SELECT ` + campaignColumns + `
		FROM video_campaigns
		WHERE active AND total_coins_spent < budget
		ORDER BY coins_per_view DESC, created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list available videos: %w", err)
	}
	return collectCampaigns(rows)
}

// RecordCampaignView pays reward coins to the viewer from the campaign budget.
//
// The budget increment is one conditional UPDATE, so concurrent views can never push
// total_coins_spent past budget: a competing writer blocks on the row lock and the
// predicate is re-evaluated against the committed value.
func (r *PostgresRepository) RecordCampaignView(ctx context.Context, campaignID, viewerID uuid.UUID, reward int64, entry *domain.Transaction) (*domain.ViewOutcome, error) {
	var outcome domain.ViewOutcome
	err := r.withTx(ctx, func(l *pgLedger) error {
		query := `
			UPDATE video_campaigns
			SET total_coins_spent = total_coins_spent + $2,
			    total_views = total_views + 1
			WHERE id = $1
			  AND active
			  AND total_coins_spent + $2 <= budget
			RETURNING ` + campaignColumns
		updated, err := scanCampaign(l.tx.QueryRow(ctx, query, campaignID, reward))
		if err != nil {
			if !errors.Is(err, ErrCampaignNotFound) {
				return fmt.Errorf("failed to record view: %w", err)
			}
			return l.classifyRejectedView(ctx, campaignID)
		}

		balance, err := l.creditCoins(ctx, viewerID, reward)
		if err != nil {
			return err
		}

		entry.UserID = viewerID
		entry.WithVideo(campaignID)
		if err := l.recordEntry(ctx, entry); err != nil {
			return err
		}

		outcome = domain.ViewOutcome{Campaign: *updated, CoinsEarned: reward, ViewerCoins: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// classifyRejectedView explains why the guarded view update matched no row.
func (l *pgLedger) classifyRejectedView(ctx context.Context, campaignID uuid.UUID) error {
	var active bool
	query := `SELECT active FROM video_campaigns WHERE id = $1`
	if err := l.tx.QueryRow(ctx, query, campaignID).Scan(&active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCampaignNotFound
		}
		return fmt.Errorf("failed to load video: %w", err)
	}
	if !active {
		return ErrCampaignInactive
	}
	return ErrBudgetExhausted
}

// SetCampaignActive toggles a campaign owned by creatorID.
func (r *PostgresRepository) SetCampaignActive(ctx context.Context, campaignID, creatorID uuid.UUID, active bool) (*domain.Campaign, error) {
	query := `UPDATE video_campaigns SET active = $3 WHERE id = $1 AND creator_id = $2 RETURNING ` + campaignColumns
	updated, err := scanCampaign(r.db.QueryRow(ctx, query, campaignID, creatorID, active))
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrCampaignNotFound) {
		return nil, fmt.Errorf("failed to update video: %w", err)
	}

	if _, findErr := r.FindCampaignByID(ctx, campaignID); findErr != nil {
		return nil, findErr
	}
	return nil, ErrNotCampaignOwner
}

// ListTopCreators ranks creators by the total budget of their active campaigns.
func (r *PostgresRepository) ListTopCreators(ctx context.Context, limit int) ([]domain.CreatorBudget, error) {
	query := `
		SELECT v.creator_id,
		       btrim(u.first_name || ' ' || u.last_name) AS name,
		       SUM(v.budget)::BIGINT AS total_budget,
		       COUNT(*) AS video_count
		FROM video_campaigns v
		JOIN users u ON u.id = v.creator_id
		WHERE v.active
		GROUP BY v.creator_id, u.first_name, u.last_name
		ORDER BY total_budget DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top creators: %w", err)
	}
	defer rows.Close()

	creators := make([]domain.CreatorBudget, 0)
	for rows.Next() {
		var c domain.CreatorBudget
		if err := rows.Scan(&c.CreatorID, &c.Name, &c.TotalBudget, &c.VideoCount); err != nil {
			return nil, fmt.Errorf("failed to scan top creator: %w", err)
		}
		creators = append(creators, c)
	}
	return creators, rows.Err()
}
