package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/viewcoin/ledger-service/internal/domain"
	"github.com/viewcoin/ledger-service/internal/logging"
	"github.com/viewcoin/ledger-service/internal/metrics"
	"github.com/viewcoin/ledger-service/internal/store"
	"github.com/viewcoin/ledger-service/pkg/youtube"
)

const viewRateLimitScope = "campaign_view"

// CreateCampaign funds a new video campaign from the creator's coin balance.
func (s *Service) CreateCampaign(ctx context.Context, creator domain.User, req domain.AddCampaignRequest) (*domain.Campaign, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrInvalidTitle
	}
	if !domain.ValidCoinsPerView(req.CoinsPerView) {
		return nil, ErrInvalidCoinsPerView
	}
	if req.Budget <= 0 {
		return nil, ErrInvalidBudget
	}
	videoURL, err := youtube.CanonicalURL(strings.TrimSpace(req.YoutubeURL))
	if err != nil {
		return nil, ErrInvalidYouTubeURL
	}

	campaign := &domain.Campaign{
		CreatorID:    creator.ID,
		YoutubeURL:   videoURL,
		Title:        title,
		Budget:       req.Budget,
		CoinsPerView: req.CoinsPerView,
	}
	created, err := s.repo.CreateCampaign(ctx, campaign, domain.NewTransaction(creator.ID, domain.TransactionTypeSpend, req.Budget))
	if err != nil {
		return nil, fmt.Errorf("failed to create video campaign: %w", err)
	}

	metrics.RecordDebit("campaign_funding", created.Budget)
	logging.Ctx(ctx, s.logger).Info().
		Str("user_id", creator.ID.String()).
		Str("video_id", created.ID.String()).
		Int64("budget", created.Budget).
		Int64("coins_per_view", created.CoinsPerView).
		Msg("video campaign created")

	videoID := created.ID
	s.publishEvent(ctx, domain.LedgerEvent{
		EventType: domain.EventCampaignCreated,
		UserID:    creator.ID,
		VideoID:   &videoID,
		Coins:     created.Budget,
		Amount:    decimal.Zero,
	})
	return created, nil
}

// RecordView pays the viewer for one view of an eligible campaign.
// Creator-type viewers earn the campaign's coinsPerView, normal viewers a flat 1 coin.
func (s *Service) RecordView(ctx context.Context, videoID uuid.UUID, viewer domain.User) (*domain.ViewOutcome, error) {
	if err := s.throttleView(ctx, viewer.ID); err != nil {
		metrics.CampaignViews.WithLabelValues("rate_limited").Inc()
		return nil, err
	}

	// coinsPerView never changes after creation, so reading it outside the
	// atomic update cannot produce a stale reward.
	campaign, err := s.repo.FindCampaignByID(ctx, videoID)
	if err != nil {
		metrics.CampaignViews.WithLabelValues(viewOutcomeLabel(err)).Inc()
		return nil, err
	}
	reward := campaign.ViewReward(viewer.UserType)

	outcome, err := s.repo.RecordCampaignView(ctx, videoID, viewer.ID, reward, domain.NewTransaction(viewer.ID, domain.TransactionTypeEarn, reward))
	if err != nil {
		metrics.CampaignViews.WithLabelValues(viewOutcomeLabel(err)).Inc()
		return nil, fmt.Errorf("failed to record view: %w", err)
	}

	metrics.CampaignViews.WithLabelValues("rewarded").Inc()
	metrics.RecordCredit("view_reward", reward)

	s.publishEvent(ctx, domain.LedgerEvent{
		EventType: domain.EventCampaignViewRecorded,
		UserID:    viewer.ID,
		VideoID:   &videoID,
		Coins:     reward,
		Amount:    decimal.Zero,
	})
	return outcome, nil
}

func viewOutcomeLabel(err error) string {
	switch {
	case errors.Is(err, store.ErrCampaignNotFound):
		return "not_found"
	case errors.Is(err, store.ErrCampaignInactive):
		return "inactive"
	case errors.Is(err, store.ErrBudgetExhausted):
		return "exhausted"
	default:
		return "error"
	}
}

// throttleView applies the optional per-viewer limit. Limiter failures are logged and allowed.
func (s *Service) throttleView(ctx context.Context, viewerID uuid.UUID) error {
	if s.viewLimiter == nil || s.viewLimit <= 0 {
		return nil
	}
	count, retryAfter, err := s.viewLimiter.ConsumeRateLimit(ctx, viewRateLimitScope, viewerID.String(), s.viewLimit, time.Minute)
	if err != nil {
		logging.Ctx(ctx, s.logger).Warn().Str("user_id", viewerID.String()).Err(err).Msg("view rate limiter unavailable; allowing view")
		return nil
	}
	if count > s.viewLimit {
		return &RateLimitError{RetryAfterSeconds: retryAfter}
	}
	return nil
}

// SetCampaignActive pauses or resumes a campaign. Only its creator may do so.
func (s *Service) SetCampaignActive(ctx context.Context, videoID uuid.UUID, callerID uuid.UUID, active bool) (*domain.Campaign, error) {
	updated, err := s.repo.SetCampaignActive(ctx, videoID, callerID, active)
	if err != nil {
		if errors.Is(err, store.ErrNotCampaignOwner) {
			return nil, fmt.Errorf("%w: %v", ErrForbidden, err)
		}
		return nil, err
	}
	return updated, nil
}

// ListOwnCampaigns returns the caller's campaigns, newest first.
func (s *Service) ListOwnCampaigns(ctx context.Context, creatorID uuid.UUID) ([]domain.Campaign, error) {
	return s.repo.ListCampaignsByCreator(ctx, creatorID)
}

// ListAvailableCampaigns returns campaigns that can still pay for a view.
func (s *Service) ListAvailableCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return s.repo.ListAvailableCampaigns(ctx)
}

// TopCreators ranks creators by active campaign budget.
func (s *Service) TopCreators(ctx context.Context) ([]domain.CreatorBudget, error) {
	return s.repo.ListTopCreators(ctx, TopCreatorsLimit)
}
