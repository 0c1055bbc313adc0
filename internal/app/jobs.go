/**
 * @description
 * Scheduled job implementations for the ledger-service.
 */
package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/viewcoin/ledger-service/internal/metrics"
)

const expirySweepTimeout = time.Minute

// SubscriptionExpirer is the repository operation the expiry sweep needs.
type SubscriptionExpirer interface {
	ExpireSubscriptions(ctx context.Context, now time.Time) (int64, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	repo   SubscriptionExpirer
	logger zerolog.Logger
	now    func() time.Time
}

// NewJobs creates a new Jobs runner.
func NewJobs(repo SubscriptionExpirer, logger zerolog.Logger) *Jobs {
	return &Jobs{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ExpireSubscriptions flips lapsed subscriptions to inactive. Coins are never touched.
func (j *Jobs) ExpireSubscriptions() {
	ctx, cancel := context.WithTimeout(context.Background(), expirySweepTimeout)
	defer cancel()

	expired, err := j.repo.ExpireSubscriptions(ctx, j.now())
	if err != nil {
		j.logger.Error().Err(err).Msg("subscription expiry job failed")
		return
	}
	if expired > 0 {
		metrics.SubscriptionsExpired.Add(float64(expired))
	}
	j.logger.Info().Int64("expired", expired).Msg("subscription expiry job finished")
}
