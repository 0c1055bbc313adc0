/**
 * @description
 * This file contains the core business logic for the ledger-service. The `Service`
 * struct orchestrates every coin movement (campaign funding, view rewards, withdrawals,
 * recharges and subscriptions), coordinating between the repository, the payment
 * gateway and the message broker.
 *
 * Key features:
 * - Validates input and capabilities before any mutation.
 * - Delegates each money movement to a single atomic repository call.
 * - Publishes ledger events to RabbitMQ after commit; publish failures never fail a request.
 *
 * @dependencies
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/razorpay, pkg/rabbitmq: For external service communication.
 */

package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/viewcoin/ledger-service/internal/domain"
	"github.com/viewcoin/ledger-service/internal/logging"
	"github.com/viewcoin/ledger-service/internal/metrics"
	"github.com/viewcoin/ledger-service/internal/store"
	"github.com/viewcoin/ledger-service/pkg/rabbitmq"
	"github.com/viewcoin/ledger-service/pkg/razorpay"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
	TopCreatorsLimit    = 10
	RecentEntriesLimit  = 10

	eventPublishTimeout = 5 * time.Second
)

// PaymentGateway is the subset of the gateway client the service needs.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string, notes map[string]string) (*razorpay.Order, error)
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (*razorpay.Order, error)
}

// ViewRateLimiter counts events per subject inside a fixed window.
type ViewRateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope string, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// Options carries the optional collaborators and tuning for a Service.
type Options struct {
	GatewayKeyID           string
	ViewLimiter            ViewRateLimiter
	ViewRateLimitPerMinute int
	Logger                 *zerolog.Logger
	Now                    func() time.Time
}

// Service provides the core business logic for the coin economy.
type Service struct {
	repo          store.Repository
	gateway       PaymentGateway
	eventProducer rabbitmq.Publisher
	gatewayKeyID  string
	viewLimiter   ViewRateLimiter
	viewLimit     int
	logger        zerolog.Logger
	now           func() time.Time
}

// NewService creates a new ledger service instance.
func NewService(repo store.Repository, gateway PaymentGateway, producer rabbitmq.Publisher, opts Options) *Service {
	if producer == nil {
		producer = &rabbitmq.EventProducerFallback{}
	}
	logger := logging.Component("ledger_service")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		repo:          repo,
		gateway:       gateway,
		eventProducer: producer,
		gatewayKeyID:  opts.GatewayKeyID,
		viewLimiter:   opts.ViewLimiter,
		viewLimit:     opts.ViewRateLimitPerMinute,
		logger:        logger,
		now:           now,
	}
}

// FindUser resolves an authenticated subject to its stored account.
func (s *Service) FindUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, userID)
}

// publishEvent hands a ledger event to the broker after the database commit.
// The request context may already be cancelled by then, so a detached one is used.
func (s *Service) publishEvent(ctx context.Context, event domain.LedgerEvent) {
	event.EventID = uuid.NewString()
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	if err := s.eventProducer.Publish(pubCtx, event.EventType, event); err != nil {
		metrics.EventsPublished.WithLabelValues(event.EventType, "error").Inc()
		logging.Ctx(ctx, s.logger).Warn().
			Str("event_type", event.EventType).
			Str("user_id", event.UserID.String()).
			Err(err).
			Msg("failed to publish ledger event")
		return
	}
	metrics.EventsPublished.WithLabelValues(event.EventType, "ok").Inc()
}
