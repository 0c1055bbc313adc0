package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/viewcoin/ledger-service/internal/domain"
	"github.com/viewcoin/ledger-service/internal/logging"
	"github.com/viewcoin/ledger-service/internal/store"
	"github.com/viewcoin/ledger-service/pkg/razorpay"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type gatewayStub struct {
	order       *razorpay.Order
	createErr   error
	verifyErr   error
	createCalls int
	lastNotes   map[string]string
	lastAmount  decimal.Decimal
}

func (g *gatewayStub) CreateOrder(ctx context.Context, amount decimal.Decimal, receipt string, notes map[string]string) (*razorpay.Order, error) {
	g.createCalls++
	g.lastNotes = notes
	g.lastAmount = amount
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &razorpay.Order{ID: "order_test", Amount: razorpay.ToPaise(amount), Currency: razorpay.CurrencyINR, Notes: notes}, nil
}

func (g *gatewayStub) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (*razorpay.Order, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.order, nil
}

type publisherStub struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *publisherStub) Publish(ctx context.Context, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return p.err
}

func (p *publisherStub) Close() {}

type limiterStub struct {
	count int
	err   error
}

func (l *limiterStub) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	return l.count, 42, l.err
}

type testEnv struct {
	svc       *Service
	repo      *store.MemoryRepository
	gateway   *gatewayStub
	publisher *publisherStub
}

func newTestEnv(opts Options) *testEnv {
	repo := store.NewMemoryRepository()
	gateway := &gatewayStub{}
	publisher := &publisherStub{}
	logger := logging.Nop()
	opts.Logger = &logger
	opts.Now = func() time.Time { return testNow }
	if opts.GatewayKeyID == "" {
		opts.GatewayKeyID = "rzp_test_key"
	}
	return &testEnv{
		svc:       NewService(repo, gateway, publisher, opts),
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
	}
}

func (e *testEnv) addUser(userType domain.UserType, coins int64) domain.User {
	return *e.repo.AddUser(domain.User{
		FirstName: "Test",
		LastName:  string(userType),
		Email:     uuid.NewString() + "@example.com",
		UserType:  userType,
		Coins:     coins,
	})
}

func (e *testEnv) coins(t *testing.T, userID uuid.UUID) int64 {
	t.Helper()
	u, err := e.repo.FindUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("FindUserByID returned error: %v", err)
	}
	return u.Coins
}

func validCampaign(budget, rate int64) domain.AddCampaignRequest {
	return domain.AddCampaignRequest{
		YoutubeURL:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		Title:        "  Launch trailer ",
		Budget:       budget,
		CoinsPerView: rate,
	}
}

func TestCreateCampaign_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.AddCampaignRequest)
		wantErr error
	}{
		{name: "blank title", mutate: func(r *domain.AddCampaignRequest) { r.Title = "   " }, wantErr: ErrInvalidTitle},
		{name: "rate zero", mutate: func(r *domain.AddCampaignRequest) { r.CoinsPerView = 0 }, wantErr: ErrInvalidCoinsPerView},
		{name: "rate four", mutate: func(r *domain.AddCampaignRequest) { r.CoinsPerView = 4 }, wantErr: ErrInvalidCoinsPerView},
		{name: "zero budget", mutate: func(r *domain.AddCampaignRequest) { r.Budget = 0 }, wantErr: ErrInvalidBudget},
		{name: "not youtube", mutate: func(r *domain.AddCampaignRequest) { r.YoutubeURL = "https://vimeo.com/123" }, wantErr: ErrInvalidYouTubeURL},
		{name: "over balance", mutate: func(r *domain.AddCampaignRequest) { r.Budget = 101 }, wantErr: store.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(Options{})
			creator := env.addUser(domain.UserTypeCreator, 100)
			req := validCampaign(50, 2)
			tt.mutate(&req)

			_, err := env.svc.CreateCampaign(context.Background(), creator, req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := env.coins(t, creator.ID); got != 100 {
				t.Fatalf("expected balance untouched at 100, got %d", got)
			}
			if len(env.repo.JournalEntries()) != 0 {
				t.Fatalf("expected no journal entries after a rejected campaign")
			}
		})
	}
}

func TestCreateCampaign_FundsFromBalance(t *testing.T) {
	env := newTestEnv(Options{})
	creator := env.addUser(domain.UserTypeCreator, 100)

	campaign, err := env.svc.CreateCampaign(context.Background(), creator, validCampaign(60, 3))
	if err != nil {
		t.Fatalf("CreateCampaign returned error: %v", err)
	}
	if campaign.Title != "Launch trailer" {
		t.Fatalf("expected trimmed title, got %q", campaign.Title)
	}
	if campaign.YoutubeURL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("unexpected stored url %q", campaign.YoutubeURL)
	}
	if got := env.coins(t, creator.ID); got != 40 {
		t.Fatalf("expected 40 coins left, got %d", got)
	}
	if len(env.publisher.events) != 1 || env.publisher.events[0] != domain.EventCampaignCreated {
		t.Fatalf("expected campaign.created event, got %v", env.publisher.events)
	}
}

func TestRecordView_RewardByViewerType(t *testing.T) {
	tests := []struct {
		name       string
		viewerType domain.UserType
		wantReward int64
	}{
		{name: "normal viewer earns flat rate", viewerType: domain.UserTypeNormal, wantReward: 1},
		{name: "creator viewer earns campaign rate", viewerType: domain.UserTypeCreator, wantReward: 3},
		{name: "admin viewer earns campaign rate", viewerType: domain.UserTypeAdmin, wantReward: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(Options{})
			creator := env.addUser(domain.UserTypeCreator, 100)
			viewer := env.addUser(tt.viewerType, 0)
			campaign, err := env.svc.CreateCampaign(context.Background(), creator, validCampaign(100, 3))
			if err != nil {
				t.Fatalf("CreateCampaign returned error: %v", err)
			}

			outcome, err := env.svc.RecordView(context.Background(), campaign.ID, viewer)
			if err != nil {
				t.Fatalf("RecordView returned error: %v", err)
			}
			if outcome.CoinsEarned != tt.wantReward || outcome.Campaign.TotalCoinsSpent != tt.wantReward {
				t.Fatalf("expected reward %d, got %+v", tt.wantReward, outcome)
			}
			if got := env.coins(t, viewer.ID); got != tt.wantReward {
				t.Fatalf("expected viewer balance %d, got %d", tt.wantReward, got)
			}
		})
	}
}

func TestRecordView_Rejections(t *testing.T) {
	env := newTestEnv(Options{})
	creator := env.addUser(domain.UserTypeCreator, 100)
	viewer := env.addUser(domain.UserTypeCreator, 0)
	ctx := context.Background()

	if _, err := env.svc.RecordView(ctx, uuid.New(), viewer); !errors.Is(err, store.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}

	campaign, err := env.svc.CreateCampaign(ctx, creator, validCampaign(5, 3))
	if err != nil {
		t.Fatalf("CreateCampaign returned error: %v", err)
	}
	if _, err := env.svc.RecordView(ctx, campaign.ID, viewer); err != nil {
		t.Fatalf("first view returned error: %v", err)
	}
	// 3 spent of 5: another 3 would overshoot.
	if _, err := env.svc.RecordView(ctx, campaign.ID, viewer); !errors.Is(err, store.ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}

	if _, err := env.svc.SetCampaignActive(ctx, campaign.ID, creator.ID, false); err != nil {
		t.Fatalf("SetCampaignActive returned error: %v", err)
	}
	if _, err := env.svc.RecordView(ctx, campaign.ID, viewer); !errors.Is(err, store.ErrCampaignInactive) {
		t.Fatalf("expected ErrCampaignInactive, got %v", err)
	}
	if got := env.coins(t, viewer.ID); got != 3 {
		t.Fatalf("expected viewer balance 3, got %d", got)
	}
}

func TestRecordView_RateLimit(t *testing.T) {
	t.Run("over limit is rejected", func(t *testing.T) {
		env := newTestEnv(Options{ViewLimiter: &limiterStub{count: 6}, ViewRateLimitPerMinute: 5})
		viewer := env.addUser(domain.UserTypeNormal, 0)

		_, err := env.svc.RecordView(context.Background(), uuid.New(), viewer)
		var rlErr *RateLimitError
		if !errors.As(err, &rlErr) || !errors.Is(err, ErrRateLimited) {
			t.Fatalf("expected RateLimitError, got %v", err)
		}
		if rlErr.RetryAfterSeconds != 42 {
			t.Fatalf("expected retry after 42s, got %d", rlErr.RetryAfterSeconds)
		}
	})

	t.Run("limiter failure allows the view", func(t *testing.T) {
		env := newTestEnv(Options{ViewLimiter: &limiterStub{err: errors.New("redis down")}, ViewRateLimitPerMinute: 5})
		creator := env.addUser(domain.UserTypeCreator, 10)
		viewer := env.addUser(domain.UserTypeNormal, 0)
		campaign, err := env.svc.CreateCampaign(context.Background(), creator, validCampaign(10, 1))
		if err != nil {
			t.Fatalf("CreateCampaign returned error: %v", err)
		}
		if _, err := env.svc.RecordView(context.Background(), campaign.ID, viewer); err != nil {
			t.Fatalf("expected view to pass when limiter fails, got %v", err)
		}
	})
}

func TestSetCampaignActive_OwnerOnly(t *testing.T) {
	env := newTestEnv(Options{})
	creator := env.addUser(domain.UserTypeCreator, 100)
	other := env.addUser(domain.UserTypeCreator, 0)
	campaign, err := env.svc.CreateCampaign(context.Background(), creator, validCampaign(10, 1))
	if err != nil {
		t.Fatalf("CreateCampaign returned error: %v", err)
	}

	_, err = env.svc.SetCampaignActive(context.Background(), campaign.ID, other.ID, false)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	got, _ := env.repo.FindCampaignByID(context.Background(), campaign.ID)
	if !got.Active {
		t.Fatalf("expected campaign to stay active")
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(Options{})
	env.publisher.err = errors.New("broker down")
	creator := env.addUser(domain.UserTypeCreator, 10)

	if _, err := env.svc.CreateCampaign(context.Background(), creator, validCampaign(10, 1)); err != nil {
		t.Fatalf("expected success despite publish failure, got %v", err)
	}
}
