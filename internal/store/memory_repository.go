package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/viewcoin/ledger-service/internal/domain"
)

// MemoryRepository is a thread-safe in-memory Repository used for local runs and tests.
// Every method holds one mutex for its whole duration and validates before it mutates,
// which gives the same all-or-nothing behaviour as the PostgreSQL transactions.
type MemoryRepository struct {
	mu              sync.Mutex
	users           map[uuid.UUID]*domain.User
	campaigns       map[uuid.UUID]*domain.Campaign
	campaignOrder   []uuid.UUID
	paymentRequests map[uuid.UUID]*domain.PaymentRequest
	requestOrder    []uuid.UUID
	journal         []domain.Transaction
	gatewayPayments map[string]struct{}
	now             func() time.Time
}

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:           make(map[uuid.UUID]*domain.User),
		campaigns:       make(map[uuid.UUID]*domain.Campaign),
		paymentRequests: make(map[uuid.UUID]*domain.PaymentRequest),
		gatewayPayments: make(map[string]struct{}),
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// AddUser inserts or replaces a user record. Identity data is owned elsewhere,
// so this is the only way users enter the in-memory store.
func (m *MemoryRepository) AddUser(user domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.UserType == "" {
		user.UserType = domain.UserTypeNormal
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = m.now()
	}
	stored := user
	m.users[user.ID] = &stored
	cp := stored
	return &cp
}

// EnsureUser adds the user unless the id or email is already present.
func (m *MemoryRepository) EnsureUser(_ context.Context, user domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; ok {
		return false, nil
	}
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return false, nil
		}
	}
	stored := user
	stored.Coins = 0
	stored.WalletBalance = decimal.Zero
	stored.SubscriptionStatus = false
	stored.SubscriptionExpiry = nil
	stored.CreatedAt = m.now()
	m.users[stored.ID] = &stored
	return true, nil
}

// JournalEntries returns a copy of every journal entry in append order.
func (m *MemoryRepository) JournalEntries() []domain.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Transaction, len(m.journal))
	copy(out, m.journal)
	return out
}

// ledger primitives; callers hold m.mu.

func (m *MemoryRepository) debitCoins(userID uuid.UUID, coins int64) (int64, error) {
	user, ok := m.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	if user.Coins < coins {
		return 0, ErrInsufficientFunds
	}
	user.Coins -= coins
	return user.Coins, nil
}

func (m *MemoryRepository) creditCoins(userID uuid.UUID, coins int64) (int64, error) {
	user, ok := m.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	user.Coins += coins
	return user.Coins, nil
}

func (m *MemoryRepository) checkEntry(entry *domain.Transaction) error {
	if entry.GatewayPaymentID == nil {
		return nil
	}
	if _, seen := m.gatewayPayments[*entry.GatewayPaymentID]; seen {
		return ErrDuplicatePayment
	}
	return nil
}

func (m *MemoryRepository) recordEntry(entry *domain.Transaction) {
	entry.ID = uuid.New()
	entry.CreatedAt = m.now()
	if entry.Status == "" {
		entry.Status = domain.TransactionStatusCompleted
	}
	if entry.GatewayPaymentID != nil {
		m.gatewayPayments[*entry.GatewayPaymentID] = struct{}{}
	}
	m.journal = append(m.journal, *entry)
}

func (m *MemoryRepository) FindUserByID(_ context.Context, userID uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (m *MemoryRepository) ListWallets(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, *user)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Coins != users[j].Coins {
			return users[i].Coins > users[j].Coins
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (m *MemoryRepository) ListSubscribers(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0)
	for _, user := range m.users {
		if user.SubscriptionStatus {
			users = append(users, *user)
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i].SubscriptionExpiry, users[j].SubscriptionExpiry
		switch {
		case a == nil && b == nil:
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		case a == nil:
			return false
		case b == nil:
			return true
		}
		if !a.Equal(*b) {
			return a.Before(*b)
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (m *MemoryRepository) UpdateUserType(_ context.Context, userID uuid.UUID, userType domain.UserType) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	user.UserType = userType
	cp := *user
	return &cp, nil
}

func (m *MemoryRepository) CreditCurrency(_ context.Context, userID uuid.UUID, amount decimal.Decimal, coins int64, promote bool, entry *domain.Transaction) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if err := m.checkEntry(entry); err != nil {
		return nil, err
	}

	user.WalletBalance = user.WalletBalance.Add(amount)
	user.Coins += coins
	if promote {
		user.UserType = user.UserType.PromotedOnRecharge()
	}
	entry.UserID = userID
	m.recordEntry(entry)

	cp := *user
	return &cp, nil
}

func (m *MemoryRepository) ActivateSubscription(_ context.Context, userID uuid.UUID, expiry time.Time, coins int64, entry *domain.Transaction) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if err := m.checkEntry(entry); err != nil {
		return nil, err
	}

	exp := expiry
	user.SubscriptionStatus = true
	user.SubscriptionExpiry = &exp
	user.Coins += coins
	entry.UserID = userID
	m.recordEntry(entry)

	cp := *user
	return &cp, nil
}

func (m *MemoryRepository) ExpireSubscriptions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var expired int64
	for _, user := range m.users {
		if user.SubscriptionStatus && user.SubscriptionExpiry != nil && !user.SubscriptionExpiry.After(now) {
			user.SubscriptionStatus = false
			expired++
		}
	}
	return expired, nil
}

func (m *MemoryRepository) CreateCampaign(_ context.Context, campaign *domain.Campaign, entry *domain.Transaction) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.debitCoins(campaign.CreatorID, campaign.Budget); err != nil {
		return nil, err
	}

	created := *campaign
	created.ID = uuid.New()
	created.TotalViews = 0
	created.TotalCoinsSpent = 0
	created.Active = true
	created.CreatedAt = m.now()
	m.campaigns[created.ID] = &created
	m.campaignOrder = append(m.campaignOrder, created.ID)

	entry.UserID = campaign.CreatorID
	entry.WithVideo(created.ID)
	m.recordEntry(entry)

	cp := created
	return &cp, nil
}

func (m *MemoryRepository) FindCampaignByID(_ context.Context, campaignID uuid.UUID) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

// newestCampaigns walks campaigns in reverse creation order.
func (m *MemoryRepository) newestCampaigns(keep func(*domain.Campaign) bool) []domain.Campaign {
	out := make([]domain.Campaign, 0)
	for i := len(m.campaignOrder) - 1; i >= 0; i-- {
		c := m.campaigns[m.campaignOrder[i]]
		if keep(c) {
			out = append(out, *c)
		}
	}
	return out
}

func (m *MemoryRepository) ListCampaignsByCreator(_ context.Context, creatorID uuid.UUID) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestCampaigns(func(c *domain.Campaign) bool { return c.CreatorID == creatorID }), nil
}

func (m *MemoryRepository) ListAvailableCampaigns(_ context.Context) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.newestCampaigns(func(c *domain.Campaign) bool { return c.Eligible() })
	sort.SliceStable(out, func(i, j int) bool { return out[i].CoinsPerView > out[j].CoinsPerView })
	return out, nil
}

func (m *MemoryRepository) RecordCampaignView(_ context.Context, campaignID, viewerID uuid.UUID, reward int64, entry *domain.Transaction) (*domain.ViewOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	if !c.Active {
		return nil, ErrCampaignInactive
	}
	if c.TotalCoinsSpent+reward > c.Budget {
		return nil, ErrBudgetExhausted
	}
	if _, ok := m.users[viewerID]; !ok {
		return nil, ErrUserNotFound
	}

	c.TotalCoinsSpent += reward
	c.TotalViews++
	balance, _ := m.creditCoins(viewerID, reward)
	entry.UserID = viewerID
	entry.WithVideo(campaignID)
	m.recordEntry(entry)

	return &domain.ViewOutcome{Campaign: *c, CoinsEarned: reward, ViewerCoins: balance}, nil
}

func (m *MemoryRepository) SetCampaignActive(_ context.Context, campaignID, creatorID uuid.UUID, active bool) (*domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[campaignID]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	if c.CreatorID != creatorID {
		return nil, ErrNotCampaignOwner
	}
	c.Active = active
	cp := *c
	return &cp, nil
}

func (m *MemoryRepository) ListTopCreators(_ context.Context, limit int) ([]domain.CreatorBudget, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byCreator := make(map[uuid.UUID]*domain.CreatorBudget)
	for _, c := range m.campaigns {
		if !c.Active {
			continue
		}
		creator, ok := m.users[c.CreatorID]
		if !ok {
			continue
		}
		agg, ok := byCreator[c.CreatorID]
		if !ok {
			agg = &domain.CreatorBudget{CreatorID: c.CreatorID, Name: creator.DisplayName()}
			byCreator[c.CreatorID] = agg
		}
		agg.TotalBudget += c.Budget
		agg.VideoCount++
	}

	out := make([]domain.CreatorBudget, 0, len(byCreator))
	for _, agg := range byCreator {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalBudget != out[j].TotalBudget {
			return out[i].TotalBudget > out[j].TotalBudget
		}
		return out[i].CreatorID.String() < out[j].CreatorID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepository) FindTransactionsByUserID(_ context.Context, userID uuid.UUID, limit, offset int) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Transaction, 0)
	skipped := 0
	for i := len(m.journal) - 1; i >= 0 && len(out) < limit; i-- {
		if m.journal[i].UserID != userID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, m.journal[i])
	}
	return out, nil
}

func (m *MemoryRepository) CreatePaymentRequest(_ context.Context, request *domain.PaymentRequest, entry *domain.Transaction) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.debitCoins(request.UserID, request.Coins); err != nil {
		return nil, err
	}

	created := *request
	created.ID = uuid.New()
	created.Status = domain.PaymentRequestStatusPending
	created.CreatedAt = m.now()
	created.ProcessedAt = nil
	m.paymentRequests[created.ID] = &created
	m.requestOrder = append(m.requestOrder, created.ID)

	entry.UserID = request.UserID
	m.recordEntry(entry)

	cp := created
	return &cp, nil
}

func (m *MemoryRepository) FindPaymentRequestByID(_ context.Context, requestID uuid.UUID) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.paymentRequests[requestID]
	if !ok {
		return nil, ErrPaymentRequestNotFound
	}
	cp := *pr
	return &cp, nil
}

func (m *MemoryRepository) newestPaymentRequests(keep func(*domain.PaymentRequest) bool) []domain.PaymentRequest {
	out := make([]domain.PaymentRequest, 0)
	for i := len(m.requestOrder) - 1; i >= 0; i-- {
		pr := m.paymentRequests[m.requestOrder[i]]
		if keep(pr) {
			out = append(out, *pr)
		}
	}
	return out
}

func (m *MemoryRepository) ListPaymentRequestsByUser(_ context.Context, userID uuid.UUID) ([]domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestPaymentRequests(func(pr *domain.PaymentRequest) bool { return pr.UserID == userID }), nil
}

func (m *MemoryRepository) ListPaymentRequestsByStatus(_ context.Context, status domain.PaymentRequestStatus) ([]domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.newestPaymentRequests(func(pr *domain.PaymentRequest) bool { return pr.Status == status }), nil
}

func (m *MemoryRepository) ProcessPaymentRequest(_ context.Context, requestID uuid.UUID, status domain.PaymentRequestStatus, note string, refund *domain.Transaction) (*domain.PaymentRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.paymentRequests[requestID]
	if !ok {
		return nil, ErrPaymentRequestNotFound
	}
	if pr.Status != domain.PaymentRequestStatusPending {
		return nil, ErrAlreadyProcessed
	}
	if status == domain.PaymentRequestStatusRejected {
		if _, ok := m.users[pr.UserID]; !ok {
			return nil, ErrUserNotFound
		}
	}

	processedAt := m.now()
	pr.Status = status
	pr.Note = note
	pr.ProcessedAt = &processedAt

	if status == domain.PaymentRequestStatusRejected {
		_, _ = m.creditCoins(pr.UserID, pr.Coins)
		refund.UserID = pr.UserID
		refund.Coins = pr.Coins
		m.recordEntry(refund)
	}

	cp := *pr
	return &cp, nil
}

func (m *MemoryRepository) GetPlatformStatistics(_ context.Context, now time.Time) (*domain.PlatformStatistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stats domain.PlatformStatistics
	stats.Financials.SubscriptionRevenue = decimal.Zero
	stats.Financials.RechargeRevenue = decimal.Zero
	stats.Financials.PendingPayments = decimal.Zero

	for _, user := range m.users {
		stats.Users.Total++
		switch user.UserType {
		case domain.UserTypeCreator:
			stats.Users.Creators++
		case domain.UserTypeNormal:
			stats.Users.Normal++
		}
		if user.HasActiveSubscription(now) {
			stats.Users.ActiveSubscribers++
		}
	}
	for _, c := range m.campaigns {
		stats.Videos.Total++
		if c.Active {
			stats.Videos.Active++
		}
	}
	for _, entry := range m.journal {
		if entry.Status != domain.TransactionStatusCompleted {
			continue
		}
		switch entry.Type {
		case domain.TransactionTypeSubscription:
			stats.Financials.SubscriptionRevenue = stats.Financials.SubscriptionRevenue.Add(entry.Amount)
		case domain.TransactionTypeRecharge:
			stats.Financials.RechargeRevenue = stats.Financials.RechargeRevenue.Add(entry.Amount)
		}
	}
	for _, pr := range m.paymentRequests {
		if pr.Status == domain.PaymentRequestStatusPending {
			stats.Financials.PendingPayments = stats.Financials.PendingPayments.Add(pr.Amount)
		}
	}
	stats.Financials.TotalRevenue = stats.Financials.SubscriptionRevenue.Add(stats.Financials.RechargeRevenue)
	return &stats, nil
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)
