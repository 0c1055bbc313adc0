package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/viewcoin/ledger-service/internal/domain"
)

func seedUser(repo *MemoryRepository, userType domain.UserType, coins int64) *domain.User {
	return repo.AddUser(domain.User{
		FirstName: "Test",
		LastName:  string(userType),
		Email:     uuid.NewString() + "@example.com",
		UserType:  userType,
		Coins:     coins,
	})
}

func seedCampaign(t *testing.T, repo *MemoryRepository, creator *domain.User, budget, rate int64) *domain.Campaign {
	t.Helper()
	campaign, err := repo.CreateCampaign(context.Background(), &domain.Campaign{
		CreatorID:    creator.ID,
		YoutubeURL:   "https://youtu.be/dQw4w9WgXcQ",
		Title:        "launch video",
		Budget:       budget,
		CoinsPerView: rate,
	}, domain.NewTransaction(creator.ID, domain.TransactionTypeSpend, budget))
	if err != nil {
		t.Fatalf("CreateCampaign returned error: %v", err)
	}
	return campaign
}

func TestMemoryRepository_CreateCampaignDebitsAndJournals(t *testing.T) {
	repo := NewMemoryRepository()
	creator := seedUser(repo, domain.UserTypeCreator, 500)

	campaign := seedCampaign(t, repo, creator, 200, 2)

	if !campaign.Active || campaign.TotalCoinsSpent != 0 {
		t.Fatalf("expected a fresh active campaign, got %+v", campaign)
	}
	got, _ := repo.FindUserByID(context.Background(), creator.ID)
	if got.Coins != 300 {
		t.Fatalf("expected creator coins 300, got %d", got.Coins)
	}
	entries := repo.JournalEntries()
	if len(entries) != 1 || entries[0].Type != domain.TransactionTypeSpend || entries[0].Coins != 200 {
		t.Fatalf("expected one spend entry for 200 coins, got %+v", entries)
	}
	if entries[0].VideoID == nil || *entries[0].VideoID != campaign.ID {
		t.Fatalf("expected spend entry linked to campaign")
	}
}

func TestMemoryRepository_CreateCampaignInsufficientFundsLeavesNoTrace(t *testing.T) {
	repo := NewMemoryRepository()
	creator := seedUser(repo, domain.UserTypeCreator, 50)

	_, err := repo.CreateCampaign(context.Background(), &domain.Campaign{
		CreatorID: creator.ID, Budget: 100, CoinsPerView: 1,
	}, domain.NewTransaction(creator.ID, domain.TransactionTypeSpend, 100))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	campaigns, _ := repo.ListCampaignsByCreator(context.Background(), creator.ID)
	if len(campaigns) != 0 || len(repo.JournalEntries()) != 0 {
		t.Fatalf("expected no campaign and no journal entry after failed create")
	}
}

func TestMemoryRepository_RecordCampaignViewOutcomes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	creator := seedUser(repo, domain.UserTypeCreator, 1000)
	viewer := seedUser(repo, domain.UserTypeNormal, 0)

	exhausted := seedCampaign(t, repo, creator, 1, 1)
	if _, err := repo.RecordCampaignView(ctx, exhausted.ID, viewer.ID, 1, domain.NewTransaction(viewer.ID, domain.TransactionTypeEarn, 1)); err != nil {
		t.Fatalf("first view should succeed: %v", err)
	}
	paused := seedCampaign(t, repo, creator, 10, 1)
	if _, err := repo.SetCampaignActive(ctx, paused.ID, creator.ID, false); err != nil {
		t.Fatalf("SetCampaignActive returned error: %v", err)
	}

	tests := []struct {
		name    string
		id      uuid.UUID
		wantErr error
	}{
		{name: "unknown campaign", id: uuid.New(), wantErr: ErrCampaignNotFound},
		{name: "inactive campaign", id: paused.ID, wantErr: ErrCampaignInactive},
		{name: "exhausted budget", id: exhausted.ID, wantErr: ErrBudgetExhausted},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.RecordCampaignView(ctx, tc.id, viewer.ID, 1, domain.NewTransaction(viewer.ID, domain.TransactionTypeEarn, 1))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	got, _ := repo.FindUserByID(ctx, viewer.ID)
	if got.Coins != 1 {
		t.Fatalf("rejected views must not credit the viewer, got %d coins", got.Coins)
	}
}

func TestMemoryRepository_ConcurrentViewsNeverOverspend(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	creator := seedUser(repo, domain.UserTypeCreator, 10)
	campaign := seedCampaign(t, repo, creator, 10, 3)

	const viewers = 40
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < viewers; i++ {
		viewer := seedUser(repo, domain.UserTypeCreator, 0)
		wg.Add(1)
		go func(viewerID uuid.UUID) {
			defer wg.Done()
			_, err := repo.RecordCampaignView(ctx, campaign.ID, viewerID, 3, domain.NewTransaction(viewerID, domain.TransactionTypeEarn, 3))
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			if !errors.Is(err, ErrBudgetExhausted) {
				t.Errorf("unexpected error: %v", err)
			}
		}(viewer.ID)
	}
	wg.Wait()

	got, _ := repo.FindCampaignByID(ctx, campaign.ID)
	if got.TotalCoinsSpent > got.Budget {
		t.Fatalf("spent %d exceeds budget %d", got.TotalCoinsSpent, got.Budget)
	}
	if successes != 3 || got.TotalCoinsSpent != 9 || got.TotalViews != 3 {
		t.Fatalf("expected 3 paid views spending 9, got successes=%d spent=%d views=%d", successes, got.TotalCoinsSpent, got.TotalViews)
	}
}

func TestMemoryRepository_SetCampaignActiveOwnership(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	owner := seedUser(repo, domain.UserTypeCreator, 100)
	other := seedUser(repo, domain.UserTypeCreator, 100)
	campaign := seedCampaign(t, repo, owner, 50, 1)

	if _, err := repo.SetCampaignActive(ctx, campaign.ID, other.ID, false); !errors.Is(err, ErrNotCampaignOwner) {
		t.Fatalf("expected ErrNotCampaignOwner, got %v", err)
	}
	if _, err := repo.SetCampaignActive(ctx, uuid.New(), owner.ID, false); !errors.Is(err, ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
	updated, err := repo.SetCampaignActive(ctx, campaign.ID, owner.ID, false)
	if err != nil || updated.Active {
		t.Fatalf("expected owner to deactivate campaign, got %+v err=%v", updated, err)
	}
}

func TestMemoryRepository_ListAvailableCampaignsOrdersByRate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	creator := seedUser(repo, domain.UserTypeCreator, 1000)
	low := seedCampaign(t, repo, creator, 10, 1)
	high := seedCampaign(t, repo, creator, 10, 3)
	spent := seedCampaign(t, repo, creator, 2, 2)
	viewer := seedUser(repo, domain.UserTypeCreator, 0)
	if _, err := repo.RecordCampaignView(ctx, spent.ID, viewer.ID, 2, domain.NewTransaction(viewer.ID, domain.TransactionTypeEarn, 2)); err != nil {
		t.Fatalf("RecordCampaignView returned error: %v", err)
	}

	available, err := repo.ListAvailableCampaigns(ctx)
	if err != nil {
		t.Fatalf("ListAvailableCampaigns returned error: %v", err)
	}
	if len(available) != 2 || available[0].ID != high.ID || available[1].ID != low.ID {
		t.Fatalf("expected [high, low], got %+v", available)
	}
}

func TestMemoryRepository_PaymentRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user := seedUser(repo, domain.UserTypeCreator, 300)

	request, err := repo.CreatePaymentRequest(ctx, &domain.PaymentRequest{
		UserID: user.ID, UPIID: "user@upi", Coins: 150, Amount: decimal.NewFromInt(150),
	}, domain.NewTransaction(user.ID, domain.TransactionTypeSpend, 150))
	if err != nil {
		t.Fatalf("CreatePaymentRequest returned error: %v", err)
	}
	if request.Status != domain.PaymentRequestStatusPending {
		t.Fatalf("expected pending, got %s", request.Status)
	}
	held, _ := repo.FindUserByID(ctx, user.ID)
	if held.Coins != 150 {
		t.Fatalf("expected coins held at creation, got %d", held.Coins)
	}

	rejected, err := repo.ProcessPaymentRequest(ctx, request.ID, domain.PaymentRequestStatusRejected, "bad upi", domain.NewTransaction(user.ID, domain.TransactionTypeRecharge, 0))
	if err != nil {
		t.Fatalf("ProcessPaymentRequest returned error: %v", err)
	}
	if rejected.ProcessedAt == nil || rejected.Note != "bad upi" {
		t.Fatalf("expected processedAt and note to be set, got %+v", rejected)
	}
	refunded, _ := repo.FindUserByID(ctx, user.ID)
	if refunded.Coins != 300 {
		t.Fatalf("expected full refund to 300, got %d", refunded.Coins)
	}

	_, err = repo.ProcessPaymentRequest(ctx, request.ID, domain.PaymentRequestStatusApproved, "", domain.NewTransaction(user.ID, domain.TransactionTypeRecharge, 0))
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed on second decision, got %v", err)
	}

	entries := repo.JournalEntries()
	last := entries[len(entries)-1]
	if last.Type != domain.TransactionTypeRecharge || last.Coins != 150 || !last.Amount.IsZero() {
		t.Fatalf("expected zero-amount recharge refund entry, got %+v", last)
	}
}

func TestMemoryRepository_ConcurrentDecisionsApplyOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user := seedUser(repo, domain.UserTypeNormal, 100)
	request, err := repo.CreatePaymentRequest(ctx, &domain.PaymentRequest{
		UserID: user.ID, UPIID: "user@upi", Coins: 100, Amount: decimal.NewFromInt(100),
	}, domain.NewTransaction(user.ID, domain.TransactionTypeSpend, 100))
	if err != nil {
		t.Fatalf("CreatePaymentRequest returned error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = repo.ProcessPaymentRequest(ctx, request.ID, domain.PaymentRequestStatusRejected, "", domain.NewTransaction(user.ID, domain.TransactionTypeRecharge, 0))
		}()
	}
	wg.Wait()

	got, _ := repo.FindUserByID(ctx, user.ID)
	if got.Coins != 100 {
		t.Fatalf("expected exactly one refund, got %d coins", got.Coins)
	}
}

func TestMemoryRepository_ConcurrentWithdrawAndEarnKeepsBalanceConsistent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	creator := seedUser(repo, domain.UserTypeCreator, 1000)
	campaign := seedCampaign(t, repo, creator, 1000, 1)
	user := seedUser(repo, domain.UserTypeNormal, 500)

	var wg sync.WaitGroup
	var mu sync.Mutex
	withdrawn := int64(0)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := repo.CreatePaymentRequest(ctx, &domain.PaymentRequest{
				UserID: user.ID, UPIID: "user@upi", Coins: 100, Amount: decimal.NewFromInt(100),
			}, domain.NewTransaction(user.ID, domain.TransactionTypeSpend, 100))
			if err == nil {
				mu.Lock()
				withdrawn += 100
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			_, _ = repo.RecordCampaignView(ctx, campaign.ID, user.ID, 1, domain.NewTransaction(user.ID, domain.TransactionTypeEarn, 1))
		}()
	}
	wg.Wait()

	got, _ := repo.FindUserByID(ctx, user.ID)
	if got.Coins < 0 {
		t.Fatalf("balance went negative: %d", got.Coins)
	}
	if got.Coins != 500+8-withdrawn {
		t.Fatalf("expected balance %d, got %d", 500+8-withdrawn, got.Coins)
	}
}

func TestMemoryRepository_CreditCurrencyRejectsDuplicatePayment(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	user := seedUser(repo, domain.UserTypeNormal, 0)
	payment := domain.VerifiedPayment{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig", Amount: decimal.RequireFromString("25.50")}

	updated, err := repo.CreditCurrency(ctx, user.ID, payment.Amount, 25, true,
		domain.NewTransaction(user.ID, domain.TransactionTypeRecharge, 25).WithGatewayPayment(payment))
	if err != nil {
		t.Fatalf("CreditCurrency returned error: %v", err)
	}
	if updated.Coins != 25 || !updated.WalletBalance.Equal(decimal.RequireFromString("25.50")) {
		t.Fatalf("unexpected wallet after recharge: %+v", updated)
	}
	if updated.UserType != domain.UserTypeCreator {
		t.Fatalf("expected promotion to creator, got %s", updated.UserType)
	}

	_, err = repo.CreditCurrency(ctx, user.ID, payment.Amount, 25, true,
		domain.NewTransaction(user.ID, domain.TransactionTypeRecharge, 25).WithGatewayPayment(payment))
	if !errors.Is(err, ErrDuplicatePayment) {
		t.Fatalf("expected ErrDuplicatePayment, got %v", err)
	}
	got, _ := repo.FindUserByID(ctx, user.ID)
	if got.Coins != 25 {
		t.Fatalf("duplicate payment must not credit twice, got %d", got.Coins)
	}
}

func TestMemoryRepository_CreditCurrencyKeepsAdminRole(t *testing.T) {
	repo := NewMemoryRepository()
	admin := seedUser(repo, domain.UserTypeAdmin, 0)

	updated, err := repo.CreditCurrency(context.Background(), admin.ID, decimal.NewFromInt(10), 10, true,
		domain.NewTransaction(admin.ID, domain.TransactionTypeRecharge, 10))
	if err != nil {
		t.Fatalf("CreditCurrency returned error: %v", err)
	}
	if updated.UserType != domain.UserTypeAdmin {
		t.Fatalf("admin must not be demoted, got %s", updated.UserType)
	}
}

func TestMemoryRepository_TransactionsNewestFirstWithPaging(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	creator := seedUser(repo, domain.UserTypeCreator, 100)
	campaign := seedCampaign(t, repo, creator, 100, 1)
	viewer := seedUser(repo, domain.UserTypeNormal, 0)
	for i := 0; i < 5; i++ {
		if _, err := repo.RecordCampaignView(ctx, campaign.ID, viewer.ID, 1, domain.NewTransaction(viewer.ID, domain.TransactionTypeEarn, 1)); err != nil {
			t.Fatalf("RecordCampaignView returned error: %v", err)
		}
	}

	all := repo.JournalEntries()
	page, err := repo.FindTransactionsByUserID(ctx, viewer.ID, 2, 1)
	if err != nil {
		t.Fatalf("FindTransactionsByUserID returned error: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page))
	}
	// all[0] is the creator's spend; viewer entries are all[1..5], newest is all[5].
	if page[0].ID != all[4].ID || page[1].ID != all[3].ID {
		t.Fatalf("expected newest-first page starting after offset")
	}
}

func TestMemoryRepository_ExpireSubscriptions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	lapsed := repo.AddUser(domain.User{Email: "a@example.com", SubscriptionStatus: true, SubscriptionExpiry: &past})
	current := repo.AddUser(domain.User{Email: "b@example.com", SubscriptionStatus: true, SubscriptionExpiry: &future})

	count, err := repo.ExpireSubscriptions(ctx, now)
	if err != nil || count != 1 {
		t.Fatalf("expected one expired subscription, got %d err=%v", count, err)
	}
	if got, _ := repo.FindUserByID(ctx, lapsed.ID); got.SubscriptionStatus {
		t.Fatalf("expected lapsed subscription cleared")
	}
	if got, _ := repo.FindUserByID(ctx, current.ID); !got.SubscriptionStatus {
		t.Fatalf("expected current subscription kept")
	}
}

func TestMemoryRepository_PlatformStatistics(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	creator := seedUser(repo, domain.UserTypeCreator, 500)
	seedUser(repo, domain.UserTypeNormal, 0)
	seedCampaign(t, repo, creator, 100, 1)
	if _, err := repo.CreditCurrency(ctx, creator.ID, decimal.NewFromInt(50), 50, true,
		domain.NewTransaction(creator.ID, domain.TransactionTypeRecharge, 50).WithGatewayPayment(domain.VerifiedPayment{PaymentID: "p", OrderID: "o", Amount: decimal.NewFromInt(50)})); err != nil {
		t.Fatalf("CreditCurrency returned error: %v", err)
	}
	if _, err := repo.CreatePaymentRequest(ctx, &domain.PaymentRequest{UserID: creator.ID, UPIID: "c@upi", Coins: 120, Amount: decimal.NewFromInt(120)},
		domain.NewTransaction(creator.ID, domain.TransactionTypeSpend, 120)); err != nil {
		t.Fatalf("CreatePaymentRequest returned error: %v", err)
	}

	stats, err := repo.GetPlatformStatistics(ctx, time.Now())
	if err != nil {
		t.Fatalf("GetPlatformStatistics returned error: %v", err)
	}
	if stats.Users.Total != 2 || stats.Users.Creators != 1 || stats.Videos.Active != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if !stats.Financials.RechargeRevenue.Equal(decimal.NewFromInt(50)) || !stats.Financials.PendingPayments.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("unexpected financials: %+v", stats.Financials)
	}
}

func TestMemoryRepository_EnsureUserIsIdempotent(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	user := domain.User{ID: uuid.New(), FirstName: "Asha", Email: "asha@example.com", UserType: domain.UserTypeNormal, Coins: 999}

	created, err := repo.EnsureUser(ctx, user)
	if err != nil || !created {
		t.Fatalf("expected the user to be created, got created=%v err=%v", created, err)
	}
	got, _ := repo.FindUserByID(ctx, user.ID)
	if got.Coins != 0 {
		t.Fatalf("expected a provisioned wallet to start empty, got %d coins", got.Coins)
	}

	if created, _ := repo.EnsureUser(ctx, user); created {
		t.Fatalf("expected a replayed registration to be ignored")
	}
	other := domain.User{ID: uuid.New(), Email: "ASHA@example.com", UserType: domain.UserTypeNormal}
	if created, _ := repo.EnsureUser(ctx, other); created {
		t.Fatalf("expected a duplicate email to be ignored")
	}
}

func TestMemoryRepository_ListSubscribers(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now().UTC()
	later := now.Add(48 * time.Hour)
	sooner := now.Add(time.Hour)
	repo.AddUser(domain.User{Email: "later@example.com", SubscriptionStatus: true, SubscriptionExpiry: &later})
	repo.AddUser(domain.User{Email: "flag-only@example.com", SubscriptionStatus: true})
	repo.AddUser(domain.User{Email: "sooner@example.com", SubscriptionStatus: true, SubscriptionExpiry: &sooner})
	repo.AddUser(domain.User{Email: "free@example.com"})

	users, err := repo.ListSubscribers(ctx)
	if err != nil {
		t.Fatalf("ListSubscribers returned error: %v", err)
	}
	want := []string{"sooner@example.com", "later@example.com", "flag-only@example.com"}
	if len(users) != len(want) {
		t.Fatalf("expected %d subscribers, got %d", len(want), len(users))
	}
	for i, email := range want {
		if users[i].Email != email {
			t.Fatalf("expected %s at position %d, got %s", email, i, users[i].Email)
		}
	}
}
