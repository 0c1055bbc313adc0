package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/viewcoin/ledger-service/internal/domain"
	"github.com/viewcoin/ledger-service/internal/store"
)

func TestSubmitWithdrawal_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     domain.WithdrawalRequest
		wantErr error
	}{
		{name: "below minimum", req: domain.WithdrawalRequest{Coins: 99, UPIID: "me@upi"}, wantErr: ErrBelowMinimum},
		{name: "blank upi", req: domain.WithdrawalRequest{Coins: 100, UPIID: "  "}, wantErr: ErrUPIRequired},
		{name: "more than balance", req: domain.WithdrawalRequest{Coins: 151, UPIID: "me@upi"}, wantErr: store.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(Options{})
			user := env.addUser(domain.UserTypeCreator, 150)

			if _, err := env.svc.SubmitWithdrawal(context.Background(), user, tt.req); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := env.coins(t, user.ID); got != 150 {
				t.Fatalf("expected balance 150, got %d", got)
			}
		})
	}
}

func TestWithdrawalLifecycle(t *testing.T) {
	tests := []struct {
		name      string
		decision  string
		wantCoins int64
		wantTypes []domain.TransactionType
	}{
		{
			name:      "approve keeps coins held",
			decision:  "approved",
			wantCoins: 50,
			wantTypes: []domain.TransactionType{domain.TransactionTypeSpend},
		},
		{
			name:      "reject refunds coins",
			decision:  " Rejected ",
			wantCoins: 150,
			wantTypes: []domain.TransactionType{domain.TransactionTypeRecharge, domain.TransactionTypeSpend},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(Options{})
			ctx := context.Background()
			user := env.addUser(domain.UserTypeCreator, 150)
			admin := env.addUser(domain.UserTypeAdmin, 0)

			request, err := env.svc.SubmitWithdrawal(ctx, user, domain.WithdrawalRequest{Coins: 100, UPIID: " me@upi "})
			if err != nil {
				t.Fatalf("SubmitWithdrawal returned error: %v", err)
			}
			if request.Status != domain.PaymentRequestStatusPending || request.UPIID != "me@upi" {
				t.Fatalf("unexpected request %+v", request)
			}
			if got := env.coins(t, user.ID); got != 50 {
				t.Fatalf("expected coins held, balance 50, got %d", got)
			}

			processed, err := env.svc.ProcessWithdrawal(ctx, admin, request.ID, domain.ProcessPaymentRequest{Status: tt.decision, Note: "checked"})
			if err != nil {
				t.Fatalf("ProcessWithdrawal returned error: %v", err)
			}
			if processed.ProcessedAt == nil || processed.Note != "checked" {
				t.Fatalf("expected processed request with note, got %+v", processed)
			}
			if got := env.coins(t, user.ID); got != tt.wantCoins {
				t.Fatalf("expected balance %d, got %d", tt.wantCoins, got)
			}

			page, err := env.svc.TransactionHistory(ctx, user.ID, 0, 0)
			if err != nil {
				t.Fatalf("TransactionHistory returned error: %v", err)
			}
			if len(page.Transactions) != len(tt.wantTypes) {
				t.Fatalf("expected %d entries, got %+v", len(tt.wantTypes), page.Transactions)
			}
			for i, want := range tt.wantTypes {
				if page.Transactions[i].Type != want {
					t.Fatalf("entry %d: expected %s, got %s", i, want, page.Transactions[i].Type)
				}
			}

			if _, err := env.svc.ProcessWithdrawal(ctx, admin, request.ID, domain.ProcessPaymentRequest{Status: "rejected"}); !errors.Is(err, store.ErrAlreadyProcessed) {
				t.Fatalf("expected ErrAlreadyProcessed on second decision, got %v", err)
			}
			if got := env.coins(t, user.ID); got != tt.wantCoins {
				t.Fatalf("second decision changed balance to %d", got)
			}
		})
	}
}

func TestProcessWithdrawal_Rejections(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()
	user := env.addUser(domain.UserTypeCreator, 200)
	admin := env.addUser(domain.UserTypeAdmin, 0)
	request, err := env.svc.SubmitWithdrawal(ctx, user, domain.WithdrawalRequest{Coins: 100, UPIID: "me@upi"})
	if err != nil {
		t.Fatalf("SubmitWithdrawal returned error: %v", err)
	}

	if _, err := env.svc.ProcessWithdrawal(ctx, user, request.ID, domain.ProcessPaymentRequest{Status: "approved"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}
	for _, status := range []string{"pending", "paid", ""} {
		if _, err := env.svc.ProcessWithdrawal(ctx, admin, request.ID, domain.ProcessPaymentRequest{Status: status}); !errors.Is(err, ErrInvalidStatus) {
			t.Fatalf("status %q: expected ErrInvalidStatus, got %v", status, err)
		}
	}
	if _, err := env.svc.ProcessWithdrawal(ctx, admin, uuid.New(), domain.ProcessPaymentRequest{Status: "approved"}); !errors.Is(err, store.ErrPaymentRequestNotFound) {
		t.Fatalf("expected ErrPaymentRequestNotFound, got %v", err)
	}
}

func TestProcessWithdrawal_ConcurrentDecisionsApplyOnce(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()
	user := env.addUser(domain.UserTypeCreator, 100)
	admin := env.addUser(domain.UserTypeAdmin, 0)
	request, err := env.svc.SubmitWithdrawal(ctx, user, domain.WithdrawalRequest{Coins: 100, UPIID: "me@upi"})
	if err != nil {
		t.Fatalf("SubmitWithdrawal returned error: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	applied := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.svc.ProcessWithdrawal(ctx, admin, request.ID, domain.ProcessPaymentRequest{Status: "rejected"}); err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Fatalf("expected exactly one decision, got %d", applied)
	}
	if got := env.coins(t, user.ID); got != 100 {
		t.Fatalf("expected a single refund to 100, got %d", got)
	}
}

func TestListPaymentRequests(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()
	user := env.addUser(domain.UserTypeCreator, 300)
	admin := env.addUser(domain.UserTypeAdmin, 0)
	first, _ := env.svc.SubmitWithdrawal(ctx, user, domain.WithdrawalRequest{Coins: 100, UPIID: "me@upi"})
	if _, err := env.svc.SubmitWithdrawal(ctx, user, domain.WithdrawalRequest{Coins: 100, UPIID: "me@upi"}); err != nil {
		t.Fatalf("SubmitWithdrawal returned error: %v", err)
	}
	if _, err := env.svc.ProcessWithdrawal(ctx, admin, first.ID, domain.ProcessPaymentRequest{Status: "approved"}); err != nil {
		t.Fatalf("ProcessWithdrawal returned error: %v", err)
	}

	pending, err := env.svc.ListPaymentRequests(ctx, "")
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending request, got %d (err %v)", len(pending), err)
	}
	approved, err := env.svc.ListPaymentRequests(ctx, "APPROVED")
	if err != nil || len(approved) != 1 || approved[0].ID != first.ID {
		t.Fatalf("expected the approved request, got %+v (err %v)", approved, err)
	}
	if _, err := env.svc.ListPaymentRequests(ctx, "paid"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}

	history, err := env.svc.WithdrawalHistory(ctx, user.ID)
	if err != nil || len(history) != 2 {
		t.Fatalf("expected two requests in history, got %d (err %v)", len(history), err)
	}
}
