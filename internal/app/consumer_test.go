package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/viewcoin/ledger-service/internal/domain"
	"github.com/viewcoin/ledger-service/internal/logging"
	"github.com/viewcoin/ledger-service/internal/store"
)

type provisionerStub struct {
	err   error
	calls int
}

func (p *provisionerStub) EnsureUser(ctx context.Context, user domain.User) (bool, error) {
	p.calls++
	return p.err == nil, p.err
}

func TestUserRegistrationConsumer_ProvisionsWallet(t *testing.T) {
	repo := store.NewMemoryRepository()
	consumer := NewUserRegistrationConsumer(repo, logging.Nop())
	userID := uuid.New()
	body := []byte(`{"user_id":"` + userID.String() + `","first_name":"Asha","email":"asha@example.com"}`)

	if !consumer.HandleMessage(body) {
		t.Fatalf("expected the message to be acknowledged")
	}
	user, err := repo.FindUserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("FindUserByID returned error: %v", err)
	}
	if user.UserType != domain.UserTypeNormal || user.Coins != 0 {
		t.Fatalf("expected an empty normal wallet, got %+v", user)
	}
	if !consumer.HandleMessage(body) {
		t.Fatalf("expected a replay to be acknowledged")
	}
}

func TestUserRegistrationConsumer_Outcomes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		repoErr   error
		wantAck   bool
		wantCalls int
	}{
		{name: "malformed json is dropped", body: `{`, wantAck: true},
		{name: "missing email is dropped", body: `{"user_id":"` + uuid.NewString() + `"}`, wantAck: true},
		{name: "bad id is dropped", body: `{"user_id":"abc","email":"a@b.c"}`, wantAck: true},
		{name: "unknown type is dropped", body: `{"user_id":"` + uuid.NewString() + `","email":"a@b.c","user_type":"root"}`, wantAck: true},
		{name: "store failure is retried", body: `{"user_id":"` + uuid.NewString() + `","email":"a@b.c"}`, repoErr: errors.New("db down"), wantAck: false, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &provisionerStub{err: tt.repoErr}
			consumer := NewUserRegistrationConsumer(repo, logging.Nop())
			if got := consumer.HandleMessage([]byte(tt.body)); got != tt.wantAck {
				t.Fatalf("expected ack=%v, got %v", tt.wantAck, got)
			}
			if repo.calls != tt.wantCalls {
				t.Fatalf("expected %d repository calls, got %d", tt.wantCalls, repo.calls)
			}
		})
	}
}
