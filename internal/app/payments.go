package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/viewcoin/ledger-service/internal/domain"
	"github.com/viewcoin/ledger-service/internal/logging"
	"github.com/viewcoin/ledger-service/internal/metrics"
	"github.com/viewcoin/ledger-service/internal/store"
	"github.com/viewcoin/ledger-service/pkg/razorpay"
)

const (
	noteUserID  = "user_id"
	notePurpose = "purpose"
)

// CreateRechargeOrder opens a gateway order for a wallet top-up.
func (s *Service) CreateRechargeOrder(ctx context.Context, user domain.User, amount decimal.Decimal) (*domain.PaymentOrder, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	if amount.LessThan(domain.MinRechargeAmount) {
		return nil, ErrBelowMinimumRecharge
	}
	// Paise is the smallest unit the gateway accepts.
	amount = amount.Round(2)

	order, err := s.createOrder(ctx, user, amount, domain.PaymentPurposeRecharge)
	if err != nil {
		return nil, err
	}
	return &domain.PaymentOrder{
		OrderID:  order.ID,
		Amount:   order.AmountINR(),
		Coins:    order.AmountINR().IntPart(),
		Currency: order.Currency,
		Key:      s.gatewayKeyID,
	}, nil
}

// VerifyRecharge credits a paid recharge order. The gateway's view of the order
// decides the amount; a normal user is promoted to creator.
func (s *Service) VerifyRecharge(ctx context.Context, user domain.User, req domain.PaymentVerificationRequest) (*domain.RechargeOutcome, error) {
	payment, err := s.verifyPayment(ctx, user, req, domain.PaymentPurposeRecharge)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues(domain.PaymentPurposeRecharge, verificationOutcomeLabel(err)).Inc()
		return nil, err
	}

	coins := payment.Amount.Floor().IntPart()
	entry := domain.NewTransaction(user.ID, domain.TransactionTypeRecharge, coins).WithGatewayPayment(*payment)
	updated, err := s.repo.CreditCurrency(ctx, user.ID, payment.Amount, coins, true, entry)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues(domain.PaymentPurposeRecharge, verificationOutcomeLabel(err)).Inc()
		return nil, fmt.Errorf("failed to credit recharge: %w", err)
	}

	metrics.PaymentVerifications.WithLabelValues(domain.PaymentPurposeRecharge, "ok").Inc()
	metrics.RecordCredit("recharge", coins)

	becameCreator := user.UserType == domain.UserTypeNormal && updated.UserType == domain.UserTypeCreator
	logging.Ctx(ctx, s.logger).Info().
		Str("user_id", user.ID.String()).
		Str("payment_id", payment.PaymentID).
		Str("amount", payment.Amount.StringFixed(2)).
		Int64("coins", coins).
		Bool("became_creator", becameCreator).
		Msg("wallet recharged")

	s.publishEvent(ctx, domain.LedgerEvent{
		EventType: domain.EventWalletRecharged,
		UserID:    user.ID,
		Coins:     coins,
		Amount:    payment.Amount,
	})
	return &domain.RechargeOutcome{
		CoinsAdded:    coins,
		AmountAdded:   payment.Amount,
		BecameCreator: becameCreator,
		User:          *updated,
	}, nil
}

// CreateSubscriptionOrder opens a gateway order for one month of subscription.
func (s *Service) CreateSubscriptionOrder(ctx context.Context, user domain.User) (*domain.PaymentOrder, error) {
	if user.HasActiveSubscription(s.now()) {
		return nil, ErrSubscriptionActive
	}
	order, err := s.createOrder(ctx, user, domain.SubscriptionPrice, domain.PaymentPurposeSubscription)
	if err != nil {
		return nil, err
	}
	return &domain.PaymentOrder{
		OrderID:  order.ID,
		Amount:   order.AmountINR(),
		Currency: order.Currency,
		Key:      s.gatewayKeyID,
	}, nil
}

// VerifySubscription activates the subscription for one month and credits the bonus coins.
func (s *Service) VerifySubscription(ctx context.Context, user domain.User, req domain.PaymentVerificationRequest) (*domain.SubscriptionOutcome, error) {
	payment, err := s.verifyPayment(ctx, user, req, domain.PaymentPurposeSubscription)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues(domain.PaymentPurposeSubscription, verificationOutcomeLabel(err)).Inc()
		return nil, err
	}
	if !payment.Amount.Equal(domain.SubscriptionPrice) {
		metrics.PaymentVerifications.WithLabelValues(domain.PaymentPurposeSubscription, "mismatch").Inc()
		return nil, fmt.Errorf("%w: subscription order amount %s", ErrPaymentMismatch, payment.Amount.StringFixed(2))
	}

	expiry := s.now().AddDate(0, 1, 0)
	entry := domain.NewTransaction(user.ID, domain.TransactionTypeSubscription, domain.SubscriptionBonusCoins).WithGatewayPayment(*payment)
	updated, err := s.repo.ActivateSubscription(ctx, user.ID, expiry, domain.SubscriptionBonusCoins, entry)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues(domain.PaymentPurposeSubscription, verificationOutcomeLabel(err)).Inc()
		return nil, fmt.Errorf("failed to activate subscription: %w", err)
	}

	metrics.PaymentVerifications.WithLabelValues(domain.PaymentPurposeSubscription, "ok").Inc()
	metrics.RecordCredit("subscription_bonus", domain.SubscriptionBonusCoins)
	logging.Ctx(ctx, s.logger).Info().
		Str("user_id", user.ID.String()).
		Str("payment_id", payment.PaymentID).
		Time("expiry", expiry).
		Msg("subscription activated")

	s.publishEvent(ctx, domain.LedgerEvent{
		EventType: domain.EventSubscriptionActivated,
		UserID:    user.ID,
		Coins:     domain.SubscriptionBonusCoins,
		Amount:    payment.Amount,
	})
	return &domain.SubscriptionOutcome{
		CoinsAdded: domain.SubscriptionBonusCoins,
		ExpiryDate: expiry,
		User:       *updated,
	}, nil
}

func (s *Service) createOrder(ctx context.Context, user domain.User, amount decimal.Decimal, purpose string) (*razorpay.Order, error) {
	receipt := fmt.Sprintf("%s_%d", purpose, s.now().UnixMilli())
	notes := map[string]string{
		noteUserID:  user.ID.String(),
		notePurpose: purpose,
	}
	order, err := s.gateway.CreateOrder(ctx, amount, receipt, notes)
	if err != nil {
		logging.Ctx(ctx, s.logger).Error().Str("user_id", user.ID.String()).Str("purpose", purpose).Err(err).Msg("failed to create gateway order")
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return order, nil
}

// verifyPayment checks the checkout signature and that the fetched order was
// opened by this user for this purpose.
func (s *Service) verifyPayment(ctx context.Context, user domain.User, req domain.PaymentVerificationRequest, purpose string) (*domain.VerifiedPayment, error) {
	orderID := strings.TrimSpace(req.OrderID)
	paymentID := strings.TrimSpace(req.PaymentID)
	order, err := s.gateway.VerifyPayment(ctx, orderID, paymentID, req.Signature)
	if err != nil {
		return nil, classifyGatewayError(err)
	}

	if order.Notes[noteUserID] != user.ID.String() || order.Notes[notePurpose] != purpose {
		logging.Ctx(ctx, s.logger).Warn().
			Str("user_id", user.ID.String()).
			Str("order_id", orderID).
			Str("order_user_id", order.Notes[noteUserID]).
			Str("order_purpose", order.Notes[notePurpose]).
			Msg("payment verification rejected: order belongs to another user or purpose")
		return nil, ErrPaymentMismatch
	}

	return &domain.VerifiedPayment{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: req.Signature,
		Amount:    order.AmountINR(),
	}, nil
}

func classifyGatewayError(err error) error {
	if errors.Is(err, razorpay.ErrInvalidSignature) {
		return ErrInvalidSignature
	}
	var apiErr *razorpay.ErrorResponse
	if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
		// The gateway does not know the order the client claims to have paid.
		return fmt.Errorf("%w: %v", ErrPaymentMismatch, err)
	}
	return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
}

func verificationOutcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrPaymentMismatch):
		return "mismatch"
	case errors.Is(err, ErrGatewayUnavailable):
		return "gateway_error"
	case errors.Is(err, store.ErrDuplicatePayment):
		return "duplicate"
	default:
		return "error"
	}
}
