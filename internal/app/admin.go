package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/viewcoin/ledger-service/internal/domain"
	"github.com/viewcoin/ledger-service/internal/logging"
)

// PlatformStatistics aggregates the admin dashboard figures.
func (s *Service) PlatformStatistics(ctx context.Context) (*domain.PlatformStatistics, error) {
	stats, err := s.repo.GetPlatformStatistics(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load platform statistics: %w", err)
	}
	return stats, nil
}

// Wallets lists every user's balances, richest first.
func (s *Service) Wallets(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListWallets(ctx)
}

// Subscribers lists users holding a subscription, soonest expiry first.
func (s *Service) Subscribers(ctx context.Context) ([]domain.User, error) {
	return s.repo.ListSubscribers(ctx)
}

// BecomeCreator lets a normal user opt in to creator rewards without recharging.
// Admins already earn at the creator rate and keep their role.
func (s *Service) BecomeCreator(ctx context.Context, user domain.User) (*domain.User, error) {
	if user.UserType != domain.UserTypeNormal {
		return nil, ErrAlreadyCreator
	}
	updated, err := s.repo.UpdateUserType(ctx, user.ID, domain.UserTypeCreator)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx, s.logger).Info().Str("user_id", user.ID.String()).Msg("user became creator")
	return updated, nil
}

// UpdateUserType changes a user's role. Only the three known roles are accepted.
func (s *Service) UpdateUserType(ctx context.Context, admin domain.User, userID uuid.UUID, rawType string) (*domain.User, error) {
	if !admin.UserType.IsAdmin() {
		return nil, ErrForbidden
	}
	userType, err := domain.ParseUserType(rawType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUserType, err)
	}
	updated, err := s.repo.UpdateUserType(ctx, userID, userType)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx, s.logger).Info().
		Str("admin_id", admin.ID.String()).
		Str("user_id", userID.String()).
		Str("user_type", string(userType)).
		Msg("user type updated")
	return updated, nil
}
