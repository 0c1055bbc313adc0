package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/viewcoin/ledger-service/internal/domain"
)

const userProvisionTimeout = 15 * time.Second

// UserProvisioner is the repository operation the registration consumer needs.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, user domain.User) (bool, error)
}

// UserRegistrationConsumer creates the wallet row for every account the identity
// service registers, so a new user can earn before their first authenticated call.
type UserRegistrationConsumer struct {
	repo   UserProvisioner
	logger zerolog.Logger
}

func NewUserRegistrationConsumer(repo UserProvisioner, logger zerolog.Logger) *UserRegistrationConsumer {
	return &UserRegistrationConsumer{repo: repo, logger: logger}
}

// HandleMessage returns false only for failures worth retrying.
func (c *UserRegistrationConsumer) HandleMessage(body []byte) bool {
	var event domain.UserRegisteredEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Warn().Err(err).Msg("failed to unmarshal user registration; dropping")
		return true
	}

	userID, err := uuid.Parse(event.UserID)
	if err != nil || event.Email == "" {
		c.logger.Warn().Str("user_id", event.UserID).Msg("user registration missing id or email; dropping")
		return true
	}
	userType := domain.UserTypeNormal
	if event.UserType != "" {
		parsed, err := domain.ParseUserType(event.UserType)
		if err != nil {
			c.logger.Warn().Str("user_id", event.UserID).Str("user_type", event.UserType).Msg("user registration has unknown type; dropping")
			return true
		}
		userType = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), userProvisionTimeout)
	defer cancel()

	created, err := c.repo.EnsureUser(ctx, domain.User{
		ID:        userID,
		FirstName: event.FirstName,
		LastName:  event.LastName,
		Email:     event.Email,
		UserType:  userType,
	})
	if err != nil {
		c.logger.Error().Str("user_id", event.UserID).Err(err).Msg("failed to provision wallet")
		return false
	}
	c.logger.Info().Str("user_id", event.UserID).Bool("created", created).Msg("user registration processed")
	return true
}
