package app

import (
	"errors"
	"fmt"
)

// Validation and capability errors raised before any mutation.
var (
	ErrInvalidTitle         = errors.New("title is required")
	ErrInvalidBudget        = errors.New("budget must be a positive number of coins")
	ErrInvalidCoinsPerView  = errors.New("coins per view must be 1, 2, or 3")
	ErrInvalidYouTubeURL    = errors.New("invalid youtube url")
	ErrBelowMinimum         = errors.New("minimum withdrawal is 100 coins")
	ErrUPIRequired          = errors.New("UPI ID is required for withdrawal")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidUserType      = errors.New("invalid user type")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrBelowMinimumRecharge = errors.New("minimum recharge amount is 10")
	ErrForbidden            = errors.New("forbidden")
	ErrSubscriptionActive   = errors.New("you already have an active subscription")
	ErrAlreadyCreator       = errors.New("you are already a creator")
	ErrInvalidSignature     = errors.New("invalid payment signature")
	ErrPaymentMismatch      = errors.New("payment does not belong to this order")
	ErrGatewayUnavailable   = errors.New("payment gateway unavailable")
	ErrRateLimited          = errors.New("too many requests")
)

// RateLimitError carries the wait time for a throttled caller.
type RateLimitError struct {
	RetryAfterSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s; retry after %ds", ErrRateLimited.Error(), e.RetryAfterSeconds)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
