package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserType is the closed set of account roles.
type UserType string

const (
	UserTypeNormal  UserType = "normal"
	UserTypeCreator UserType = "creator"
	UserTypeAdmin   UserType = "admin"
)

// ParseUserType rejects anything outside the three known roles.
func ParseUserType(raw string) (UserType, error) {
	switch UserType(strings.ToLower(strings.TrimSpace(raw))) {
	case UserTypeNormal:
		return UserTypeNormal, nil
	case UserTypeCreator:
		return UserTypeCreator, nil
	case UserTypeAdmin:
		return UserTypeAdmin, nil
	}
	return "", fmt.Errorf("unknown user type %q", raw)
}

func (t UserType) Valid() bool {
	_, err := ParseUserType(string(t))
	return err == nil
}

// IsAdmin reports whether the role may process withdrawals and read platform data.
func (t UserType) IsAdmin() bool { return t == UserTypeAdmin }

// EarnsCampaignRate reports whether views are rewarded at the campaign's
// coinsPerView rather than the flat normal-user rate.
func (t UserType) EarnsCampaignRate() bool { return t != UserTypeNormal }

// PromotedOnRecharge is the role a user holds after a successful wallet recharge.
// Only normal users change; admins are never demoted.
func (t UserType) PromotedOnRecharge() UserType {
	if t == UserTypeNormal {
		return UserTypeCreator
	}
	return t
}

// User is the wallet-bearing account record. Identity fields are owned by the
// identity collaborator; this service mutates only the wallet and subscription columns.
type User struct {
	ID                 uuid.UUID       `json:"id"`
	FirstName          string          `json:"firstName"`
	LastName           string          `json:"lastName"`
	Email              string          `json:"email"`
	UserType           UserType        `json:"userType"`
	Coins              int64           `json:"coins"`
	WalletBalance      decimal.Decimal `json:"walletBalance"`
	UPIID              string          `json:"upiId,omitempty"`
	SubscriptionStatus bool            `json:"subscriptionStatus"`
	SubscriptionExpiry *time.Time      `json:"subscriptionExpiry,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// HasActiveSubscription reports whether the subscription is flagged and unexpired at now.
func (u User) HasActiveSubscription(now time.Time) bool {
	return u.SubscriptionStatus && u.SubscriptionExpiry != nil && u.SubscriptionExpiry.After(now)
}

// DisplayName joins first and last name.
func (u User) DisplayName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// WalletSummary is the balance view returned to the wallet owner.
type WalletSummary struct {
	Coins              int64           `json:"coins"`
	WalletBalance      decimal.Decimal `json:"walletBalance"`
	UserType           UserType        `json:"userType"`
	SubscriptionStatus bool            `json:"subscriptionStatus"`
	SubscriptionExpiry *time.Time      `json:"subscriptionExpiry,omitempty"`
	RecentTransactions []Transaction   `json:"recentTransactions"`
}

// SubscriptionSummary reports whether the caller's subscription is currently active.
type SubscriptionSummary struct {
	Active     bool       `json:"active"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

// PlatformStatistics aggregates admin dashboard figures.
type PlatformStatistics struct {
	Users struct {
		Total             int64 `json:"total"`
		Creators          int64 `json:"creators"`
		Normal            int64 `json:"normal"`
		ActiveSubscribers int64 `json:"activeSubscribers"`
	} `json:"users"`
	Videos struct {
		Total  int64 `json:"total"`
		Active int64 `json:"active"`
	} `json:"videos"`
	Financials struct {
		SubscriptionRevenue decimal.Decimal `json:"subscriptionRevenue"`
		RechargeRevenue     decimal.Decimal `json:"rechargeRevenue"`
		TotalRevenue        decimal.Decimal `json:"totalRevenue"`
		PendingPayments     decimal.Decimal `json:"pendingPayments"`
	} `json:"financials"`
}
