package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinCoinsPerView = 1
	MaxCoinsPerView = 3
	// NormalViewReward is the flat reward paid to normal-type viewers.
	NormalViewReward = 1
)

// Campaign is a creator-funded video whose views pay out coins until the budget is spent.
// This struct maps to the `video_campaigns` table.
type Campaign struct {
	ID              uuid.UUID `json:"id"`
	CreatorID       uuid.UUID `json:"creatorId"`
	YoutubeURL      string    `json:"youtubeUrl"`
	Title           string    `json:"title"`
	Budget          int64     `json:"budget"`
	CoinsPerView    int64     `json:"coinsPerView"`
	TotalViews      int64     `json:"totalViews"`
	TotalCoinsSpent int64     `json:"totalCoinsSpent"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Eligible reports whether the campaign can still pay for views.
func (c Campaign) Eligible() bool {
	return c.Active && c.TotalCoinsSpent < c.Budget
}

// RemainingBudget is the unspent portion of the budget.
func (c Campaign) RemainingBudget() int64 {
	if c.TotalCoinsSpent >= c.Budget {
		return 0
	}
	return c.Budget - c.TotalCoinsSpent
}

// ViewReward is the coin amount a viewer of the given type earns for one view.
func (c Campaign) ViewReward(viewer UserType) int64 {
	if viewer.EarnsCampaignRate() {
		return c.CoinsPerView
	}
	return NormalViewReward
}

// ValidCoinsPerView reports whether n is an accepted per-view rate.
func ValidCoinsPerView(n int64) bool {
	return n >= MinCoinsPerView && n <= MaxCoinsPerView
}

// AddCampaignRequest is the DTO for POST /videos/add.
type AddCampaignRequest struct {
	YoutubeURL   string `json:"youtubeUrl" validate:"required,url"`
	Title        string `json:"title" validate:"required,max=200"`
	Budget       int64  `json:"budget" validate:"required,gt=0"`
	CoinsPerView int64  `json:"coinsPerView" validate:"required"`
}

// UpdateCampaignRequest is the DTO for PUT /videos/update/{videoId}.
type UpdateCampaignRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ViewOutcome is the result of a rewarded view.
type ViewOutcome struct {
	Campaign    Campaign `json:"video"`
	CoinsEarned int64    `json:"coinsEarned"`
	ViewerCoins int64    `json:"-"`
}

// CreatorBudget is one row of the top-creators leaderboard.
type CreatorBudget struct {
	CreatorID   uuid.UUID `json:"creatorId"`
	Name        string    `json:"name"`
	TotalBudget int64     `json:"totalBudget"`
	VideoCount  int64     `json:"videoCount"`
}
