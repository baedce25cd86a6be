package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Tier is the membership level at a venue, driven by cumulative spend
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// VenueMembership tracks one user's standing at one venue (denormalized for performance).
// Balance-mutating writes must go through the ledger under a row lock so that
// PointsBalance always equals TotalPointsEarned - TotalPointsRedeemed
// (referral credit counts into TotalPointsEarned).
type VenueMembership struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"index:idx_membership_user_venue,unique;not null" json:"external_user_id"` // links to profile service
	VenueID        string `gorm:"index:idx_membership_user_venue,unique;not null" json:"venue_id"`

	PointsBalance       int64           `gorm:"default:0" json:"points_balance"`
	Tier                Tier            `gorm:"default:'bronze'" json:"tier"`
	TotalSpent          decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"total_spent"`
	TotalPointsEarned   int64           `gorm:"default:0" json:"total_points_earned"`
	TotalPointsRedeemed int64           `gorm:"default:0" json:"total_points_redeemed"`

	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`
	LastTierChangeAt *time.Time `json:"last_tier_change_at,omitempty"`

	IsActive bool `gorm:"default:true" json:"is_active"` // soft-deactivated, never hard-deleted

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
