package models

import (
	"github.com/shopspring/decimal"
)

// ItemCategory maps a line item to the venue's configured margin
type ItemCategory string

const (
	CategoryFood     ItemCategory = "food"
	CategoryBeverage ItemCategory = "beverage"
	CategoryOther    ItemCategory = "other"
)

// Venue holds the owner-configured inputs the rewards engine reads:
// per-category profit margins and the flat check-in award.
type Venue struct {
	ID   string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name string `gorm:"not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`

	// Margin percentages (0-100) per category. MaxMargin is the venue's
	// highest-margin category; 0 means margins are not configured yet and
	// the engine awards 0 points rather than failing.
	MarginFood     decimal.Decimal `gorm:"type:numeric(6,2);default:0" json:"margin_food"`
	MarginBeverage decimal.Decimal `gorm:"type:numeric(6,2);default:0" json:"margin_beverage"`
	MarginOther    decimal.Decimal `gorm:"type:numeric(6,2);default:0" json:"margin_other"`
	MaxMargin      decimal.Decimal `gorm:"type:numeric(6,2);default:0" json:"max_margin"`

	CheckInPoints int64 `gorm:"default:10" json:"check_in_points"` // flat base award per check-in
	IsActive      bool  `gorm:"default:true" json:"is_active"`

	TierConfig *VenueTierConfig `gorm:"foreignKey:VenueID" json:"tier_config,omitempty"`

	Timestamps
}

// MarginFor returns the configured margin for a line-item category.
// Unknown categories fall back to the "other" margin.
func (v *Venue) MarginFor(category ItemCategory) decimal.Decimal {
	switch category {
	case CategoryFood:
		return v.MarginFood
	case CategoryBeverage:
		return v.MarginBeverage
	default:
		return v.MarginOther
	}
}

// TierResetPolicy controls periodic tier resets
type TierResetPolicy string

const (
	TierResetNever     TierResetPolicy = "never"
	TierResetAnnual    TierResetPolicy = "annual"
	TierResetQuarterly TierResetPolicy = "quarterly"
	TierResetMonthly   TierResetPolicy = "monthly"
)

// VenueTierConfig holds per-venue spend thresholds and earning multipliers.
// Stored as first-class columns so the engine never parses serialized blobs.
type VenueTierConfig struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	VenueID string `gorm:"uniqueIndex;not null" json:"venue_id"`

	// Minimum cumulative spend to enter each tier. Bronze starts at 0,
	// Platinum has no upper bound.
	SilverMinSpend   decimal.Decimal `gorm:"type:numeric(14,2);default:250" json:"silver_min_spend"`
	GoldMinSpend     decimal.Decimal `gorm:"type:numeric(14,2);default:1000" json:"gold_min_spend"`
	PlatinumMinSpend decimal.Decimal `gorm:"type:numeric(14,2);default:5000" json:"platinum_min_spend"`

	// Per-tier earning multipliers fed into the bonus stack
	BronzeMultiplier   decimal.Decimal `gorm:"type:numeric(6,2);default:1.0" json:"bronze_multiplier"`
	SilverMultiplier   decimal.Decimal `gorm:"type:numeric(6,2);default:1.2" json:"silver_multiplier"`
	GoldMultiplier     decimal.Decimal `gorm:"type:numeric(6,2);default:1.5" json:"gold_multiplier"`
	PlatinumMultiplier decimal.Decimal `gorm:"type:numeric(6,2);default:2.0" json:"platinum_multiplier"`

	// Optional maintenance rules. Zero values disable a rule.
	MonthlySpendRequirement decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"monthly_spend_requirement"`
	InactivityDowngradeDays int             `gorm:"default:0" json:"inactivity_downgrade_days"`
	GracePeriodDays         int             `gorm:"default:0" json:"grace_period_days"`
	ResetPolicy             TierResetPolicy `gorm:"default:'never'" json:"reset_policy"`

	Timestamps
}
