package services

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"venue-loyalty-system/models"
)

// TierProgress describes how far a member is from the next tier
type TierProgress struct {
	CurrentTier     models.Tier     `json:"current_tier"`
	NextTier        *models.Tier    `json:"next_tier,omitempty"` // nil at platinum
	AmountNeeded    decimal.Decimal `json:"amount_needed"`
	PercentComplete decimal.Decimal `json:"percent_complete"` // 0-100
}

// tierOrder from lowest to highest
var tierOrder = []models.Tier{models.TierBronze, models.TierSilver, models.TierGold, models.TierPlatinum}

// TierFor maps cumulative spend to a tier using the venue's thresholds.
// Thresholds are checked highest-first; platinum has no upper bound.
func TierFor(spending decimal.Decimal, config *models.VenueTierConfig) models.Tier {
	switch {
	case spending.GreaterThanOrEqual(config.PlatinumMinSpend):
		return models.TierPlatinum
	case spending.GreaterThanOrEqual(config.GoldMinSpend):
		return models.TierGold
	case spending.GreaterThanOrEqual(config.SilverMinSpend):
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

// MultiplierFor returns the venue's configured earning multiplier for a tier;
// this is the "membership tier" entry in the bonus stack.
func MultiplierFor(tier models.Tier, config *models.VenueTierConfig) decimal.Decimal {
	switch tier {
	case models.TierPlatinum:
		return config.PlatinumMultiplier
	case models.TierGold:
		return config.GoldMultiplier
	case models.TierSilver:
		return config.SilverMultiplier
	default:
		return config.BronzeMultiplier
	}
}

// minSpendFor returns the entry threshold of a tier
func minSpendFor(tier models.Tier, config *models.VenueTierConfig) decimal.Decimal {
	switch tier {
	case models.TierPlatinum:
		return config.PlatinumMinSpend
	case models.TierGold:
		return config.GoldMinSpend
	case models.TierSilver:
		return config.SilverMinSpend
	default:
		return decimal.Zero
	}
}

// ProgressToward computes the next tier, the remaining spend to reach it, and
// percent progress through the current tier band. At platinum everything is
// complete and NextTier is nil.
func ProgressToward(tier models.Tier, spending decimal.Decimal, config *models.VenueTierConfig) TierProgress {
	progress := TierProgress{CurrentTier: tier}

	if tier == models.TierPlatinum {
		progress.AmountNeeded = decimal.Zero
		progress.PercentComplete = decimal.NewFromInt(100)
		return progress
	}

	var next models.Tier
	for i, t := range tierOrder {
		if t == tier {
			next = tierOrder[i+1]
			break
		}
	}
	progress.NextTier = &next

	floor := minSpendFor(tier, config)
	target := minSpendFor(next, config)

	needed := target.Sub(spending)
	if needed.IsNegative() {
		needed = decimal.Zero
	}
	progress.AmountNeeded = needed

	band := target.Sub(floor)
	if band.IsPositive() {
		pct := spending.Sub(floor).Div(band).Mul(decimal.NewFromInt(100))
		if pct.IsNegative() {
			pct = decimal.Zero
		}
		if pct.GreaterThan(decimal.NewFromInt(100)) {
			pct = decimal.NewFromInt(100)
		}
		progress.PercentComplete = pct.Round(2)
	}
	return progress
}

// TierEngine recomputes tiers on spend events and runs periodic maintenance
type TierEngine struct {
	DB *gorm.DB
}

func NewTierEngine(db *gorm.DB) *TierEngine {
	return &TierEngine{DB: db}
}

// ConfigForVenue loads the venue's tier config, falling back to defaults when
// the venue never configured one (a config problem must not corrupt balances).
func (e *TierEngine) ConfigForVenue(venueID string) *models.VenueTierConfig {
	var config models.VenueTierConfig
	if err := e.DB.Where("venue_id = ?", venueID).First(&config).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			log.Printf("⚠️ [TIER] config lookup failed for venue %s: %v", venueID, err)
		}
		return DefaultTierConfig(venueID)
	}
	return &config
}

// DefaultTierConfig mirrors the column defaults for venues without a stored config
func DefaultTierConfig(venueID string) *models.VenueTierConfig {
	return &models.VenueTierConfig{
		VenueID:            venueID,
		SilverMinSpend:     decimal.NewFromInt(250),
		GoldMinSpend:       decimal.NewFromInt(1000),
		PlatinumMinSpend:   decimal.NewFromInt(5000),
		BronzeMultiplier:   decimal.NewFromFloat(1.0),
		SilverMultiplier:   decimal.NewFromFloat(1.2),
		GoldMultiplier:     decimal.NewFromFloat(1.5),
		PlatinumMultiplier: decimal.NewFromFloat(2.0),
		ResetPolicy:        models.TierResetNever,
	}
}

// Recompute applies the tier implied by current spend to the membership
// (within the caller's transaction). Returns the new tier and whether it changed.
func (e *TierEngine) Recompute(tx *gorm.DB, membership *models.VenueMembership, config *models.VenueTierConfig) (models.Tier, bool) {
	newTier := TierFor(membership.TotalSpent, config)
	if newTier == membership.Tier {
		return newTier, false
	}

	now := time.Now()
	membership.Tier = newTier
	membership.LastTierChangeAt = &now
	log.Printf("🏅 Tier change: membership %s → %s", membership.ID, newTier)
	return newTier, true
}

// RunMaintenance applies the venue's downgrade rules across its memberships:
// a member below the monthly spend requirement, or inactive past the
// inactivity window, drops one tier, but only after the configured grace
// period has passed since their last qualifying activity.
func (e *TierEngine) RunMaintenance(venueID string, now time.Time) error {
	config := e.ConfigForVenue(venueID)
	if config.MonthlySpendRequirement.IsZero() && config.InactivityDowngradeDays == 0 {
		return nil // no maintenance rules configured
	}

	var memberships []models.VenueMembership
	if err := e.DB.Where("venue_id = ? AND is_active = ? AND tier <> ?",
		venueID, true, models.TierBronze).Find(&memberships).Error; err != nil {
		return err
	}

	for i := range memberships {
		m := &memberships[i]
		if !e.dueForDowngrade(m, config, now) {
			continue
		}

		err := e.DB.Transaction(func(tx *gorm.DB) error {
			downgraded := downgradeTier(m.Tier)
			m.Tier = downgraded
			m.LastTierChangeAt = &now
			return tx.Save(m).Error
		})
		if err != nil {
			log.Printf("⚠️ [TIER] downgrade failed for membership %s: %v", m.ID, err)
			continue
		}
		log.Printf("📉 Tier maintenance: membership %s downgraded to %s", m.ID, m.Tier)
	}
	return nil
}

func (e *TierEngine) dueForDowngrade(m *models.VenueMembership, config *models.VenueTierConfig, now time.Time) bool {
	if m.LastActivityDate == nil {
		return false
	}

	grace := time.Duration(config.GracePeriodDays) * 24 * time.Hour
	idle := now.Sub(*m.LastActivityDate)

	if config.InactivityDowngradeDays > 0 {
		window := time.Duration(config.InactivityDowngradeDays) * 24 * time.Hour
		if idle > window+grace {
			return true
		}
	}

	if config.MonthlySpendRequirement.IsPositive() {
		row := struct{ Total decimal.Decimal }{}
		since := now.AddDate(0, -1, 0)
		e.DB.Model(&models.PointTransaction{}).
			Select("COALESCE(SUM(spend_amount), 0) as total").
			Where("membership_id = ? AND type = ? AND occurred_at >= ?", m.ID, models.TransactionTypeEarn, since).
			Scan(&row)
		if row.Total.LessThan(config.MonthlySpendRequirement) && idle > grace {
			return true
		}
	}
	return false
}

func downgradeTier(tier models.Tier) models.Tier {
	for i, t := range tierOrder {
		if t == tier && i > 0 {
			return tierOrder[i-1]
		}
	}
	return models.TierBronze
}
