package models

import "github.com/shopspring/decimal"

// ReferralChainDepth is the maximum number of ancestor referrers tracked per user
const ReferralChainDepth = 5

// ReferralChain holds up to 5 ancestor referrers for one user.
// Ancestor links are set once at signup (built by shifting the direct
// referrer's own chain down a level) and never change afterwards; the
// per-level earnings counters only ever grow.
type ReferralChain struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	Level1ReferrerID *string `gorm:"index" json:"level1_referrer_id,omitempty"`
	Level2ReferrerID *string `json:"level2_referrer_id,omitempty"`
	Level3ReferrerID *string `json:"level3_referrer_id,omitempty"`
	Level4ReferrerID *string `json:"level4_referrer_id,omitempty"`
	Level5ReferrerID *string `json:"level5_referrer_id,omitempty"`

	// Lifetime referral earnings per level, exact to the fraction
	Level1Earnings decimal.Decimal `gorm:"type:numeric(16,6);default:0" json:"level1_earnings"`
	Level2Earnings decimal.Decimal `gorm:"type:numeric(16,6);default:0" json:"level2_earnings"`
	Level3Earnings decimal.Decimal `gorm:"type:numeric(16,6);default:0" json:"level3_earnings"`
	Level4Earnings decimal.Decimal `gorm:"type:numeric(16,6);default:0" json:"level4_earnings"`
	Level5Earnings decimal.Decimal `gorm:"type:numeric(16,6);default:0" json:"level5_earnings"`

	Timestamps
}

// ReferrerAt returns the ancestor at a 1-based level, nil if that slot is empty
func (c *ReferralChain) ReferrerAt(level int) *string {
	switch level {
	case 1:
		return c.Level1ReferrerID
	case 2:
		return c.Level2ReferrerID
	case 3:
		return c.Level3ReferrerID
	case 4:
		return c.Level4ReferrerID
	case 5:
		return c.Level5ReferrerID
	}
	return nil
}

// EarningsAt returns the lifetime earnings counter for a 1-based level
func (c *ReferralChain) EarningsAt(level int) decimal.Decimal {
	switch level {
	case 1:
		return c.Level1Earnings
	case 2:
		return c.Level2Earnings
	case 3:
		return c.Level3Earnings
	case 4:
		return c.Level4Earnings
	case 5:
		return c.Level5Earnings
	}
	return decimal.Zero
}

// AddEarnings bumps the lifetime counter for a 1-based level
func (c *ReferralChain) AddEarnings(level int, amount decimal.Decimal) {
	switch level {
	case 1:
		c.Level1Earnings = c.Level1Earnings.Add(amount)
	case 2:
		c.Level2Earnings = c.Level2Earnings.Add(amount)
	case 3:
		c.Level3Earnings = c.Level3Earnings.Add(amount)
	case 4:
		c.Level4Earnings = c.Level4Earnings.Add(amount)
	case 5:
		c.Level5Earnings = c.Level5Earnings.Add(amount)
	}
}

// ActiveLevels counts populated ancestor slots
func (c *ReferralChain) ActiveLevels() int {
	n := 0
	for level := 1; level <= ReferralChainDepth; level++ {
		if c.ReferrerAt(level) != nil {
			n++
		}
	}
	return n
}
