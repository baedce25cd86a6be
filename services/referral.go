package services

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"venue-loyalty-system/models"
)

// ReferralRewardRate: every ancestor earns a flat 25% of the original base
// points. Level 5 earns the same cut as level 1, no decay.
var ReferralRewardRate = decimal.NewFromFloat(0.25)

// RewardDistribution is one ancestor's cut of a points-earning event
type RewardDistribution struct {
	Level        int             `json:"level"`
	ReferrerID   string          `json:"referrer_id"`
	RewardAmount decimal.Decimal `json:"reward_amount"` // exact, never rounded here
	Credited     bool            `json:"credited"`      // whether the ledger write landed
	Error        string          `json:"error,omitempty"`
}

// CalculateRewardDistribution computes each populated level's reward from the
// original points-earned amount. Absent levels produce no entry; a zero earn
// still yields one zero-value entry per populated level. Precision is exact:
// 10.5 × 0.25 = 2.625.
func CalculateRewardDistribution(pointsEarned decimal.Decimal, chain *models.ReferralChain) map[int]RewardDistribution {
	distributions := make(map[int]RewardDistribution)
	if chain == nil {
		return distributions
	}
	for level := 1; level <= models.ReferralChainDepth; level++ {
		referrerID := chain.ReferrerAt(level)
		if referrerID == nil {
			continue
		}
		distributions[level] = RewardDistribution{
			Level:        level,
			ReferrerID:   *referrerID,
			RewardAmount: pointsEarned.Mul(ReferralRewardRate),
		}
	}
	return distributions
}

// UpdateLocalEarnings applies each distribution additively to the chain's
// per-level lifetime counters. At-most-once invocation per originating
// transaction is the caller's responsibility.
func UpdateLocalEarnings(chain *models.ReferralChain, distributions map[int]RewardDistribution) {
	for level, dist := range distributions {
		chain.AddEarnings(level, dist.RewardAmount)
	}
}

// ReferralDistributor fans a points-earning event out across the earner's
// ancestor chain and credits each ancestor's membership at the venue.
type ReferralDistributor struct {
	DB          *gorm.DB
	Ledger      *TransactionLedger
	Expirations *ExpirationTracker
}

func NewReferralDistributor(db *gorm.DB) *ReferralDistributor {
	return &ReferralDistributor{
		DB:          db,
		Ledger:      NewTransactionLedger(db),
		Expirations: NewExpirationTracker(db),
	}
}

// ChainFor loads a user's chain; users without one have no ancestors
func (d *ReferralDistributor) ChainFor(externalUserID string) (*models.ReferralChain, error) {
	var chain models.ReferralChain
	err := d.DB.Where("external_user_id = ?", externalUserID).First(&chain).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chain, nil
}

// BuildChainForNewUser creates the chain at registration time. The direct
// referrer becomes level 1 and the referrer's own ancestors shift down one
// level; levels beyond 5 fall off. A nil referrerID creates an empty chain.
// Ancestor links are immutable once set.
func (d *ReferralDistributor) BuildChainForNewUser(externalUserID string, referrerID *string) (*models.ReferralChain, error) {
	var existing models.ReferralChain
	err := d.DB.Where("external_user_id = ?", externalUserID).First(&existing).Error
	if err == nil {
		return &existing, nil // chain already set; a user's referrer cannot change
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	chain := models.ReferralChain{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
	}

	if referrerID != nil {
		chain.Level1ReferrerID = referrerID

		referrerChain, err := d.ChainFor(*referrerID)
		if err != nil {
			return nil, err
		}
		if referrerChain != nil {
			chain.Level2ReferrerID = referrerChain.Level1ReferrerID
			chain.Level3ReferrerID = referrerChain.Level2ReferrerID
			chain.Level4ReferrerID = referrerChain.Level3ReferrerID
			chain.Level5ReferrerID = referrerChain.Level4ReferrerID
		}
	}

	if err := d.DB.Create(&chain).Error; err != nil {
		return nil, err
	}
	return &chain, nil
}

// Distribute computes the per-level rewards for basePoints and credits each
// ancestor's membership at the venue. Referral credit is a flat bonus written
// straight to the ancestor's ledger. It does not re-enter the earn pipeline,
// so it triggers no further fan-out up the ancestor's own chain. One level
// failing never blocks the others; each entry reports its own outcome for
// reconciliation.
func (d *ReferralDistributor) Distribute(earnerID, venueID string, basePoints decimal.Decimal, occurredAt time.Time) (map[int]RewardDistribution, error) {
	chain, err := d.ChainFor(earnerID)
	if err != nil {
		return nil, err
	}
	if chain == nil || chain.ActiveLevels() == 0 {
		return map[int]RewardDistribution{}, nil
	}

	distributions := CalculateRewardDistribution(basePoints, chain)

	for level, dist := range distributions {
		credit := CreditPoints(dist.RewardAmount)
		err := d.creditAncestor(dist.ReferrerID, venueID, credit,
			fmt.Sprintf("referral level %d reward", level), occurredAt)
		if err != nil {
			dist.Error = err.Error()
			distributions[level] = dist
			log.Printf("⚠️ [REFERRAL] level %d credit failed for %s: %v", level, dist.ReferrerID, err)
			continue
		}
		dist.Credited = true
		distributions[level] = dist
	}

	// Lifetime counters advance only for the levels that actually landed
	credited := make(map[int]RewardDistribution, len(distributions))
	for level, dist := range distributions {
		if dist.Credited {
			credited[level] = dist
		}
	}
	if len(credited) > 0 {
		err = d.DB.Transaction(func(tx *gorm.DB) error {
			var fresh models.ReferralChain
			if err := tx.Where("id = ?", chain.ID).First(&fresh).Error; err != nil {
				return err
			}
			UpdateLocalEarnings(&fresh, credited)
			return tx.Save(&fresh).Error
		})
		if err != nil {
			log.Printf("⚠️ [REFERRAL] earnings counters not updated for chain %s: %v", chain.ID, err)
		}
	}

	return distributions, nil
}

// creditAncestor books a referral bonus onto the ancestor's membership at this
// venue under the usual per-membership row lock. Ancestors without a
// membership at the venue get one created on the fly. The credit counts as
// qualifying activity: the ancestor's expiration cycle resets with it, keeping
// the membership and expiration activity dates in step.
func (d *ReferralDistributor) creditAncestor(referrerID, venueID string, points int64, description string, occurredAt time.Time) error {
	return d.DB.Transaction(func(tx *gorm.DB) error {
		membership, err := lockOrCreateMembership(tx, referrerID, venueID)
		if err != nil {
			return err
		}

		_, err = d.Ledger.Append(tx, membership, LedgerEntry{
			Type:        models.TransactionTypeBonus,
			Source:      models.SourceReferral,
			Amount:      points,
			Description: description,
			OccurredAt:  occurredAt,
		})
		if err != nil {
			return err
		}

		at := occurredAt
		membership.LastActivityDate = &at
		if _, err := d.Expirations.RecordActivity(tx, membership, occurredAt); err != nil {
			return err
		}
		return tx.Save(membership).Error
	})
}
