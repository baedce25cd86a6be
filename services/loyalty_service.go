package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"venue-loyalty-system/models"
)

// Engine errors surfaced to callers. Configuration problems are not errors:
// a misconfigured venue degrades to 0 points (logged) rather than corrupting
// a balance.
var (
	ErrInvalidAmount       = errors.New("purchase amount must be positive")
	ErrInvalidPartySize    = errors.New("party size must be at least 1")
	ErrInsufficientBalance = errors.New("points cost exceeds balance")
	ErrMembershipInactive  = errors.New("membership is deactivated")
	ErrVenueNotFound       = errors.New("venue not found")
	ErrConcurrencyConflict = errors.New("concurrent update conflict, retry the operation")
)

// EarnResult is returned by the earn entry point
type EarnResult struct {
	PointsAwarded   int64                      `json:"points_awarded"`
	TotalPoints     decimal.Decimal            `json:"total_points"` // display value, 2dp
	BasePoints      decimal.Decimal            `json:"base_points"`
	BonusPoints     decimal.Decimal            `json:"bonus_points"`
	Multiplier      decimal.Decimal            `json:"multiplier"` // combined stack applied on top
	NewBalance      int64                      `json:"new_balance"`
	Tier            models.Tier                `json:"tier"`
	TierChanged     bool                       `json:"tier_changed"`
	Breakdown       []OrderItemPoints          `json:"breakdown"`
	ReferralRewards map[int]RewardDistribution `json:"referral_rewards"`
}

// RedeemResult is returned by the redeem entry point
type RedeemResult struct {
	Success    bool  `json:"success"`
	NewBalance int64 `json:"new_balance"`
}

// CheckInResult is returned by the check-in entry point
type CheckInResult struct {
	StreakDay        int                        `json:"streak_day"`
	StreakMultiplier decimal.Decimal            `json:"streak_multiplier"`
	PointsAwarded    int64                      `json:"points_awarded"`
	NewBalance       int64                      `json:"new_balance"`
	Tier             models.Tier                `json:"tier"`
	ReferralRewards  map[int]RewardDistribution `json:"referral_rewards"`
}

// ExpirationState is the poll response for the mobile client and the notify job
type ExpirationState struct {
	PointsAtRisk    int64        `json:"points_at_risk"`
	ExpirationDate  time.Time    `json:"expiration_date"`
	DaysUntilExpiry int          `json:"days_until_expiry"`
	Urgency         UrgencyLevel `json:"urgency"`
	ShowWarning     bool         `json:"show_warning"`
	IsExpired       bool         `json:"is_expired"`
}

// LoyaltyService orchestrates the rewards engine: margin-weighted point
// calculation, bonus stacking, ledger writes, referral fan-out, tier
// recomputation and expiration refresh: everything behind the earn, redeem
// and check-in entry points.
type LoyaltyService struct {
	DB          *gorm.DB
	Ledger      *TransactionLedger
	Tiers       *TierEngine
	Expirations *ExpirationTracker
	Referrals   *ReferralDistributor
}

func NewLoyaltyService(db *gorm.DB) *LoyaltyService {
	return &LoyaltyService{
		DB:          db,
		Ledger:      NewTransactionLedger(db),
		Tiers:       NewTierEngine(db),
		Expirations: NewExpirationTracker(db),
		Referrals:   NewReferralDistributor(db),
	}
}

// Earn processes a purchase: line items → margin-weighted base points → bonus
// stack (tier, streak, events) → ledger credit, then fans the *base* points
// out across the earner's referral chain and recomputes the tier from the new
// cumulative spend. Validation happens before any write; a validation failure
// leaves no partial state.
func (s *LoyaltyService) Earn(userID, venueID string, items []OrderItem, occurredAt time.Time) (*EarnResult, error) {
	orderTotal := decimal.Zero
	for _, item := range items {
		orderTotal = orderTotal.Add(item.Amount())
	}
	if !orderTotal.IsPositive() {
		return nil, ErrInvalidAmount
	}

	venue, err := s.venueByID(venueID)
	if err != nil {
		return nil, err
	}
	if venue.MaxMargin.IsZero() {
		log.Printf("⚠️ [CONFIG] venue %s has no margin data; awarding 0 points", venue.ID)
	}

	order := CalculatePointsForOrder(items, venue)
	config := s.Tiers.ConfigForVenue(venueID)

	result := &EarnResult{
		TotalPoints: DisplayPoints(order.TotalPoints),
		BasePoints:  DisplayPoints(order.BasePoints),
		BonusPoints: DisplayPoints(order.BonusPoints),
		Breakdown:   order.Breakdown,
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		membership, err := lockOrCreateMembership(tx, userID, venueID)
		if err != nil {
			return err
		}

		stack := s.activeMultipliers(membership, config, venueID, userID, occurredAt)
		result.Multiplier = CombineMultipliers(stack)

		final := order.TotalPoints.Mul(result.Multiplier)
		credit := CreditPoints(final)

		_, err = s.Ledger.Append(tx, membership, LedgerEntry{
			Type:        models.TransactionTypeEarn,
			Source:      models.SourceReward,
			Amount:      credit,
			SpendAmount: orderTotal,
			Description: "purchase reward",
			OccurredAt:  occurredAt,
		})
		if err != nil {
			return err
		}

		membership.TotalSpent = membership.TotalSpent.Add(orderTotal)
		membership.LastActivityDate = &occurredAt

		newTier, changed := s.Tiers.Recompute(tx, membership, config)
		result.Tier = newTier
		result.TierChanged = changed

		if _, err := s.Expirations.RecordActivity(tx, membership, occurredAt); err != nil {
			return err
		}

		result.PointsAwarded = credit
		result.NewBalance = membership.PointsBalance
		return tx.Save(membership).Error
	})
	if err != nil {
		return nil, translateConflict(err)
	}

	// Referral fan-out uses the base (pre-bonus) points. Each ancestor's
	// credit is independent; partial success is reported per level.
	rewards, err := s.Referrals.Distribute(userID, venueID, order.BasePoints, occurredAt)
	if err != nil {
		log.Printf("⚠️ [REFERRAL] distribution failed for %s: %v", userID, err)
		rewards = map[int]RewardDistribution{}
	}
	result.ReferralRewards = rewards

	log.Printf("💰 Earn: user=%s venue=%s points=%d balance=%d tier=%s",
		userID, venueID, result.PointsAwarded, result.NewBalance, result.Tier)
	return result, nil
}

// Refund reverses a prior purchase's line items: same margin formula on the
// refunded amounts, with the resulting points debited (floored at zero balance).
func (s *LoyaltyService) Refund(userID, venueID string, items []OrderItem, occurredAt time.Time) (*RedeemResult, error) {
	refundTotal := decimal.Zero
	for _, item := range items {
		refundTotal = refundTotal.Add(item.Amount())
	}
	if !refundTotal.IsPositive() {
		return nil, ErrInvalidAmount
	}

	venue, err := s.venueByID(venueID)
	if err != nil {
		return nil, err
	}

	order := CalculatePointsForOrder(items, venue)
	debit := CreditPoints(order.TotalPoints)

	result := &RedeemResult{}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		membership, err := lockOrCreateMembership(tx, userID, venueID)
		if err != nil {
			return err
		}

		if debit > membership.PointsBalance {
			debit = membership.PointsBalance // never drive a balance negative on refund
		}

		_, err = s.Ledger.Append(tx, membership, LedgerEntry{
			Type:        models.TransactionTypeRefund,
			Source:      models.SourceRefund,
			Amount:      -debit,
			SpendAmount: refundTotal.Neg(),
			Description: "purchase refund",
			OccurredAt:  occurredAt,
		})
		if err != nil {
			return err
		}

		membership.TotalSpent = membership.TotalSpent.Sub(refundTotal)
		if membership.TotalSpent.IsNegative() {
			membership.TotalSpent = decimal.Zero
		}

		result.Success = true
		result.NewBalance = membership.PointsBalance
		return tx.Save(membership).Error
	})
	if err != nil {
		return nil, translateConflict(err)
	}
	return result, nil
}

// Redeem spends points against rewards, failing with ErrInsufficientBalance
// when the cost exceeds the balance. No partial state on failure.
func (s *LoyaltyService) Redeem(userID, venueID string, pointsCost int64) (*RedeemResult, error) {
	if pointsCost <= 0 {
		return nil, ErrInvalidAmount
	}

	result := &RedeemResult{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		membership, err := lockMembership(tx, userID, venueID)
		if err == gorm.ErrRecordNotFound {
			// never joined the venue: nothing to spend
			return ErrInsufficientBalance
		}
		if err != nil {
			return err
		}
		if pointsCost > membership.PointsBalance {
			return ErrInsufficientBalance
		}

		now := time.Now()
		_, err = s.Ledger.Append(tx, membership, LedgerEntry{
			Type:        models.TransactionTypeRedeem,
			Source:      models.SourceReward,
			Amount:      -pointsCost,
			Description: "reward redemption",
			OccurredAt:  now,
		})
		if err != nil {
			return err
		}

		membership.LastActivityDate = &now
		if _, err := s.Expirations.RecordActivity(tx, membership, now); err != nil {
			return err
		}

		result.Success = true
		result.NewBalance = membership.PointsBalance
		return tx.Save(membership).Error
	})
	if err != nil {
		return nil, translateConflict(err)
	}

	log.Printf("🎟️ Redeem: user=%s venue=%s cost=%d balance=%d", userID, venueID, pointsCost, result.NewBalance)
	return result, nil
}

// CheckIn records a visit and awards the venue's flat check-in points through
// the same bonus stack (streak, tier, events). Base check-in points also fan
// out across the referral chain.
func (s *LoyaltyService) CheckIn(userID, venueID string, partySize int, at time.Time) (*CheckInResult, error) {
	if partySize < 1 {
		return nil, ErrInvalidPartySize
	}

	venue, err := s.venueByID(venueID)
	if err != nil {
		return nil, err
	}

	streakDay := s.currentStreakDay(userID, venueID, at)
	basePoints := decimal.NewFromInt(venue.CheckInPoints)

	result := &CheckInResult{
		StreakDay:        streakDay,
		StreakMultiplier: StreakMultiplier(streakDay),
	}

	config := s.Tiers.ConfigForVenue(venueID)

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		membership, err := lockOrCreateMembership(tx, userID, venueID)
		if err != nil {
			return err
		}

		stack := []decimal.Decimal{
			result.StreakMultiplier,
			MultiplierFor(membership.Tier, config),
		}
		var events []models.BonusEvent
		if err := tx.Where("venue_id = ? AND is_active = ?", venueID, true).Find(&events).Error; err == nil {
			stack = append(stack, ActiveEventMultipliers(events, at)...)
		}

		credit := CreditPoints(basePoints.Mul(CombineMultipliers(stack)))

		checkIn := models.CheckIn{
			ID:             uuid.NewString(),
			ExternalUserID: userID,
			VenueID:        venueID,
			PartySize:      partySize,
			StreakDay:      streakDay,
			CheckedInAt:    at,
		}
		if err := tx.Create(&checkIn).Error; err != nil {
			return err
		}

		_, err = s.Ledger.Append(tx, membership, LedgerEntry{
			Type:        models.TransactionTypeEarn,
			Source:      models.SourceCheckIn,
			Amount:      credit,
			Description: "venue check-in",
			OccurredAt:  at,
		})
		if err != nil {
			return err
		}

		membership.LastActivityDate = &at
		if _, err := s.Expirations.RecordActivity(tx, membership, at); err != nil {
			return err
		}

		result.PointsAwarded = credit
		result.NewBalance = membership.PointsBalance
		result.Tier = membership.Tier
		return tx.Save(membership).Error
	})
	if err != nil {
		return nil, translateConflict(err)
	}

	rewards, err := s.Referrals.Distribute(userID, venueID, basePoints, at)
	if err != nil {
		log.Printf("⚠️ [REFERRAL] distribution failed for %s: %v", userID, err)
		rewards = map[int]RewardDistribution{}
	}
	result.ReferralRewards = rewards

	log.Printf("📍 Check-in: user=%s venue=%s day=%d points=%d", userID, venueID, streakDay, result.PointsAwarded)
	return result, nil
}

// GetMembership returns the membership row, creating it on first contact
func (s *LoyaltyService) GetMembership(userID, venueID string) (*models.VenueMembership, error) {
	var membership models.VenueMembership
	err := s.DB.Where("external_user_id = ? AND venue_id = ?", userID, venueID).First(&membership).Error
	if err == gorm.ErrRecordNotFound {
		var created *models.VenueMembership
		err = s.DB.Transaction(func(tx *gorm.DB) error {
			m, err := lockOrCreateMembership(tx, userID, venueID)
			if err != nil {
				return err
			}
			created = m
			return nil
		})
		return created, err
	}
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// GetExpirationState refreshes and returns the expiry/warning state the
// mobile client polls
func (s *LoyaltyService) GetExpirationState(userID, venueID string, now time.Time) (*ExpirationState, error) {
	// Membership is created on first contact before its row lock is taken
	if _, err := s.GetMembership(userID, venueID); err != nil {
		return nil, err
	}

	var exp *models.PointExpiration
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		// The row lock serializes first-time polls so only one creates the
		// lazy expiration record
		locked, err := lockMembership(tx, userID, venueID)
		if err != nil {
			return err
		}
		exp, err = s.Expirations.EnsureRecord(tx, locked, now)
		if err != nil {
			return err
		}
		Refresh(exp, now)
		exp.PointsAtRisk = locked.PointsBalance
		return tx.Save(exp).Error
	})
	if err != nil {
		return nil, err
	}

	return &ExpirationState{
		PointsAtRisk:    exp.PointsAtRisk,
		ExpirationDate:  exp.ExpirationDate,
		DaysUntilExpiry: exp.DaysUntilExpiry,
		Urgency:         ComputeUrgency(exp),
		ShowWarning:     ShouldShowWarning(exp, now),
		IsExpired:       exp.IsExpired,
	}, nil
}

// GetStreakState reports the current streak without recording a check-in
func (s *LoyaltyService) GetStreakState(userID, venueID string, now time.Time) (int, decimal.Decimal) {
	times := s.recentCheckInTimes(userID, venueID)
	if len(times) == 0 {
		return 0, decimal.NewFromInt(1)
	}
	day := CalculateStreakDay(times, now)
	// Viewing doesn't extend the streak; only streaks touched today count as
	// already on that day.
	latest := truncateToDay(times[len(times)-1])
	if latest.Before(truncateToDay(now)) {
		day--
	}
	if day < 1 {
		return 0, decimal.NewFromInt(1)
	}
	return day, StreakMultiplier(day)
}

func (s *LoyaltyService) venueByID(venueID string) (*models.Venue, error) {
	var venue models.Venue
	err := s.DB.Where("id = ? AND is_active = ?", venueID, true).First(&venue).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrVenueNotFound
	}
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

// currentStreakDay derives the streak day for a check-in happening at `at`
func (s *LoyaltyService) currentStreakDay(userID, venueID string, at time.Time) int {
	return CalculateStreakDay(s.recentCheckInTimes(userID, venueID), at)
}

func (s *LoyaltyService) recentCheckInTimes(userID, venueID string) []time.Time {
	var checkIns []models.CheckIn
	since := time.Now().AddDate(0, 0, -60) // streaks longer than this read as 60+
	s.DB.Where("external_user_id = ? AND venue_id = ? AND checked_in_at >= ?", userID, venueID, since).
		Order("checked_in_at ASC").
		Find(&checkIns)

	times := make([]time.Time, len(checkIns))
	for i, c := range checkIns {
		times[i] = c.CheckedInAt
	}
	return times
}

// activeMultipliers assembles the bonus stack for an earn event: membership
// tier, current streak (only when one is running), and any active venue events.
func (s *LoyaltyService) activeMultipliers(membership *models.VenueMembership, config *models.VenueTierConfig, venueID, userID string, at time.Time) []decimal.Decimal {
	stack := []decimal.Decimal{MultiplierFor(membership.Tier, config)}

	if day, mult := s.GetStreakState(userID, venueID, at); day > 1 {
		stack = append(stack, mult)
	}

	var events []models.BonusEvent
	if err := s.DB.Where("venue_id = ? AND is_active = ?", venueID, true).Find(&events).Error; err == nil {
		stack = append(stack, ActiveEventMultipliers(events, at)...)
	}
	return stack
}

// lockMembership takes the per-membership row lock that serializes all
// balance-mutating operations for one (user, venue) pair.
func lockMembership(tx *gorm.DB, userID, venueID string) (*models.VenueMembership, error) {
	var membership models.VenueMembership
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("external_user_id = ? AND venue_id = ?", userID, venueID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// lockOrCreateMembership locks the membership row, creating it on first
// contact with the venue
func lockOrCreateMembership(tx *gorm.DB, userID, venueID string) (*models.VenueMembership, error) {
	membership, err := lockMembership(tx, userID, venueID)
	if err == nil {
		return membership, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	created := models.VenueMembership{
		ID:             uuid.NewString(),
		ExternalUserID: userID,
		VenueID:        venueID,
		Tier:           models.TierBronze,
		TotalSpent:     decimal.Zero,
		IsActive:       true,
	}
	// ON CONFLICT keeps the transaction alive when another writer wins the
	// insert race; their row gets locked instead
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&created)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return lockMembership(tx, userID, venueID)
	}
	return &created, nil
}

// translateConflict maps database serialization/deadlock failures onto the
// retryable sentinel. The engine never retries silently; replaying an earn
// verbatim would double-credit.
func translateConflict(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "could not serialize") || strings.Contains(msg, "deadlock detected") {
		return ErrConcurrencyConflict
	}
	return err
}
