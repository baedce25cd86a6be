package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"venue-loyalty-system/models"
)

// UrgencyLevel buckets how close a balance is to expiring
type UrgencyLevel string

const (
	UrgencyExpired  UrgencyLevel = "expired"
	UrgencyCritical UrgencyLevel = "critical" // ≤ 7 days
	UrgencyHigh     UrgencyLevel = "high"     // ≤ 14 days
	UrgencyMedium   UrgencyLevel = "medium"   // ≤ 30 days
	UrgencyLow      UrgencyLevel = "low"
)

// WarningWindowDays: warnings surface inside the last 30 days of the cycle
const WarningWindowDays = 30

// Refresh recomputes the derived DaysUntilExpiry and flips IsExpired once the
// window has passed. IsExpired is sticky: a later Refresh never clears it.
func Refresh(exp *models.PointExpiration, now time.Time) {
	days := int(exp.ExpirationDate.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}
	exp.DaysUntilExpiry = days

	if !exp.IsExpired && !now.Before(exp.ExpirationDate) {
		exp.IsExpired = true
		at := now
		exp.ExpiredAt = &at
	}
}

// ShouldShowWarning reports whether the client should surface the expiry
// warning: inside the 30-day window, not expired, not dismissed, and no
// snooze still pending.
func ShouldShowWarning(exp *models.PointExpiration, now time.Time) bool {
	if exp.IsExpired || exp.UserDismissedWarning {
		return false
	}
	if exp.RemindLaterDate != nil && exp.RemindLaterDate.After(now) {
		return false
	}
	return exp.DaysUntilExpiry > 0 && exp.DaysUntilExpiry <= WarningWindowDays
}

// ComputeUrgency buckets the remaining days
func ComputeUrgency(exp *models.PointExpiration) UrgencyLevel {
	switch {
	case exp.IsExpired || exp.DaysUntilExpiry <= 0:
		return UrgencyExpired
	case exp.DaysUntilExpiry <= 7:
		return UrgencyCritical
	case exp.DaysUntilExpiry <= 14:
		return UrgencyHigh
	case exp.DaysUntilExpiry <= WarningWindowDays:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// ExpirationTracker manages the per-membership expiration records
type ExpirationTracker struct {
	DB *gorm.DB
}

func NewExpirationTracker(db *gorm.DB) *ExpirationTracker {
	return &ExpirationTracker{DB: db}
}

// EnsureRecord lazily creates the expiration record the first time a
// membership's balance is evaluated for expiry risk (idempotent).
func (t *ExpirationTracker) EnsureRecord(tx *gorm.DB, membership *models.VenueMembership, now time.Time) (*models.PointExpiration, error) {
	var exp models.PointExpiration
	err := tx.Where("membership_id = ?", membership.ID).First(&exp).Error
	if err == gorm.ErrRecordNotFound {
		lastActivity := now
		if membership.LastActivityDate != nil {
			lastActivity = *membership.LastActivityDate
		}
		exp = models.PointExpiration{
			ID:               uuid.NewString(),
			MembershipID:     membership.ID,
			PointsAtRisk:     membership.PointsBalance,
			LastActivityDate: lastActivity,
			ExpirationDate:   lastActivity.AddDate(0, 0, models.ExpirationWindowDays),
		}
		Refresh(&exp, now)
		if err := tx.Create(&exp).Error; err != nil {
			return nil, err
		}
		return &exp, nil
	}
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// RecordActivity resets the cycle after a qualifying activity (check-in,
// earn, redemption). An expired record stays expired; the activity starts a
// fresh cycle on a new record instead; the old balance is settled separately
// and this tracker only signals readiness for that.
func (t *ExpirationTracker) RecordActivity(tx *gorm.DB, membership *models.VenueMembership, at time.Time) (*models.PointExpiration, error) {
	exp, err := t.EnsureRecord(tx, membership, at)
	if err != nil {
		return nil, err
	}

	if exp.IsExpired {
		fresh := models.PointExpiration{
			ID:               uuid.NewString(),
			MembershipID:     membership.ID,
			PointsAtRisk:     membership.PointsBalance,
			LastActivityDate: at,
			ExpirationDate:   at.AddDate(0, 0, models.ExpirationWindowDays),
		}
		Refresh(&fresh, at)
		// Retire the expired record; EnsureRecord only ever sees the live cycle
		if err := tx.Delete(exp).Error; err != nil {
			return nil, err
		}
		if err := tx.Create(&fresh).Error; err != nil {
			return nil, err
		}
		return &fresh, nil
	}

	exp.LastActivityDate = at
	exp.ExpirationDate = at.AddDate(0, 0, models.ExpirationWindowDays)
	exp.PointsAtRisk = membership.PointsBalance
	exp.WarningShownAt = nil
	exp.RemindLaterDate = nil
	exp.UserDismissedWarning = false
	Refresh(exp, at)
	if err := tx.Save(exp).Error; err != nil {
		return nil, err
	}
	return exp, nil
}

// Snooze sets a remind-later date, silencing the warning until then
func (t *ExpirationTracker) Snooze(membershipID string, until time.Time) error {
	return t.DB.Model(&models.PointExpiration{}).
		Where("membership_id = ?", membershipID).
		Update("remind_later_date", until).Error
}

// Dismiss silences the warning for the rest of the current cycle
func (t *ExpirationTracker) Dismiss(membershipID string) error {
	return t.DB.Model(&models.PointExpiration{}).
		Where("membership_id = ?", membershipID).
		Update("user_dismissed_warning", true).Error
}

// MarkWarningShown stamps when the client last displayed the warning
func (t *ExpirationTracker) MarkWarningShown(membershipID string, at time.Time) error {
	return t.DB.Model(&models.PointExpiration{}).
		Where("membership_id = ?", membershipID).
		Update("warning_shown_at", at).Error
}

// Sweep refreshes every unexpired record and flips the ones whose window has
// passed. Run periodically by the scheduler; the balance itself is zeroed by a
// separate settlement step this only signals for.
func (t *ExpirationTracker) Sweep(now time.Time) (int, error) {
	var records []models.PointExpiration
	if err := t.DB.Where("is_expired = ?", false).Find(&records).Error; err != nil {
		return 0, err
	}

	expired := 0
	for i := range records {
		exp := &records[i]
		Refresh(exp, now)
		if err := t.DB.Save(exp).Error; err != nil {
			return expired, err
		}
		if exp.IsExpired {
			expired++
		}
	}
	return expired, nil
}

// WarningCandidates returns the records whose warning should currently show;
// the notify worker forwards these to the push-notification collaborator.
func (t *ExpirationTracker) WarningCandidates(now time.Time) ([]models.PointExpiration, error) {
	cutoff := now.AddDate(0, 0, WarningWindowDays)
	var records []models.PointExpiration
	err := t.DB.Where("is_expired = ? AND user_dismissed_warning = ? AND expiration_date > ? AND expiration_date <= ?",
		false, false, now, cutoff).Find(&records).Error
	if err != nil {
		return nil, err
	}

	var due []models.PointExpiration
	for i := range records {
		Refresh(&records[i], now)
		if ShouldShowWarning(&records[i], now) {
			due = append(due, records[i])
		}
	}
	return due, nil
}
