package models

import "time"

// ExpirationWindowDays is the inactivity window before a membership's points expire
const ExpirationWindowDays = 180

// PointExpiration tracks the 180-day inactivity forfeiture cycle for one
// membership. Created lazily the first time a balance is evaluated for expiry
// risk. IsExpired is sticky: re-evaluating never un-expires a cycle; activity
// after expiry starts a fresh cycle instead.
type PointExpiration struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	// One live record per membership; expired cycles are soft-retired when a
	// fresh cycle replaces them, so this is a plain index
	MembershipID string `gorm:"index;not null" json:"membership_id"`

	PointsAtRisk     int64     `gorm:"default:0" json:"points_at_risk"`
	LastActivityDate time.Time `gorm:"not null" json:"last_activity_date"`
	ExpirationDate   time.Time `gorm:"index;not null" json:"expiration_date"` // lastActivity + 180d
	DaysUntilExpiry  int       `gorm:"default:0" json:"days_until_expiry"`    // derived, refreshed on read

	WarningShownAt       *time.Time `json:"warning_shown_at,omitempty"`
	RemindLaterDate      *time.Time `json:"remind_later_date,omitempty"`
	UserDismissedWarning bool       `gorm:"default:false" json:"user_dismissed_warning"`

	IsExpired bool       `gorm:"default:false" json:"is_expired"`
	ExpiredAt *time.Time `json:"expired_at,omitempty"`

	Timestamps
}
