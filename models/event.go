package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BonusEventKind distinguishes one-off events from daily happy-hour windows
type BonusEventKind string

const (
	BonusEventKindEvent     BonusEventKind = "event"
	BonusEventKindHappyHour BonusEventKind = "happy_hour"
)

// BonusEvent is a venue-scoped earning multiplier window. Event kind uses the
// absolute StartsAt/EndsAt range; happy_hour kind repeats daily over a
// minutes-since-midnight clock window (may wrap past midnight).
type BonusEvent struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	VenueID string `gorm:"index;not null" json:"venue_id"`

	Name       string          `gorm:"not null" json:"name"`
	Kind       BonusEventKind  `gorm:"not null;default:'event'" json:"kind"`
	Multiplier decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"multiplier"`

	StartsAt *time.Time `json:"starts_at,omitempty"`
	EndsAt   *time.Time `json:"ends_at,omitempty"`

	// Happy-hour clock window, minutes since midnight venue-local
	DailyStartMinute int `gorm:"default:0" json:"daily_start_minute"`
	DailyEndMinute   int `gorm:"default:0" json:"daily_end_minute"`

	IsActive bool `gorm:"default:true" json:"is_active"`

	Timestamps
}
