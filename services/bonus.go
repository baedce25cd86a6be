package services

import (
	"time"

	"github.com/shopspring/decimal"

	"venue-loyalty-system/models"
)

// CombineMultipliers folds all active multipliers multiplicatively: a 2× event
// plus a 1.5× streak is 3×, not 2.5×. No ceiling is applied here; capping
// stacked multipliers is an open product decision.
func CombineMultipliers(multipliers []decimal.Decimal) decimal.Decimal {
	combined := decimal.NewFromInt(1)
	for _, m := range multipliers {
		combined = combined.Mul(m)
	}
	return combined
}

// EventActiveAt reports whether a bonus event's window covers the given time.
// Event kind checks the absolute range; happy_hour kind checks the daily
// clock window, wrapping past midnight when end < start.
func EventActiveAt(event *models.BonusEvent, at time.Time) bool {
	if !event.IsActive {
		return false
	}

	switch event.Kind {
	case models.BonusEventKindHappyHour:
		minute := at.Hour()*60 + at.Minute()
		start, end := event.DailyStartMinute, event.DailyEndMinute
		if start == end {
			return false
		}
		if start < end {
			return minute >= start && minute < end
		}
		return minute >= start || minute < end // overnight window
	default:
		if event.StartsAt == nil || event.EndsAt == nil {
			return false
		}
		return !at.Before(*event.StartsAt) && at.Before(*event.EndsAt)
	}
}

// ActiveEventMultipliers collects the multipliers of every event active at the
// given time
func ActiveEventMultipliers(events []models.BonusEvent, at time.Time) []decimal.Decimal {
	var active []decimal.Decimal
	for i := range events {
		if EventActiveAt(&events[i], at) {
			active = append(active, events[i].Multiplier)
		}
	}
	return active
}
