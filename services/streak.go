package services

import (
	"time"

	"github.com/shopspring/decimal"
)

// Streak multiplier table: day 1 → 1.0× up to day 5+ → 2.5×
var streakMultipliers = map[int]decimal.Decimal{
	1: decimal.NewFromFloat(1.0),
	2: decimal.NewFromFloat(1.2),
	3: decimal.NewFromFloat(1.5),
	4: decimal.NewFromFloat(2.0),
	5: decimal.NewFromFloat(2.5),
}

// StreakMultiplierCapDay: every day at or past this earns the top multiplier
const StreakMultiplierCapDay = 5

// StreakMultiplier maps a streak day to its earning multiplier
func StreakMultiplier(streakDay int) decimal.Decimal {
	if streakDay < 1 {
		streakDay = 1
	}
	if streakDay > StreakMultiplierCapDay {
		streakDay = StreakMultiplierCapDay
	}
	return streakMultipliers[streakDay]
}

// CalculateStreakDay derives the consecutive-calendar-day check-in streak from
// prior check-in times, evaluated as of `now`. Only a streak whose latest
// check-in was today or yesterday counts; a gap of more than one calendar day
// resets to day 1. Checking in today on an active streak that last ran
// yesterday extends it.
func CalculateStreakDay(checkIns []time.Time, now time.Time) int {
	if len(checkIns) == 0 {
		return 1
	}

	// Collapse to distinct calendar days
	seen := map[time.Time]bool{}
	var days []time.Time
	for _, t := range checkIns {
		day := truncateToDay(t)
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}

	today := truncateToDay(now)
	latest := days[0]
	for _, d := range days[1:] {
		if d.After(latest) {
			latest = d
		}
	}

	// Streak is stale once the latest check-in is older than yesterday
	if today.Sub(latest) > 24*time.Hour {
		return 1
	}

	streak := 1
	cursor := latest
	for {
		prev := cursor.AddDate(0, 0, -1)
		if !seen[prev] {
			break
		}
		streak++
		cursor = prev
	}

	// A check-in happening today after a streak that ended yesterday counts
	// as the next day of that streak.
	if latest.Before(today) {
		streak++
	}
	return streak
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
