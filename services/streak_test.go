package services

import (
	"testing"
	"time"
)

func day(offset int) time.Time {
	base := time.Date(2026, 8, 31, 19, 30, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

func TestCalculateStreakDay(t *testing.T) {
	now := day(0)

	tests := []struct {
		name     string
		checkIns []time.Time
		want     int
	}{
		{"no history starts at day 1", nil, 1},
		{"yesterday only extends to day 2", []time.Time{day(-1)}, 2},
		{"two consecutive days extend to day 3", []time.Time{day(-2), day(-1)}, 3},
		{"already checked in today keeps the day", []time.Time{day(-1), day(0)}, 2},
		{"gap of two days resets to day 1", []time.Time{day(-3)}, 1},
		{"old long streak with a gap resets", []time.Time{day(-6), day(-5), day(-4)}, 1},
		{"gap inside history only counts the recent run", []time.Time{day(-5), day(-2), day(-1)}, 3},
		{"multiple check-ins one day count once", []time.Time{day(-1), day(-1).Add(2 * time.Hour)}, 2},
		{"four prior days reach day 5", []time.Time{day(-4), day(-3), day(-2), day(-1)}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateStreakDay(tt.checkIns, now); got != tt.want {
				t.Errorf("CalculateStreakDay() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStreakMultiplier(t *testing.T) {
	tests := []struct {
		day  int
		want string
	}{
		{1, "1"},
		{2, "1.2"},
		{3, "1.5"},
		{4, "2"},
		{5, "2.5"},
		{9, "2.5"}, // capped at the day-5 multiplier
		{0, "1"},   // clamped
	}

	for _, tt := range tests {
		if got := StreakMultiplier(tt.day); !got.Equal(dec(tt.want)) {
			t.Errorf("StreakMultiplier(%d) = %s, want %s", tt.day, got, tt.want)
		}
	}
}
