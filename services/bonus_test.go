package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"venue-loyalty-system/models"
)

func TestCombineMultipliers(t *testing.T) {
	tests := []struct {
		name        string
		multipliers []string
		want        string
	}{
		{"empty stack is identity", nil, "1"},
		{"single multiplier passes through", []string{"1.5"}, "1.5"},
		{"event and streak multiply, not add", []string{"2", "1.5"}, "3"},
		{"three sources stack multiplicatively", []string{"2", "1.5", "1.2"}, "3.6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stack []decimal.Decimal
			for _, m := range tt.multipliers {
				stack = append(stack, dec(m))
			}
			if got := CombineMultipliers(stack); !got.Equal(dec(tt.want)) {
				t.Errorf("CombineMultipliers(%v) = %s, want %s", tt.multipliers, got, tt.want)
			}
		})
	}
}

func TestEventActiveAtAbsoluteWindow(t *testing.T) {
	start := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	end := start.Add(4 * time.Hour)
	event := &models.BonusEvent{
		Kind:       models.BonusEventKindEvent,
		Multiplier: dec("2"),
		StartsAt:   &start,
		EndsAt:     &end,
		IsActive:   true,
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before window", start.Add(-time.Minute), false},
		{"at start", start, true},
		{"inside window", start.Add(2 * time.Hour), true},
		{"at end is exclusive", end, false},
		{"after window", end.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EventActiveAt(event, tt.at); got != tt.want {
				t.Errorf("EventActiveAt(%s) = %t, want %t", tt.at, got, tt.want)
			}
		})
	}

	event.IsActive = false
	if EventActiveAt(event, start.Add(time.Hour)) {
		t.Error("deactivated event should never be active")
	}
}

func TestEventActiveAtHappyHour(t *testing.T) {
	happyHour := &models.BonusEvent{
		Kind:             models.BonusEventKindHappyHour,
		Multiplier:       dec("1.5"),
		DailyStartMinute: 17 * 60, // 17:00
		DailyEndMinute:   19 * 60, // 19:00
		IsActive:         true,
	}

	at := func(hour, minute int) time.Time {
		return time.Date(2026, 8, 31, hour, minute, 0, 0, time.UTC)
	}

	if !EventActiveAt(happyHour, at(18, 0)) {
		t.Error("18:00 should fall inside a 17:00-19:00 happy hour")
	}
	if EventActiveAt(happyHour, at(19, 0)) {
		t.Error("19:00 end should be exclusive")
	}
	if EventActiveAt(happyHour, at(12, 0)) {
		t.Error("noon should fall outside a 17:00-19:00 happy hour")
	}

	// Overnight window wraps past midnight
	overnight := &models.BonusEvent{
		Kind:             models.BonusEventKindHappyHour,
		Multiplier:       dec("1.5"),
		DailyStartMinute: 22 * 60,
		DailyEndMinute:   2 * 60,
		IsActive:         true,
	}
	if !EventActiveAt(overnight, at(23, 30)) {
		t.Error("23:30 should fall inside a 22:00-02:00 window")
	}
	if !EventActiveAt(overnight, at(1, 0)) {
		t.Error("01:00 should fall inside a 22:00-02:00 window")
	}
	if EventActiveAt(overnight, at(12, 0)) {
		t.Error("noon should fall outside a 22:00-02:00 window")
	}
}

func TestActiveEventMultipliers(t *testing.T) {
	start := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	events := []models.BonusEvent{
		{Kind: models.BonusEventKindEvent, Multiplier: dec("2"), StartsAt: &start, EndsAt: &end, IsActive: true},
		{Kind: models.BonusEventKindHappyHour, Multiplier: dec("1.5"), DailyStartMinute: 17 * 60, DailyEndMinute: 19 * 60, IsActive: true},
		{Kind: models.BonusEventKindEvent, Multiplier: dec("3"), StartsAt: &start, EndsAt: &end, IsActive: false},
	}

	active := ActiveEventMultipliers(events, start.Add(30*time.Minute))
	if len(active) != 2 {
		t.Fatalf("active multipliers = %d, want 2", len(active))
	}
	if got := CombineMultipliers(active); !got.Equal(dec("3")) {
		t.Errorf("combined event multipliers = %s, want 3", got)
	}
}
