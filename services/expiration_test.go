package services

import (
	"testing"
	"time"

	"venue-loyalty-system/models"
)

func expirationIn(days int, now time.Time) *models.PointExpiration {
	return &models.PointExpiration{
		MembershipID:     "m-1",
		PointsAtRisk:     120,
		LastActivityDate: now.AddDate(0, 0, days-models.ExpirationWindowDays),
		ExpirationDate:   now.AddDate(0, 0, days),
		DaysUntilExpiry:  days,
	}
}

func TestRefresh(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("recomputes remaining days", func(t *testing.T) {
		exp := expirationIn(45, now)
		exp.DaysUntilExpiry = 0 // stale derived value
		Refresh(exp, now)
		if exp.DaysUntilExpiry != 45 {
			t.Errorf("days until expiry = %d, want 45", exp.DaysUntilExpiry)
		}
		if exp.IsExpired {
			t.Error("45 days out should not be expired")
		}
	})

	t.Run("clamps at zero and expires", func(t *testing.T) {
		exp := expirationIn(-3, now)
		Refresh(exp, now)
		if exp.DaysUntilExpiry != 0 {
			t.Errorf("days until expiry = %d, want 0", exp.DaysUntilExpiry)
		}
		if !exp.IsExpired {
			t.Error("a passed window should flip IsExpired")
		}
		if exp.ExpiredAt == nil {
			t.Error("expiry should be timestamped")
		}
	})

	t.Run("expiry is sticky", func(t *testing.T) {
		exp := expirationIn(-1, now)
		Refresh(exp, now)
		if !exp.IsExpired {
			t.Fatal("setup: record should have expired")
		}
		firstExpiredAt := *exp.ExpiredAt

		// A later refresh must not un-expire or restamp
		Refresh(exp, now.AddDate(0, 0, 10))
		if !exp.IsExpired {
			t.Error("IsExpired must stay true on re-evaluation")
		}
		if !exp.ExpiredAt.Equal(firstExpiredAt) {
			t.Error("ExpiredAt must not move on re-evaluation")
		}
	})
}

func TestShouldShowWarning(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 0, 5)
	past := now.AddDate(0, 0, -5)

	tests := []struct {
		name   string
		mutate func(*models.PointExpiration)
		days   int
		want   bool
	}{
		{"inside 30-day window", nil, 20, true},
		{"exactly 30 days", nil, 30, true},
		{"outside window", nil, 31, false},
		{"zero days left", nil, 0, false},
		{"expired record", func(e *models.PointExpiration) { e.IsExpired = true }, 10, false},
		{"dismissed by user", func(e *models.PointExpiration) { e.UserDismissedWarning = true }, 10, false},
		{"active snooze suppresses", func(e *models.PointExpiration) { e.RemindLaterDate = &future }, 10, false},
		{"lapsed snooze shows again", func(e *models.PointExpiration) { e.RemindLaterDate = &past }, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := expirationIn(tt.days, now)
			if tt.mutate != nil {
				tt.mutate(exp)
			}
			if got := ShouldShowWarning(exp, now); got != tt.want {
				t.Errorf("ShouldShowWarning() = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestComputeUrgency(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		days    int
		expired bool
		want    UrgencyLevel
	}{
		{0, false, UrgencyExpired},
		{3, true, UrgencyExpired}, // flagged expired wins regardless of days
		{5, false, UrgencyCritical},
		{7, false, UrgencyCritical},
		{10, false, UrgencyHigh},
		{14, false, UrgencyHigh},
		{21, false, UrgencyMedium},
		{30, false, UrgencyMedium},
		{90, false, UrgencyLow},
	}

	for _, tt := range tests {
		exp := expirationIn(tt.days, now)
		exp.IsExpired = tt.expired
		if got := ComputeUrgency(exp); got != tt.want {
			t.Errorf("ComputeUrgency(days=%d expired=%t) = %s, want %s", tt.days, tt.expired, got, tt.want)
		}
	}
}
