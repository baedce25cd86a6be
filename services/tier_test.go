package services

import (
	"testing"
	"time"

	"venue-loyalty-system/models"
)

func testTierConfig() *models.VenueTierConfig {
	return DefaultTierConfig("venue-1")
}

func TestTierFor(t *testing.T) {
	config := testTierConfig()

	tests := []struct {
		spending string
		want     models.Tier
	}{
		{"0", models.TierBronze},
		{"249.99", models.TierBronze},
		{"250", models.TierSilver},
		{"999.99", models.TierSilver},
		{"1000", models.TierGold},
		{"4999.99", models.TierGold},
		{"5000", models.TierPlatinum},
		{"100000", models.TierPlatinum}, // no upper bound
	}

	for _, tt := range tests {
		if got := TierFor(dec(tt.spending), config); got != tt.want {
			t.Errorf("TierFor(%s) = %s, want %s", tt.spending, got, tt.want)
		}
	}
}

func TestMultiplierFor(t *testing.T) {
	config := testTierConfig()

	tests := []struct {
		tier models.Tier
		want string
	}{
		{models.TierBronze, "1"},
		{models.TierSilver, "1.2"},
		{models.TierGold, "1.5"},
		{models.TierPlatinum, "2"},
	}

	for _, tt := range tests {
		if got := MultiplierFor(tt.tier, config); !got.Equal(dec(tt.want)) {
			t.Errorf("MultiplierFor(%s) = %s, want %s", tt.tier, got, tt.want)
		}
	}
}

func TestProgressToward(t *testing.T) {
	config := testTierConfig()

	t.Run("bronze halfway to silver", func(t *testing.T) {
		progress := ProgressToward(models.TierBronze, dec("125"), config)
		if progress.NextTier == nil || *progress.NextTier != models.TierSilver {
			t.Fatalf("next tier = %v, want silver", progress.NextTier)
		}
		if !progress.AmountNeeded.Equal(dec("125")) {
			t.Errorf("amount needed = %s, want 125", progress.AmountNeeded)
		}
		if !progress.PercentComplete.Equal(dec("50")) {
			t.Errorf("percent complete = %s, want 50", progress.PercentComplete)
		}
	})

	t.Run("silver progress measured within the band", func(t *testing.T) {
		progress := ProgressToward(models.TierSilver, dec("625"), config)
		if progress.NextTier == nil || *progress.NextTier != models.TierGold {
			t.Fatalf("next tier = %v, want gold", progress.NextTier)
		}
		if !progress.AmountNeeded.Equal(dec("375")) {
			t.Errorf("amount needed = %s, want 375", progress.AmountNeeded)
		}
		if !progress.PercentComplete.Equal(dec("50")) {
			t.Errorf("percent complete = %s, want 50", progress.PercentComplete)
		}
	})

	t.Run("platinum is terminal", func(t *testing.T) {
		progress := ProgressToward(models.TierPlatinum, dec("9000"), config)
		if progress.NextTier != nil {
			t.Errorf("platinum should have no next tier, got %s", *progress.NextTier)
		}
		if !progress.AmountNeeded.IsZero() {
			t.Errorf("amount needed = %s, want 0", progress.AmountNeeded)
		}
		if !progress.PercentComplete.Equal(dec("100")) {
			t.Errorf("percent complete = %s, want 100", progress.PercentComplete)
		}
	})

	t.Run("spend past the threshold clamps", func(t *testing.T) {
		progress := ProgressToward(models.TierBronze, dec("400"), config)
		if !progress.AmountNeeded.IsZero() {
			t.Errorf("amount needed = %s, want 0", progress.AmountNeeded)
		}
		if !progress.PercentComplete.Equal(dec("100")) {
			t.Errorf("percent complete = %s, want 100", progress.PercentComplete)
		}
	})
}

func TestDueForDowngrade(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	engine := &TierEngine{}

	idle := func(days int) *time.Time {
		at := now.AddDate(0, 0, -days)
		return &at
	}

	// 30-day inactivity window plus 14 days of grace: a downgrade only lands
	// once a member has been idle past both.
	config := &models.VenueTierConfig{
		InactivityDowngradeDays: 30,
		GracePeriodDays:         14,
	}

	tests := []struct {
		name string
		last *time.Time
		want bool
	}{
		{"recent activity holds the tier", idle(10), false},
		{"idle past the window but inside grace", idle(40), false},
		{"idle past window plus grace downgrades", idle(45), true},
		{"never active is left alone", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &models.VenueMembership{Tier: models.TierGold, LastActivityDate: tt.last}
			if got := engine.dueForDowngrade(m, config, now); got != tt.want {
				t.Errorf("dueForDowngrade() = %t, want %t", got, tt.want)
			}
		})
	}

	t.Run("no rules configured never downgrades", func(t *testing.T) {
		m := &models.VenueMembership{Tier: models.TierGold, LastActivityDate: idle(400)}
		if engine.dueForDowngrade(m, &models.VenueTierConfig{}, now) {
			t.Error("a config without maintenance rules must not downgrade")
		}
	})
}

func TestDowngradeTier(t *testing.T) {
	tests := []struct {
		from models.Tier
		want models.Tier
	}{
		{models.TierPlatinum, models.TierGold},
		{models.TierGold, models.TierSilver},
		{models.TierSilver, models.TierBronze},
		{models.TierBronze, models.TierBronze},
	}

	for _, tt := range tests {
		if got := downgradeTier(tt.from); got != tt.want {
			t.Errorf("downgradeTier(%s) = %s, want %s", tt.from, got, tt.want)
		}
	}
}
