package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"venue-loyalty-system/models"
)

func strPtr(s string) *string { return &s }

func fullChain() *models.ReferralChain {
	return &models.ReferralChain{
		ExternalUserID:   "user-0",
		Level1ReferrerID: strPtr("user-1"),
		Level2ReferrerID: strPtr("user-2"),
		Level3ReferrerID: strPtr("user-3"),
		Level4ReferrerID: strPtr("user-4"),
		Level5ReferrerID: strPtr("user-5"),
	}
}

func TestCalculateRewardDistributionFullChain(t *testing.T) {
	distributions := CalculateRewardDistribution(dec("10"), fullChain())

	if len(distributions) != 5 {
		t.Fatalf("distributions = %d, want 5", len(distributions))
	}

	total := decimal.Zero
	for level := 1; level <= 5; level++ {
		dist, ok := distributions[level]
		if !ok {
			t.Fatalf("missing distribution for level %d", level)
		}
		// Flat 25% of the original amount at every level, no decay
		if !dist.RewardAmount.Equal(dec("2.5")) {
			t.Errorf("level %d reward = %s, want 2.5", level, dist.RewardAmount)
		}
		total = total.Add(dist.RewardAmount)
	}

	if !total.Equal(dec("12.5")) {
		t.Errorf("total distributed = %s, want 12.5", total)
	}
}

func TestCalculateRewardDistributionPartialChain(t *testing.T) {
	chain := &models.ReferralChain{
		ExternalUserID:   "user-0",
		Level1ReferrerID: strPtr("user-1"),
		Level2ReferrerID: strPtr("user-2"),
	}

	distributions := CalculateRewardDistribution(dec("100"), chain)
	if len(distributions) != 2 {
		t.Fatalf("distributions = %d, want 2 (one per populated level)", len(distributions))
	}
	if _, ok := distributions[3]; ok {
		t.Error("absent level 3 should produce no entry")
	}
}

func TestCalculateRewardDistributionEmptyChain(t *testing.T) {
	distributions := CalculateRewardDistribution(dec("100"), &models.ReferralChain{ExternalUserID: "user-0"})
	if len(distributions) != 0 {
		t.Errorf("empty chain distributions = %d, want 0", len(distributions))
	}

	if got := CalculateRewardDistribution(dec("100"), nil); len(got) != 0 {
		t.Errorf("nil chain distributions = %d, want 0", len(got))
	}
}

func TestCalculateRewardDistributionZeroPoints(t *testing.T) {
	distributions := CalculateRewardDistribution(decimal.Zero, fullChain())

	if len(distributions) != 5 {
		t.Fatalf("zero earn should still yield one entry per level, got %d", len(distributions))
	}
	for level, dist := range distributions {
		if !dist.RewardAmount.IsZero() {
			t.Errorf("level %d reward = %s, want 0", level, dist.RewardAmount)
		}
	}
}

func TestCalculateRewardDistributionExactPrecision(t *testing.T) {
	distributions := CalculateRewardDistribution(dec("10.5"), fullChain())

	for level, dist := range distributions {
		if !dist.RewardAmount.Equal(dec("2.625")) {
			t.Errorf("level %d reward = %s, want exactly 2.625", level, dist.RewardAmount)
		}
	}
}

func TestUpdateLocalEarnings(t *testing.T) {
	chain := fullChain()
	chain.Level2Earnings = dec("1.375")

	UpdateLocalEarnings(chain, CalculateRewardDistribution(dec("10.5"), chain))

	if !chain.Level1Earnings.Equal(dec("2.625")) {
		t.Errorf("level 1 earnings = %s, want 2.625", chain.Level1Earnings)
	}
	// Additive on top of prior lifetime earnings
	if !chain.Level2Earnings.Equal(dec("4")) {
		t.Errorf("level 2 earnings = %s, want 4", chain.Level2Earnings)
	}
}

func TestChainActiveLevels(t *testing.T) {
	tests := []struct {
		name  string
		chain *models.ReferralChain
		want  int
	}{
		{"full chain", fullChain(), 5},
		{"no referrers", &models.ReferralChain{}, 0},
		{"sparse chain counts populated slots", &models.ReferralChain{
			Level1ReferrerID: strPtr("a"),
			Level4ReferrerID: strPtr("b"),
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.chain.ActiveLevels(); got != tt.want {
				t.Errorf("ActiveLevels() = %d, want %d", got, tt.want)
			}
		})
	}
}
