package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"venue-loyalty-system/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculatePoints(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		margin string
		max    string
		bonus  string
		want   string
	}{
		{"full margin earns base rate", "100", "80", "80", "1.0", "10"},
		{"partial margin scales down", "100", "30", "80", "1.0", "3.75"},
		{"bonus multiplier applies", "100", "80", "80", "2.0", "20"},
		{"zero max margin yields zero", "100", "80", "0", "1.0", "0"},
		{"zero max margin yields zero regardless of bonus", "500", "90", "0", "3.0", "0"},
		{"refund amount yields negative points", "-100", "80", "80", "1.0", "-10"},
		{"zero amount yields zero", "0", "80", "80", "1.0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePoints(dec(tt.amount), dec(tt.margin), dec(tt.max), dec(tt.bonus))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("CalculatePoints(%s, %s, %s, %s) = %s, want %s",
					tt.amount, tt.margin, tt.max, tt.bonus, got, tt.want)
			}
		})
	}
}

func TestCalculatePointsLinearInAmount(t *testing.T) {
	margin, max, bonus := dec("60"), dec("80"), dec("1.0")

	single := CalculatePoints(dec("50"), margin, max, bonus)
	double := CalculatePoints(dec("100"), margin, max, bonus)

	if !double.Equal(single.Mul(dec("2"))) {
		t.Errorf("doubling amount should double points: %s vs %s", single, double)
	}
}

func TestCalculatePointsMonotonicInMargin(t *testing.T) {
	amount, max, bonus := dec("100"), dec("80"), dec("1.0")

	prev := decimal.Zero
	for _, margin := range []string{"10", "20", "40", "60", "80"} {
		got := CalculatePoints(amount, dec(margin), max, bonus)
		if got.LessThan(prev) {
			t.Fatalf("points decreased as margin grew: margin=%s points=%s prev=%s", margin, got, prev)
		}
		prev = got
	}
}

func TestDisplayAndCreditRounding(t *testing.T) {
	tests := []struct {
		raw         string
		wantDisplay string
		wantCredit  int64
	}{
		{"8.8625", "8.86", 9},
		{"2.625", "2.63", 3},
		{"10.005", "10.01", 10},
		{"0.004", "0", 0},
		{"3.5", "3.5", 4},
	}

	for _, tt := range tests {
		if got := DisplayPoints(dec(tt.raw)); !got.Equal(dec(tt.wantDisplay)) {
			t.Errorf("DisplayPoints(%s) = %s, want %s", tt.raw, got, tt.wantDisplay)
		}
		if got := CreditPoints(dec(tt.raw)); got != tt.wantCredit {
			t.Errorf("CreditPoints(%s) = %d, want %d", tt.raw, got, tt.wantCredit)
		}
	}
}

func testVenue() *models.Venue {
	return &models.Venue{
		ID:             "venue-1",
		Name:           "Test Bar",
		MarginFood:     dec("30"),
		MarginBeverage: dec("80"),
		MarginOther:    dec("50"),
		MaxMargin:      dec("80"),
	}
}

func TestCalculatePointsForOrderEmpty(t *testing.T) {
	result := CalculatePointsForOrder(nil, testVenue())

	if !result.TotalPoints.IsZero() || !result.BasePoints.IsZero() || !result.BonusPoints.IsZero() {
		t.Errorf("empty order should be all zeros, got %+v", result)
	}
	if result.RoundedPoints != 0 {
		t.Errorf("empty order rounded points = %d, want 0", result.RoundedPoints)
	}
	if len(result.Breakdown) != 0 {
		t.Errorf("empty order breakdown should be empty, got %d rows", len(result.Breakdown))
	}
}

func TestCalculatePointsForOrderScenario(t *testing.T) {
	// 3× cocktail €12 (beverage, 2.0 bonus), 1× burger €15 (food),
	// 2× beer €5.50 (beverage) against max margin 80
	items := []OrderItem{
		{Name: "cocktail", Category: models.CategoryBeverage, UnitPrice: dec("12"), Quantity: 3, BonusMultiplier: dec("2.0")},
		{Name: "burger", Category: models.CategoryFood, UnitPrice: dec("15"), Quantity: 1, BonusMultiplier: dec("1.0")},
		{Name: "beer", Category: models.CategoryBeverage, UnitPrice: dec("5.50"), Quantity: 2, BonusMultiplier: dec("1.0")},
	}

	result := CalculatePointsForOrder(items, testVenue())

	if !result.TotalPoints.Equal(dec("8.8625")) {
		t.Errorf("total points = %s, want 8.8625", result.TotalPoints)
	}
	if got := DisplayPoints(result.TotalPoints); !got.Equal(dec("8.86")) {
		t.Errorf("display points = %s, want 8.86", got)
	}
	if result.RoundedPoints != 9 {
		t.Errorf("rounded points = %d, want 9", result.RoundedPoints)
	}

	// Base counts everything at multiplier 1.0; bonus is the excess from the
	// cocktail's 2.0 multiplier
	if !result.BasePoints.Equal(dec("5.2625")) {
		t.Errorf("base points = %s, want 5.2625", result.BasePoints)
	}
	if !result.BonusPoints.Equal(dec("3.6")) {
		t.Errorf("bonus points = %s, want 3.6", result.BonusPoints)
	}

	if len(result.Breakdown) != 3 {
		t.Fatalf("breakdown rows = %d, want 3", len(result.Breakdown))
	}
	if !result.Breakdown[0].Points.Equal(dec("7.2")) {
		t.Errorf("cocktail line points = %s, want 7.2", result.Breakdown[0].Points)
	}
}

func TestCalculatePointsForOrderUnconfiguredVenue(t *testing.T) {
	venue := testVenue()
	venue.MaxMargin = decimal.Zero

	items := []OrderItem{
		{Name: "burger", Category: models.CategoryFood, UnitPrice: dec("15"), Quantity: 1, BonusMultiplier: dec("1.0")},
	}

	result := CalculatePointsForOrder(items, venue)
	if !result.TotalPoints.IsZero() {
		t.Errorf("unconfigured venue should award 0 points, got %s", result.TotalPoints)
	}
}

func TestOrderItemDefaultsMissingBonusToOne(t *testing.T) {
	items := []OrderItem{
		{Name: "beer", Category: models.CategoryBeverage, UnitPrice: dec("10"), Quantity: 1},
	}

	result := CalculatePointsForOrder(items, testVenue())
	if !result.TotalPoints.Equal(dec("1")) {
		t.Errorf("missing bonus multiplier should default to 1.0, got %s", result.TotalPoints)
	}
	if !result.BonusPoints.IsZero() {
		t.Errorf("bonus points should be zero without multipliers, got %s", result.BonusPoints)
	}
}
