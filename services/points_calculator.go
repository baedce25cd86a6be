package services

import (
	"github.com/shopspring/decimal"

	"venue-loyalty-system/models"
)

// BaseEarnRate: points earned per unit of spend before margin weighting (10%)
var BaseEarnRate = decimal.NewFromFloat(0.10)

// OrderItem is one line of a purchase handed to the engine
type OrderItem struct {
	Name            string              `json:"name"`
	Category        models.ItemCategory `json:"category"`
	UnitPrice       decimal.Decimal     `json:"unit_price"`
	Quantity        int64               `json:"quantity"`
	BonusMultiplier decimal.Decimal     `json:"bonus_multiplier"` // per-item promo, 1.0 when none
}

// Amount is the line total (unit price × quantity)
func (i OrderItem) Amount() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// OrderItemPoints is one breakdown row of an order calculation
type OrderItemPoints struct {
	Name            string              `json:"name"`
	Category        models.ItemCategory `json:"category"`
	Amount          decimal.Decimal     `json:"amount"`
	Margin          decimal.Decimal     `json:"margin"`
	BonusMultiplier decimal.Decimal     `json:"bonus_multiplier"`
	Points          decimal.Decimal     `json:"points"`
}

// OrderPoints is the aggregate result for a whole order
type OrderPoints struct {
	TotalPoints   decimal.Decimal   `json:"total_points"`
	BasePoints    decimal.Decimal   `json:"base_points"`  // everything at multiplier 1.0
	BonusPoints   decimal.Decimal   `json:"bonus_points"` // total - base
	RoundedPoints int64             `json:"rounded_points"`
	Breakdown     []OrderItemPoints `json:"breakdown"`
}

// CalculatePoints converts a monetary amount into raw points:
//
//	points = amount × baseRate × (categoryMargin / venueMaxMargin) × bonusMultiplier
//
// High-margin items (beverages) earn proportionally more than low-margin ones
// (food), scaled against the venue's own best-margin category so the formula
// works for any venue. venueMaxMargin of 0 means margins are not configured
// and yields 0. Negative amounts (refunds) yield proportionally negative points.
func CalculatePoints(amount, categoryMargin, venueMaxMargin, bonusMultiplier decimal.Decimal) decimal.Decimal {
	if venueMaxMargin.IsZero() {
		return decimal.Zero
	}
	return amount.
		Mul(BaseEarnRate).
		Mul(categoryMargin.Div(venueMaxMargin)).
		Mul(bonusMultiplier)
}

// DisplayPoints rounds a raw point value to 2 decimal places (half-up) for display
func DisplayPoints(points decimal.Decimal) decimal.Decimal {
	return points.Round(2)
}

// CreditPoints rounds a raw point value to the nearest whole point (half-up)
// for crediting a balance
func CreditPoints(points decimal.Decimal) int64 {
	return points.Round(0).IntPart()
}

// CalculatePointsForOrder applies CalculatePoints per line item using the
// venue's margin for that item's category, and splits base vs. bonus so
// callers can show "you earned X, Y of which was bonus".
func CalculatePointsForOrder(items []OrderItem, venue *models.Venue) OrderPoints {
	result := OrderPoints{
		TotalPoints: decimal.Zero,
		BasePoints:  decimal.Zero,
		BonusPoints: decimal.Zero,
		Breakdown:   []OrderItemPoints{},
	}

	for _, item := range items {
		margin := venue.MarginFor(item.Category)
		bonus := item.BonusMultiplier
		if bonus.IsZero() {
			bonus = decimal.NewFromInt(1)
		}
		amount := item.Amount()

		points := CalculatePoints(amount, margin, venue.MaxMargin, bonus)
		base := CalculatePoints(amount, margin, venue.MaxMargin, decimal.NewFromInt(1))

		result.TotalPoints = result.TotalPoints.Add(points)
		result.BasePoints = result.BasePoints.Add(base)
		result.Breakdown = append(result.Breakdown, OrderItemPoints{
			Name:            item.Name,
			Category:        item.Category,
			Amount:          amount,
			Margin:          margin,
			BonusMultiplier: bonus,
			Points:          DisplayPoints(points),
		})
	}

	result.BonusPoints = result.TotalPoints.Sub(result.BasePoints)
	result.RoundedPoints = CreditPoints(result.TotalPoints)
	return result
}
