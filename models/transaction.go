package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies the direction/intent of a ledger entry
type TransactionType string

const (
	TransactionTypeEarn   TransactionType = "earn"
	TransactionTypeRedeem TransactionType = "redeem"
	TransactionTypeBonus  TransactionType = "bonus"
	TransactionTypeRefund TransactionType = "refund"
)

// TransactionSource records which pathway produced the entry
type TransactionSource string

const (
	SourceCheckIn  TransactionSource = "check-in"
	SourceReward   TransactionSource = "reward"
	SourceStreak   TransactionSource = "streak"
	SourceEvent    TransactionSource = "event"
	SourceReferral TransactionSource = "referral"
	SourcePromo    TransactionSource = "promo"
	SourceRefund   TransactionSource = "refund"
)

// PointTransaction is an immutable, append-only ledger entry. Replaying all
// entries of a membership in OccurredAt order must reproduce its PointsBalance;
// BalanceBefore/BalanceAfter are captured under the membership row lock so the
// chain is gap-free.
type PointTransaction struct {
	ID           string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	MembershipID string `gorm:"index;not null" json:"membership_id"`
	VenueID      string `gorm:"index;not null" json:"venue_id"`

	Type   TransactionType   `gorm:"not null" json:"type"`
	Source TransactionSource `gorm:"not null" json:"source"`

	Amount        int64 `gorm:"not null" json:"amount"` // signed; negative for redeem/refund reversals
	BalanceBefore int64 `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64 `gorm:"not null" json:"balance_after"`

	// Money that generated this entry (earn/refund only); feeds tier
	// maintenance and venue reporting
	SpendAmount decimal.Decimal `gorm:"type:numeric(14,2);default:0" json:"spend_amount"`

	Description string    `json:"description,omitempty"`
	OccurredAt  time.Time `gorm:"index;not null" json:"occurred_at"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
