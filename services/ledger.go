package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"venue-loyalty-system/models"
)

// LedgerEntry is the input for one append-only ledger write
type LedgerEntry struct {
	Type        models.TransactionType
	Source      models.TransactionSource
	Amount      int64 // signed
	SpendAmount decimal.Decimal
	Description string
	OccurredAt  time.Time
}

// TransactionLedger is the append-only record of every balance-affecting
// event. All the engine's mutation paths write through it; external reporting
// reads from it.
type TransactionLedger struct {
	DB *gorm.DB
}

func NewTransactionLedger(db *gorm.DB) *TransactionLedger {
	return &TransactionLedger{DB: db}
}

// Append books one entry against a membership the caller holds a row lock on.
// It captures balance-before/after, applies the amount to the membership's
// balance and lifetime counters in memory, and persists the transaction row.
// The caller persists the membership within the same DB transaction.
func (l *TransactionLedger) Append(tx *gorm.DB, membership *models.VenueMembership, entry LedgerEntry) (*models.PointTransaction, error) {
	if !membership.IsActive {
		return nil, ErrMembershipInactive
	}

	before := membership.PointsBalance
	after := before + entry.Amount
	if after < 0 {
		return nil, ErrInsufficientBalance
	}

	record := models.PointTransaction{
		ID:            uuid.NewString(),
		MembershipID:  membership.ID,
		VenueID:       membership.VenueID,
		Type:          entry.Type,
		Source:        entry.Source,
		Amount:        entry.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		SpendAmount:   entry.SpendAmount,
		Description:   entry.Description,
		OccurredAt:    entry.OccurredAt,
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}

	membership.PointsBalance = after
	if entry.Amount > 0 {
		membership.TotalPointsEarned += entry.Amount
	} else if entry.Type == models.TransactionTypeRedeem {
		membership.TotalPointsRedeemed += -entry.Amount
	}

	return &record, nil
}

// ReplayBalance recomputes a membership's balance from its full transaction
// history in OccurredAt order, verifying the before/after chain is gap-free.
// Used by the reconciliation endpoint and tests.
func (l *TransactionLedger) ReplayBalance(membershipID string) (int64, error) {
	var transactions []models.PointTransaction
	err := l.DB.Where("membership_id = ?", membershipID).
		Order("occurred_at ASC, created_at ASC").
		Find(&transactions).Error
	if err != nil {
		return 0, err
	}

	var balance int64
	for i, t := range transactions {
		if t.BalanceBefore != balance {
			return 0, fmt.Errorf("ledger gap at entry %d (%s): balance_before=%d, replayed=%d",
				i, t.ID, t.BalanceBefore, balance)
		}
		balance += t.Amount
		if t.BalanceAfter != balance {
			return 0, fmt.Errorf("ledger mismatch at entry %d (%s): balance_after=%d, replayed=%d",
				i, t.ID, t.BalanceAfter, balance)
		}
	}
	return balance, nil
}

// History returns a membership's entries, newest first
func (l *TransactionLedger) History(membershipID string, limit int) ([]models.PointTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var transactions []models.PointTransaction
	err := l.DB.Where("membership_id = ?", membershipID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}
