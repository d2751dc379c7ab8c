package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionPlan is a versioned payout schedule. Exactly one plan is flagged
// default and active at a time; plans referenced by transactions are never
// mutated, new schedules version forward.
type CommissionPlan struct {
	ID        uint                  `gorm:"primaryKey" json:"id"`
	Name      string                `gorm:"size:100;not null" json:"name"`
	MaxLevels int                   `gorm:"not null" json:"max_levels"`
	UnitPrice decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0" json:"unit_price"`
	IsDefault bool                  `gorm:"default:false;index" json:"is_default"`
	IsActive  bool                  `gorm:"default:true;index" json:"is_active"`
	Levels    []CommissionPlanLevel `gorm:"foreignKey:PlanID" json:"levels,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

func (CommissionPlan) TableName() string {
	return "commission_plans"
}

// LevelRates returns the cash and in-kind percentages for a level, or zero
// rates when the plan does not configure that level.
func (p *CommissionPlan) LevelRates(level int) (cash, unit decimal.Decimal) {
	for _, l := range p.Levels {
		if l.Level == level {
			return l.CashPercent, l.UnitPercent
		}
	}
	return decimal.Zero, decimal.Zero
}

// CommissionPlanLevel holds the percentages for one chain level of a plan.
type CommissionPlanLevel struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	PlanID      uint            `gorm:"not null;uniqueIndex:idx_plan_level" json:"plan_id"`
	Level       int             `gorm:"not null;uniqueIndex:idx_plan_level" json:"level"`
	CashPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"cash_percent"`
	UnitPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"unit_percent"`
}

func (CommissionPlanLevel) TableName() string {
	return "commission_plan_levels"
}

// TransactionStatus is the payout lifecycle of a commission transaction.
// Transitions only move forward: pending -> approved -> paid.
type TransactionStatus string

const (
	TxStatusPending  TransactionStatus = "pending"
	TxStatusApproved TransactionStatus = "approved"
	TxStatusPaid     TransactionStatus = "paid"
)

// CanTransitionTo reports whether moving to the target status is a legal
// forward step.
func (s TransactionStatus) CanTransitionTo(target TransactionStatus) bool {
	switch s {
	case TxStatusPending:
		return target == TxStatusApproved
	case TxStatusApproved:
		return target == TxStatusPaid
	default:
		return false
	}
}

// TransactionType distinguishes the two reward flows that share the
// commission ledger.
type TransactionType string

const (
	TxTypeReferralCommission TransactionType = "referral_commission"
	TxTypeLeaderboardPrize   TransactionType = "leaderboard_prize"
)

// PrizeLevel is the level sentinel used on leaderboard prize transactions.
const PrizeLevel = 0

// CommissionTransaction is an immutable payout fact. For referral commissions
// the (referrer, investment, level) triple is the idempotency key, enforced
// by idx_commission_idem; prize transactions reuse the same index with a
// synthetic per-prize investment reference. Only the status ever changes.
type CommissionTransaction struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	Reference    string            `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	PlanID       *uint             `gorm:"index" json:"plan_id,omitempty"`
	Plan         *CommissionPlan   `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	ReferrerID   uint              `gorm:"not null;index;uniqueIndex:idx_commission_idem" json:"referrer_id"`
	ReferrerName string            `gorm:"size:100" json:"referrer_name"`
	ReferredID   uint              `gorm:"not null;index" json:"referred_id"`
	ReferredName string            `gorm:"size:100" json:"referred_name"`
	InvestmentID string            `gorm:"size:64;not null;index;uniqueIndex:idx_commission_idem" json:"investment_id"`
	Amount       decimal.Decimal   `gorm:"type:decimal(18,2);not null" json:"amount"`
	Level        int               `gorm:"not null;uniqueIndex:idx_commission_idem" json:"level"`
	CashPercent  decimal.Decimal   `gorm:"type:decimal(5,2);not null;default:0" json:"cash_percent"`
	UnitPercent  decimal.Decimal   `gorm:"type:decimal(5,2);not null;default:0" json:"unit_percent"`
	CashAmount   decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0" json:"cash_amount"`
	UnitAmount   int64             `gorm:"not null;default:0" json:"unit_amount"`
	Status       TransactionStatus `gorm:"size:20;default:pending;index" json:"status"`
	Type         TransactionType   `gorm:"size:30;not null;index" json:"type"`
	Note         string            `gorm:"size:255" json:"note"`
	CreatedAt    time.Time         `json:"created_at"`
	ApprovedAt   *time.Time        `json:"approved_at,omitempty"`
	PaidAt       *time.Time        `json:"paid_at,omitempty"`
}

func (CommissionTransaction) TableName() string {
	return "commission_transactions"
}
