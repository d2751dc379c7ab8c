package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PrizeStatus is the lifecycle of a prize record. distributed and cancelled
// are terminal.
type PrizeStatus string

const (
	PrizeStatusCalculated  PrizeStatus = "calculated"
	PrizeStatusDistributed PrizeStatus = "distributed"
	PrizeStatusCancelled   PrizeStatus = "cancelled"
)

// CanTransitionTo reports whether moving to the target status is legal.
func (s PrizeStatus) CanTransitionTo(target PrizeStatus) bool {
	if s != PrizeStatusCalculated {
		return false
	}
	return target == PrizeStatusDistributed || target == PrizeStatusCancelled
}

// PrizeRecord is a persisted snapshot of one leaderboard winner at
// calculation time. A recalculation replaces all calculated records;
// distributed records are immutable history.
type PrizeRecord struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Rank          int             `gorm:"not null" json:"rank"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	UserName      string          `gorm:"size:100" json:"user_name"`
	DirectVolume  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"direct_volume"`
	ReferralCount int             `gorm:"not null" json:"referral_count"`
	PrizeAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"prize_amount"`
	Status        PrizeStatus     `gorm:"size:20;default:calculated;index" json:"status"`
	CalculatedBy  uint            `gorm:"not null" json:"calculated_by"`
	CalculatedAt  time.Time       `gorm:"not null" json:"calculated_at"`
	DistributedBy *uint           `json:"distributed_by,omitempty"`
	DistributedAt *time.Time      `json:"distributed_at,omitempty"`
}

func (PrizeRecord) TableName() string {
	return "prize_records"
}

// LeaderboardEntry is a computed ranking row. It is recalculated on demand
// and never persisted on its own; PrizeRecord snapshots it at calculation.
type LeaderboardEntry struct {
	Rank          int             `json:"rank"`
	UserID        uint            `json:"user_id"`
	UserName      string          `json:"user_name"`
	DirectVolume  decimal.Decimal `json:"direct_volume"`
	ReferralCount int             `json:"referral_count"`
	Qualified     bool            `json:"qualified"`
	PrizeAmount   decimal.Decimal `json:"prize_amount"`
}
