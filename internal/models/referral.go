package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RelationshipStatus is the lifecycle state of a referral edge.
type RelationshipStatus string

const (
	RelationshipActive   RelationshipStatus = "active"
	RelationshipInactive RelationshipStatus = "inactive"
)

// ReferralRelationship is a directed edge from a referred user to their
// referrer. A user has at most one edge for their whole lifetime (the
// referred_id unique index backs that invariant), so the graph is a forest.
// Edges are never deleted, only deactivated.
type ReferralRelationship struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	ReferrerID       uint               `gorm:"not null;index" json:"referrer_id"`
	Referrer         *User              `gorm:"foreignKey:ReferrerID" json:"referrer,omitempty"`
	ReferredID       uint               `gorm:"not null;uniqueIndex" json:"referred_id"`
	Referred         *User              `gorm:"foreignKey:ReferredID" json:"referred,omitempty"`
	ReferralCode     string             `gorm:"size:20" json:"referral_code"`
	Source           string             `gorm:"size:50" json:"source"`
	Status           RelationshipStatus `gorm:"size:20;default:active;index" json:"status"`
	InvestmentAmount decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0" json:"investment_amount"`
	CommissionEarned decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0" json:"commission_earned"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func (ReferralRelationship) TableName() string {
	return "referral_relationships"
}

// ReferralCounterDelta names the cumulative counters a distribution may
// advance on a relationship. Counters are the only mutable part of an edge.
type ReferralCounterDelta struct {
	InvestmentAmount decimal.Decimal
	CommissionEarned decimal.Decimal
}

// IsZero reports whether applying the delta would be a no-op.
func (d ReferralCounterDelta) IsZero() bool {
	return d.InvestmentAmount.IsZero() && d.CommissionEarned.IsZero()
}

// ReferralSummary aggregates a referrer's direct referral activity.
type ReferralSummary struct {
	UserID            uint            `json:"user_id"`
	DirectReferrals   int             `json:"direct_referrals"`
	ActiveReferrals   int             `json:"active_referrals"`
	DirectVolume      decimal.Decimal `json:"direct_volume"`
	CommissionPending decimal.Decimal `json:"commission_pending"`
	CommissionPaid    decimal.Decimal `json:"commission_paid"`
}
