package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"referral-rewards/internal/models"
	"referral-rewards/internal/utils"
)

var (
	// ErrDuplicateRelationship means the referred user already has an edge,
	// regardless of who the referrer is. Callers should treat this as
	// "already attributed", not as a failure.
	ErrDuplicateRelationship = errors.New("referral relationship already exists")

	// ErrSelfReferral rejects edges from a user to themselves.
	ErrSelfReferral = errors.New("users cannot refer themselves")
)

// ReferralService owns the referral graph: single-parent edges from referred
// users to their referrers, plus the cumulative counters on each edge.
type ReferralService struct {
	db *gorm.DB
}

func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{db: db}
}

// RecordReferral creates the edge for a newly attributed user. The edge is
// created once for the user's lifetime; any existing edge, active or not,
// makes the call fail with ErrDuplicateRelationship.
func (s *ReferralService) RecordReferral(referrerID, referredID uint, code, source string) (*models.ReferralRelationship, error) {
	if referrerID == referredID {
		return nil, ErrSelfReferral
	}

	var existing models.ReferralRelationship
	if err := s.db.Where("referred_id = ?", referredID).First(&existing).Error; err == nil {
		return nil, ErrDuplicateRelationship
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if code == "" {
		generated, err := utils.GenerateReferralCode()
		if err != nil {
			return nil, err
		}
		code = generated
	}

	relationship := models.ReferralRelationship{
		ReferrerID:       referrerID,
		ReferredID:       referredID,
		ReferralCode:     code,
		Source:           source,
		Status:           models.RelationshipActive,
		InvestmentAmount: decimal.Zero,
		CommissionEarned: decimal.Zero,
	}

	if err := s.db.Create(&relationship).Error; err != nil {
		// The unique index on referred_id closes the race between the
		// existence check and the insert.
		return nil, fmt.Errorf("failed to create referral relationship: %w", err)
	}

	log.Printf("Recorded referral: user %d referred by user %d (source %s)", referredID, referrerID, source)
	return &relationship, nil
}

// GetReferrer returns the active referrer of a user. A missing edge is a
// normal chain terminus, reported via the bool, not an error.
func (s *ReferralService) GetReferrer(userID uint) (uint, bool, error) {
	var relationship models.ReferralRelationship
	err := s.db.Where("referred_id = ? AND status = ?", userID, models.RelationshipActive).
		First(&relationship).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return relationship.ReferrerID, true, nil
}

// DeactivateRelationship turns an edge off without deleting it. The edge
// stays as history and the user can never be re-attributed.
func (s *ReferralService) DeactivateRelationship(relationshipID uint) error {
	result := s.db.Model(&models.ReferralRelationship{}).
		Where("id = ? AND status = ?", relationshipID, models.RelationshipActive).
		Update("status", models.RelationshipInactive)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AccrueCounters advances the cumulative counters on the referred user's
// edge inside the caller's transaction. The delta struct enumerates the only
// mutable fields of a relationship.
func (s *ReferralService) AccrueCounters(tx *gorm.DB, referredID uint, delta models.ReferralCounterDelta) error {
	if delta.IsZero() {
		return nil
	}

	updates := map[string]interface{}{}
	if !delta.InvestmentAmount.IsZero() {
		updates["investment_amount"] = gorm.Expr("investment_amount + ?", delta.InvestmentAmount)
	}
	if !delta.CommissionEarned.IsZero() {
		updates["commission_earned"] = gorm.Expr("commission_earned + ?", delta.CommissionEarned)
	}

	return tx.Model(&models.ReferralRelationship{}).
		Where("referred_id = ? AND status = ?", referredID, models.RelationshipActive).
		Updates(updates).Error
}

// GetUserReferrals returns all direct referrals of a user.
func (s *ReferralService) GetUserReferrals(userID uint) ([]models.ReferralRelationship, error) {
	var referrals []models.ReferralRelationship
	if err := s.db.Where("referrer_id = ?", userID).Preload("Referred").
		Order("created_at DESC").Find(&referrals).Error; err != nil {
		return nil, err
	}
	return referrals, nil
}

// GetReferralSummary aggregates a referrer's direct referral activity and
// commission totals.
func (s *ReferralService) GetReferralSummary(userID uint) (*models.ReferralSummary, error) {
	summary := models.ReferralSummary{
		UserID:            userID,
		DirectVolume:      decimal.Zero,
		CommissionPending: decimal.Zero,
		CommissionPaid:    decimal.Zero,
	}

	var total, active int64
	if err := s.db.Model(&models.ReferralRelationship{}).
		Where("referrer_id = ?", userID).Count(&total).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.ReferralRelationship{}).
		Where("referrer_id = ? AND status = ?", userID, models.RelationshipActive).
		Count(&active).Error; err != nil {
		return nil, err
	}
	summary.DirectReferrals = int(total)
	summary.ActiveReferrals = int(active)

	row := s.db.Model(&models.ReferralRelationship{}).
		Where("referrer_id = ? AND status = ?", userID, models.RelationshipActive).
		Select("COALESCE(SUM(investment_amount), 0)").Row()
	if err := row.Scan(&summary.DirectVolume); err != nil {
		summary.DirectVolume = decimal.Zero
	}

	row = s.db.Model(&models.CommissionTransaction{}).
		Where("referrer_id = ? AND status IN ?", userID,
			[]models.TransactionStatus{models.TxStatusPending, models.TxStatusApproved}).
		Select("COALESCE(SUM(cash_amount), 0)").Row()
	if err := row.Scan(&summary.CommissionPending); err != nil {
		summary.CommissionPending = decimal.Zero
	}

	row = s.db.Model(&models.CommissionTransaction{}).
		Where("referrer_id = ? AND status = ?", userID, models.TxStatusPaid).
		Select("COALESCE(SUM(cash_amount), 0)").Row()
	if err := row.Scan(&summary.CommissionPaid); err != nil {
		summary.CommissionPaid = decimal.Zero
	}

	return &summary, nil
}
