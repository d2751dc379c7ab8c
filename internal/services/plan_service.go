package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"referral-rewards/internal/models"
)

// ErrNoActivePlan means zero or more than one plan is flagged default and
// active. This is a configuration error for the operator to fix; the engine
// never guesses which plan to use.
var ErrNoActivePlan = errors.New("no single active default commission plan")

// PlanService resolves and administers versioned commission plans.
type PlanService struct {
	db *gorm.DB
}

func NewPlanService(db *gorm.DB) *PlanService {
	return &PlanService{db: db}
}

// GetActivePlan returns the one plan flagged default and active, with its
// level schedule loaded.
func (s *PlanService) GetActivePlan() (*models.CommissionPlan, error) {
	var plans []models.CommissionPlan
	err := s.db.Preload("Levels", func(db *gorm.DB) *gorm.DB {
		return db.Order("level ASC")
	}).Where("is_default = ? AND is_active = ?", true, true).Find(&plans).Error
	if err != nil {
		return nil, err
	}

	if len(plans) != 1 {
		return nil, fmt.Errorf("%w: found %d candidates", ErrNoActivePlan, len(plans))
	}

	return &plans[0], nil
}

// ValidateActivePlan checks the active-plan invariant plus the internal
// consistency of the schedule. Run at startup and after every plan mutation
// so misconfiguration surfaces before payout time.
func (s *PlanService) ValidateActivePlan() error {
	plan, err := s.GetActivePlan()
	if err != nil {
		return err
	}

	if plan.MaxLevels < 1 {
		return fmt.Errorf("%w: plan %d has max_levels %d", ErrNoActivePlan, plan.ID, plan.MaxLevels)
	}

	for _, level := range plan.Levels {
		if level.Level < 1 || level.Level > plan.MaxLevels {
			return fmt.Errorf("%w: plan %d configures level %d outside 1..%d",
				ErrNoActivePlan, plan.ID, level.Level, plan.MaxLevels)
		}
		if level.UnitPercent.IsPositive() && !plan.UnitPrice.IsPositive() {
			return fmt.Errorf("%w: plan %d pays in-kind rewards but has no unit price",
				ErrNoActivePlan, plan.ID)
		}
	}

	return nil
}

// PlanLevelInput describes one level of a new plan.
type PlanLevelInput struct {
	Level       int             `json:"level" binding:"required,min=1"`
	CashPercent decimal.Decimal `json:"cash_percent"`
	UnitPercent decimal.Decimal `json:"unit_percent"`
}

// PlanInput describes a new plan version.
type PlanInput struct {
	Name      string           `json:"name" binding:"required"`
	MaxLevels int              `json:"max_levels" binding:"required,min=1"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Levels    []PlanLevelInput `json:"levels" binding:"required,dive"`
}

// CreatePlan inserts a new plan version. The plan starts active but not
// default; SetDefaultPlan switches payouts over to it.
func (s *PlanService) CreatePlan(input PlanInput) (*models.CommissionPlan, error) {
	plan := models.CommissionPlan{
		Name:      input.Name,
		MaxLevels: input.MaxLevels,
		UnitPrice: input.UnitPrice,
		IsDefault: false,
		IsActive:  true,
	}
	for _, l := range input.Levels {
		if l.Level > input.MaxLevels {
			return nil, fmt.Errorf("level %d exceeds max_levels %d", l.Level, input.MaxLevels)
		}
		plan.Levels = append(plan.Levels, models.CommissionPlanLevel{
			Level:       l.Level,
			CashPercent: l.CashPercent,
			UnitPercent: l.UnitPercent,
		})
	}

	if err := s.db.Create(&plan).Error; err != nil {
		return nil, fmt.Errorf("failed to create commission plan: %w", err)
	}

	log.Printf("Created commission plan %d (%s) with %d levels", plan.ID, plan.Name, len(plan.Levels))
	return &plan, nil
}

// SetDefaultPlan atomically moves the default flag to the given plan.
func (s *PlanService) SetDefaultPlan(planID uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var plan models.CommissionPlan
		if err := tx.First(&plan, planID).Error; err != nil {
			return err
		}
		if !plan.IsActive {
			return fmt.Errorf("plan %d is not active", planID)
		}

		if err := tx.Model(&models.CommissionPlan{}).
			Where("is_default = ?", true).
			Update("is_default", false).Error; err != nil {
			return err
		}

		return tx.Model(&plan).Update("is_default", true).Error
	})
	if err != nil {
		return err
	}

	return s.ValidateActivePlan()
}

// ListPlans returns all plan versions, newest first.
func (s *PlanService) ListPlans() ([]models.CommissionPlan, error) {
	var plans []models.CommissionPlan
	if err := s.db.Preload("Levels", func(db *gorm.DB) *gorm.DB {
		return db.Order("level ASC")
	}).Order("created_at DESC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
