package services

import (
	"errors"
	"testing"

	"referral-rewards/internal/models"
)

func TestGetActivePlanConfigurationErrors(t *testing.T) {
	db := setupTestDB(t)
	service := NewPlanService(db)

	// No plan at all is a configuration error, not a guess.
	if _, err := service.GetActivePlan(); !errors.Is(err, ErrNoActivePlan) {
		t.Errorf("expected ErrNoActivePlan with empty table, got %v", err)
	}

	createActivePlan(t, db, 3, []string{"10", "5", "2"}, nil, "0")

	plan, err := service.GetActivePlan()
	if err != nil {
		t.Fatalf("GetActivePlan failed: %v", err)
	}
	if plan.MaxLevels != 3 || len(plan.Levels) != 3 {
		t.Errorf("unexpected plan shape: max_levels=%d levels=%d", plan.MaxLevels, len(plan.Levels))
	}
	if plan.Levels[0].Level != 1 {
		t.Errorf("expected levels ordered ascending, first is %d", plan.Levels[0].Level)
	}

	// A second flagged plan makes the configuration ambiguous.
	createActivePlan(t, db, 2, []string{"8"}, nil, "0")
	if _, err := service.GetActivePlan(); !errors.Is(err, ErrNoActivePlan) {
		t.Errorf("expected ErrNoActivePlan with two flagged plans, got %v", err)
	}
}

func TestSetDefaultPlanMovesFlag(t *testing.T) {
	db := setupTestDB(t)
	service := NewPlanService(db)

	first := createActivePlan(t, db, 2, []string{"10", "5"}, nil, "0")

	second, err := service.CreatePlan(PlanInput{
		Name:      "v2",
		MaxLevels: 3,
		Levels: []PlanLevelInput{
			{Level: 1, CashPercent: dec("12")},
			{Level: 2, CashPercent: dec("6")},
			{Level: 3, CashPercent: dec("3")},
		},
	})
	if err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if second.IsDefault {
		t.Errorf("new plan version must not become default implicitly")
	}

	if err := service.SetDefaultPlan(second.ID); err != nil {
		t.Fatalf("SetDefaultPlan failed: %v", err)
	}

	active, err := service.GetActivePlan()
	if err != nil {
		t.Fatalf("GetActivePlan failed after switch: %v", err)
	}
	if active.ID != second.ID {
		t.Errorf("expected plan %d active, got %d", second.ID, active.ID)
	}

	var old models.CommissionPlan
	if err := db.First(&old, first.ID).Error; err != nil {
		t.Fatalf("failed to reload old plan: %v", err)
	}
	if old.IsDefault {
		t.Errorf("old plan should have lost the default flag")
	}
}

func TestValidateActivePlanRejectsInKindWithoutUnitPrice(t *testing.T) {
	db := setupTestDB(t)
	service := NewPlanService(db)

	createActivePlan(t, db, 1, []string{"10"}, []string{"5"}, "0")

	if err := service.ValidateActivePlan(); !errors.Is(err, ErrNoActivePlan) {
		t.Errorf("expected validation failure for in-kind rewards without unit price, got %v", err)
	}
}
