package services

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"referral-rewards/internal/models"
)

// setupTestDB opens a private shared-cache in-memory database named after
// the test, so every connection in the pool sees the same tables and tests
// stay isolated from each other.
func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.AdminUser{},
		&models.ReferralRelationship{},
		&models.CommissionPlan{},
		&models.CommissionPlanLevel{},
		&models.CommissionTransaction{},
		&models.PrizeRecord{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func createUser(t *testing.T, db *gorm.DB, id uint, name string) {
	t.Helper()
	user := models.User{ID: id, Name: name}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user %d: %v", id, err)
	}
}

// createActivePlan inserts a default active plan with cash/unit percentages
// per level, given as decimal strings indexed from level 1.
func createActivePlan(t *testing.T, db *gorm.DB, maxLevels int, cashPercents, unitPercents []string, unitPrice string) *models.CommissionPlan {
	t.Helper()

	plan := models.CommissionPlan{
		Name:      "test plan",
		MaxLevels: maxLevels,
		UnitPrice: decimal.RequireFromString(unitPrice),
		IsDefault: true,
		IsActive:  true,
	}
	for i := 0; i < maxLevels; i++ {
		cash, unit := "0", "0"
		if i < len(cashPercents) {
			cash = cashPercents[i]
		}
		if i < len(unitPercents) {
			unit = unitPercents[i]
		}
		plan.Levels = append(plan.Levels, models.CommissionPlanLevel{
			Level:       i + 1,
			CashPercent: decimal.RequireFromString(cash),
			UnitPercent: decimal.RequireFromString(unit),
		})
	}

	if err := db.Create(&plan).Error; err != nil {
		t.Fatalf("failed to create plan: %v", err)
	}
	return &plan
}

// newCommissionService wires a commission service with its collaborators
// against the given test database.
func newCommissionService(db *gorm.DB) *CommissionService {
	return NewCommissionService(db, NewPlanService(db), NewReferralService(db), NewAuditService(db))
}
