package services

import (
	"errors"
	"testing"

	"referral-rewards/internal/models"
)

func TestDistributeEndToEndChain(t *testing.T) {
	db := setupTestDB(t)
	service := newCommissionService(db)
	referrals := NewReferralService(db)

	createActivePlan(t, db, 3, []string{"10", "5", "2"}, nil, "0")

	createUser(t, db, 1, "Eve")
	createUser(t, db, 2, "Alice")
	createUser(t, db, 3, "Bob")
	createUser(t, db, 4, "Carol")
	createUser(t, db, 5, "Dave")

	// Chain: Dave <- Carol <- Bob <- Alice <- Eve. Eve is beyond the
	// 3-level cap and must earn nothing.
	mustRefer(t, referrals, 1, 2)
	mustRefer(t, referrals, 2, 3)
	mustRefer(t, referrals, 3, 4)
	mustRefer(t, referrals, 4, 5)

	result, err := service.Distribute("inv-1000", 5, dec("1000"), "Gold Package")
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if result.Created != 3 {
		t.Fatalf("expected 3 transactions, got %d", result.Created)
	}

	transactions, err := service.GetInvestmentTransactions("inv-1000")
	if err != nil {
		t.Fatalf("GetInvestmentTransactions failed: %v", err)
	}
	if len(transactions) != 3 {
		t.Fatalf("expected 3 transactions persisted, got %d", len(transactions))
	}

	expected := []struct {
		level      int
		referrerID uint
		cash       string
	}{
		{1, 4, "100"},
		{2, 3, "50"},
		{3, 2, "20"},
	}
	for i, want := range expected {
		got := transactions[i]
		if got.Level != want.level || got.ReferrerID != want.referrerID {
			t.Errorf("transaction %d: expected level %d referrer %d, got level %d referrer %d",
				i, want.level, want.referrerID, got.Level, got.ReferrerID)
		}
		if !got.CashAmount.Equal(dec(want.cash)) {
			t.Errorf("level %d: expected cash %s, got %s", want.level, want.cash, got.CashAmount)
		}
		if got.Status != models.TxStatusPending {
			t.Errorf("level %d: expected pending status, got %s", want.level, got.Status)
		}
		if got.Type != models.TxTypeReferralCommission {
			t.Errorf("level %d: expected referral_commission type, got %s", want.level, got.Type)
		}
	}

	// The direct edge's counters advance in the same unit of work.
	var edge models.ReferralRelationship
	if err := db.Where("referred_id = ?", 5).First(&edge).Error; err != nil {
		t.Fatalf("failed to load direct edge: %v", err)
	}
	if !edge.InvestmentAmount.Equal(dec("1000")) {
		t.Errorf("expected cumulative investment 1000, got %s", edge.InvestmentAmount)
	}
	if !edge.CommissionEarned.Equal(dec("100")) {
		t.Errorf("expected cumulative commission 100, got %s", edge.CommissionEarned)
	}
}

func TestDistributeNoReferrerIsNotAnError(t *testing.T) {
	db := setupTestDB(t)
	service := newCommissionService(db)

	createActivePlan(t, db, 3, []string{"10", "5", "2"}, nil, "0")
	createUser(t, db, 1, "Loner")

	result, err := service.Distribute("inv-solo", 1, dec("500"), "Starter")
	if err != nil {
		t.Fatalf("Distribute failed for unreferred investor: %v", err)
	}
	if result.Created != 0 {
		t.Errorf("expected zero transactions, got %d", result.Created)
	}

	var count int64
	db.Model(&models.CommissionTransaction{}).Count(&count)
	if count != 0 {
		t.Errorf("expected empty ledger, found %d rows", count)
	}
}

func TestDistributeWithoutActivePlan(t *testing.T) {
	db := setupTestDB(t)
	service := newCommissionService(db)

	createUser(t, db, 1, "Alice")

	if _, err := service.Distribute("inv-noplan", 1, dec("100"), ""); !errors.Is(err, ErrNoActivePlan) {
		t.Errorf("expected ErrNoActivePlan, got %v", err)
	}
}

func TestDistributeIdempotentRetry(t *testing.T) {
	db := setupTestDB(t)
	service := newCommissionService(db)
	referrals := NewReferralService(db)

	createActivePlan(t, db, 3, []string{"10", "5", "2"}, nil, "0")
	createUser(t, db, 1, "Alice")
	createUser(t, db, 2, "Bob")
	mustRefer(t, referrals, 1, 2)

	first, err := service.Distribute("inv-retry", 2, dec("1000"), "Gold")
	if err != nil {
		t.Fatalf("first Distribute failed: %v", err)
	}
	if first.Created != 1 {
		t.Fatalf("expected 1 transaction on first call, got %d", first.Created)
	}

	second, err := service.Distribute("inv-retry", 2, dec("1000"), "Gold")
	if err != nil {
		t.Fatalf("retry Distribute failed: %v", err)
	}
	if second.Created != 0 {
		t.Errorf("retry must not create transactions, got %d", second.Created)
	}

	var count int64
	db.Model(&models.CommissionTransaction{}).
		Where("investment_id = ?", "inv-retry").Count(&count)
	if count != 1 {
		t.Errorf("expected exactly 1 ledger row, found %d", count)
	}

	// The retry must not double-count leaderboard volume either.
	var edge models.ReferralRelationship
	if err := db.Where("referred_id = ?", 2).First(&edge).Error; err != nil {
		t.Fatalf("failed to load edge: %v", err)
	}
	if !edge.InvestmentAmount.Equal(dec("1000")) {
		t.Errorf("expected cumulative investment 1000 after retry, got %s", edge.InvestmentAmount)
	}
}

func TestDistributeLevelCapBoundsCyclicGraph(t *testing.T) {
	db := setupTestDB(t)
	service := newCommissionService(db)
	referrals := NewReferralService(db)

	createActivePlan(t, db, 4, []string{"10", "5", "2", "1"}, nil, "0")
	createUser(t, db, 1, "Alice")
	createUser(t, db, 2, "Bob")

	// Each edge is legal on its own, together they form a cycle. The walk
	// must still terminate at the level cap.
	mustRefer(t, referrals, 1, 2)
	mustRefer(t, referrals, 2, 1)

	result, err := service.Distribute("inv-cycle", 2, dec("100"), "Loop")
	if err != nil {
		t.Fatalf("Distribute failed on cyclic graph: %v", err)
	}
	if result.Created != 4 {
		t.Errorf("expected exactly max_levels transactions, got %d", result.Created)
	}
}

func TestDistributeSkipsZeroPercentLevels(t *testing.T) {
	db := setupTestDB(t)
	service := newCommissionService(db)
	referrals := NewReferralService(db)

	createActivePlan(t, db, 3, []string{"10", "0", "2"}, nil, "0")
	createUser(t, db, 1, "Alice")
	createUser(t, db, 2, "Bob")
	createUser(t, db, 3, "Carol")
	createUser(t, db, 4, "Dave")
	mustRefer(t, referrals, 1, 2)
	mustRefer(t, referrals, 2, 3)
	mustRefer(t, referrals, 3, 4)

	result, err := service.Distribute("inv-skip", 4, dec("1000"), "Gold")
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if result.Created != 2 {
		t.Fatalf("expected 2 transactions (level 2 skipped), got %d", result.Created)
	}

	transactions, _ := service.GetInvestmentTransactions("inv-skip")
	if transactions[0].Level != 1 || transactions[1].Level != 3 {
		t.Errorf("expected levels 1 and 3, got %d and %d", transactions[0].Level, transactions[1].Level)
	}
}

func TestDistributeCashConservation(t *testing.T) {
	db := setupTestDB(t)
	service := newCommissionService(db)
	referrals := NewReferralService(db)

	createActivePlan(t, db, 1, []string{"10"}, nil, "0")
	createUser(t, db, 1, "Alice")
	createUser(t, db, 2, "Bob")
	mustRefer(t, referrals, 1, 2)

	if _, err := service.Distribute("inv-exact", 2, dec("1234.56"), ""); err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	transactions, _ := service.GetInvestmentTransactions("inv-exact")
	if len(transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(transactions))
	}
	if !transactions[0].CashAmount.Equal(dec("123.456")) {
		t.Errorf("expected exact cash 123.456, got %s", transactions[0].CashAmount)
	}
}

func TestDistributeInKindTruncation(t *testing.T) {
	db := setupTestDB(t)
	service := newCommissionService(db)
	referrals := NewReferralService(db)

	// 1000 * 5% = 50; 50 / 20 = 2.5 units. Truncation must issue 2,
	// never round up to 3.
	createActivePlan(t, db, 1, []string{"0"}, []string{"5"}, "20")
	createUser(t, db, 1, "Alice")
	createUser(t, db, 2, "Bob")
	mustRefer(t, referrals, 1, 2)

	if _, err := service.Distribute("inv-units", 2, dec("1000"), ""); err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}

	transactions, _ := service.GetInvestmentTransactions("inv-units")
	if len(transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(transactions))
	}
	if transactions[0].UnitAmount != 2 {
		t.Errorf("expected 2 in-kind units, got %d", transactions[0].UnitAmount)
	}
	if !transactions[0].CashAmount.IsZero() {
		t.Errorf("expected zero cash, got %s", transactions[0].CashAmount)
	}
}

func TestCommissionStatusWorkflow(t *testing.T) {
	db := setupTestDB(t)
	service := newCommissionService(db)
	referrals := NewReferralService(db)

	createActivePlan(t, db, 1, []string{"10"}, nil, "0")
	createUser(t, db, 1, "Alice")
	createUser(t, db, 2, "Bob")
	mustRefer(t, referrals, 1, 2)

	if _, err := service.Distribute("inv-status", 2, dec("100"), ""); err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	transactions, _ := service.GetInvestmentTransactions("inv-status")
	id := transactions[0].ID

	// Paid before approved is a backward jump.
	if err := service.MarkTransactionPaid(99, id); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("expected ErrInvalidStatusTransition for pending->paid, got %v", err)
	}

	if err := service.ApproveTransaction(99, id); err != nil {
		t.Fatalf("ApproveTransaction failed: %v", err)
	}
	// Approving twice must fail, transitions only move forward.
	if err := service.ApproveTransaction(99, id); !errors.Is(err, ErrInvalidStatusTransition) {
		t.Errorf("expected ErrInvalidStatusTransition on re-approve, got %v", err)
	}

	if err := service.MarkTransactionPaid(99, id); err != nil {
		t.Fatalf("MarkTransactionPaid failed: %v", err)
	}

	var tx models.CommissionTransaction
	if err := db.First(&tx, id).Error; err != nil {
		t.Fatalf("failed to reload transaction: %v", err)
	}
	if tx.Status != models.TxStatusPaid {
		t.Errorf("expected paid status, got %s", tx.Status)
	}
	if tx.ApprovedAt == nil || tx.PaidAt == nil {
		t.Errorf("expected approval and payment timestamps to be set")
	}
}

func mustRefer(t *testing.T, service *ReferralService, referrerID, referredID uint) {
	t.Helper()
	if _, err := service.RecordReferral(referrerID, referredID, "", "test"); err != nil {
		t.Fatalf("RecordReferral(%d, %d) failed: %v", referrerID, referredID, err)
	}
}
