package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"referral-rewards/internal/models"
)

var (
	// ErrDistributionPersistence wraps store failures during a distribution.
	// The whole unit of work was rolled back; the caller may retry and the
	// idempotency key prevents double application.
	ErrDistributionPersistence = errors.New("failed to persist commission distribution")

	// ErrInvalidStatusTransition rejects backward or repeated status moves.
	ErrInvalidStatusTransition = errors.New("invalid transaction status transition")
)

// DistributionResult reports what one distribution call did.
type DistributionResult struct {
	Created int    `json:"created"`
	Message string `json:"message"`
}

// chainHop is one step of the upward referral walk.
type chainHop struct {
	Level      int
	ReferrerID uint
}

// CommissionService walks the referral chain for a completed investment and
// creates the tiered commission transactions.
type CommissionService struct {
	db        *gorm.DB
	plans     *PlanService
	referrals *ReferralService
	audit     *AuditService
}

func NewCommissionService(db *gorm.DB, plans *PlanService, referrals *ReferralService, audit *AuditService) *CommissionService {
	return &CommissionService{
		db:        db,
		plans:     plans,
		referrals: referrals,
		audit:     audit,
	}
}

// Distribute processes one completed investment. It resolves the active
// plan, walks the referral chain upward to at most plan.MaxLevels hops,
// and creates one pending transaction per non-zero level, all inside one
// database transaction. Re-running the call for an investment that was
// already distributed is a zero-count success.
func (s *CommissionService) Distribute(investmentID string, investorID uint, amount decimal.Decimal, packageName string) (*DistributionResult, error) {
	if investmentID == "" {
		return nil, fmt.Errorf("investment id is required")
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("investment amount must be positive, got %s", amount)
	}

	plan, err := s.plans.GetActivePlan()
	if err != nil {
		s.audit.Record(investorID, "commission.distribute", "investment", investmentID, false,
			map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	chain, err := s.walkChain(investorID, plan.MaxLevels)
	if err != nil {
		s.audit.Record(investorID, "commission.distribute", "investment", investmentID, false,
			map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to walk referral chain: %w", err)
	}

	if len(chain) == 0 {
		// An unreferred investor is a valid terminus, not a failure.
		s.audit.Record(investorID, "commission.distribute", "investment", investmentID, true,
			map[string]interface{}{"investor_id": investorID, "transactions": 0})
		return &DistributionResult{Created: 0, Message: "investor has no referrer"}, nil
	}

	names, err := s.userNames(investorID, chain)
	if err != nil {
		return nil, fmt.Errorf("failed to load user names: %w", err)
	}

	created := 0
	alreadyApplied := false

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// The idempotency key (referrer, investment, level) means any
		// existing row for this investment proves a prior call committed.
		var existing int64
		if err := tx.Model(&models.CommissionTransaction{}).
			Where("investment_id = ? AND type = ?", investmentID, models.TxTypeReferralCommission).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			alreadyApplied = true
			return nil
		}

		var directCash decimal.Decimal

		for _, hop := range chain {
			cashPercent, unitPercent := plan.LevelRates(hop.Level)
			if cashPercent.IsZero() && unitPercent.IsZero() {
				continue
			}

			cashAmount := amount.Mul(cashPercent).Div(decimal.NewFromInt(100))
			var unitAmount int64
			if unitPercent.IsPositive() && plan.UnitPrice.IsPositive() {
				// Truncation, never rounding, so fractional units are
				// not over-issued.
				unitAmount = amount.Mul(unitPercent).
					Div(decimal.NewFromInt(100)).
					Div(plan.UnitPrice).
					Floor().IntPart()
			}

			planID := plan.ID
			transaction := models.CommissionTransaction{
				Reference:    uuid.NewString(),
				PlanID:       &planID,
				ReferrerID:   hop.ReferrerID,
				ReferrerName: names[hop.ReferrerID],
				ReferredID:   investorID,
				ReferredName: names[investorID],
				InvestmentID: investmentID,
				Amount:       amount,
				Level:        hop.Level,
				CashPercent:  cashPercent,
				UnitPercent:  unitPercent,
				CashAmount:   cashAmount,
				UnitAmount:   unitAmount,
				Status:       models.TxStatusPending,
				Type:         models.TxTypeReferralCommission,
				Note:         fmt.Sprintf("Level %d commission for %s", hop.Level, packageName),
			}

			if err := tx.Create(&transaction).Error; err != nil {
				return err
			}
			created++

			if hop.Level == 1 {
				directCash = cashAmount
			}
		}

		// The direct edge's cumulative counters are the authoritative
		// source for leaderboard volume, so they advance in the same
		// transaction as the payouts.
		return s.referrals.AccrueCounters(tx, investorID, models.ReferralCounterDelta{
			InvestmentAmount: amount,
			CommissionEarned: directCash,
		})
	})

	if err != nil {
		s.audit.Record(investorID, "commission.distribute", "investment", investmentID, false,
			map[string]interface{}{"investor_id": investorID, "error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrDistributionPersistence, err)
	}

	if alreadyApplied {
		s.audit.Record(investorID, "commission.distribute", "investment", investmentID, true,
			map[string]interface{}{"investor_id": investorID, "transactions": 0, "duplicate": true})
		return &DistributionResult{Created: 0, Message: "investment already distributed"}, nil
	}

	s.audit.Record(investorID, "commission.distribute", "investment", investmentID, true,
		map[string]interface{}{"investor_id": investorID, "amount": amount.String(), "transactions": created})

	log.Printf("Distributed %d commission transactions for investment %s (investor %d, amount %s)",
		created, investmentID, investorID, amount)
	return &DistributionResult{Created: created, Message: fmt.Sprintf("created %d commission transactions", created)}, nil
}

// walkChain follows referrer edges upward from the investor. The level cap
// bounds the walk, so it terminates even if the stored graph were corrupted
// into a cycle.
func (s *CommissionService) walkChain(investorID uint, maxLevels int) ([]chainHop, error) {
	var chain []chainHop
	current := investorID

	for level := 1; level <= maxLevels; level++ {
		referrerID, ok, err := s.referrals.GetReferrer(current)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		chain = append(chain, chainHop{Level: level, ReferrerID: referrerID})
		current = referrerID
	}

	return chain, nil
}

// userNames loads display names for the investor and every referrer in the
// chain. Unknown ids map to an empty name rather than failing the payout.
func (s *CommissionService) userNames(investorID uint, chain []chainHop) (map[uint]string, error) {
	ids := []uint{investorID}
	for _, hop := range chain {
		ids = append(ids, hop.ReferrerID)
	}

	var users []models.User
	if err := s.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}

	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}
	return names, nil
}

// ApproveTransaction advances a pending transaction to approved.
func (s *CommissionService) ApproveTransaction(actorID, transactionID uint) error {
	return s.advanceStatus(actorID, transactionID, models.TxStatusPending, models.TxStatusApproved, "approved_at")
}

// MarkTransactionPaid advances an approved transaction to paid.
func (s *CommissionService) MarkTransactionPaid(actorID, transactionID uint) error {
	return s.advanceStatus(actorID, transactionID, models.TxStatusApproved, models.TxStatusPaid, "paid_at")
}

// advanceStatus performs one forward status step. The guard in the WHERE
// clause makes concurrent or repeated calls lose cleanly.
func (s *CommissionService) advanceStatus(actorID, transactionID uint, from, to models.TransactionStatus, stampColumn string) error {
	if !from.CanTransitionTo(to) {
		return ErrInvalidStatusTransition
	}

	result := s.db.Model(&models.CommissionTransaction{}).
		Where("id = ? AND status = ?", transactionID, from).
		Updates(map[string]interface{}{
			"status":    to,
			stampColumn: time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var tx models.CommissionTransaction
		if err := s.db.First(&tx, transactionID).Error; err != nil {
			return err
		}
		return fmt.Errorf("%w: transaction %d is %s, not %s", ErrInvalidStatusTransition, transactionID, tx.Status, from)
	}

	s.audit.Record(actorID, "commission.status."+string(to), "commission_transaction",
		fmt.Sprintf("%d", transactionID), true, nil)
	return nil
}

// GetUserTransactions returns a referrer's commission transactions, newest
// first.
func (s *CommissionService) GetUserTransactions(userID uint, limit, offset int) ([]models.CommissionTransaction, error) {
	var transactions []models.CommissionTransaction
	if err := s.db.Where("referrer_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// GetInvestmentTransactions returns the transactions created for one
// investment, in level order.
func (s *CommissionService) GetInvestmentTransactions(investmentID string) ([]models.CommissionTransaction, error) {
	var transactions []models.CommissionTransaction
	if err := s.db.Where("investment_id = ? AND type = ?", investmentID, models.TxTypeReferralCommission).
		Order("level ASC").Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}
