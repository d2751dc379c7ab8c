package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"referral-rewards/internal/models"
)

// ErrNoQualifiedParticipants means no leaderboard entry meets the
// qualification threshold. The leaderboard is simply not ready to pay;
// nothing is broken.
var ErrNoQualifiedParticipants = errors.New("no qualified leaderboard participants")

// PrizeCalculationResult reports one calculation run.
type PrizeCalculationResult struct {
	Created int                  `json:"created"`
	Records []models.PrizeRecord `json:"records"`
}

// PrizeDistributionResult reports one distribution run. Requested ids that
// were not in calculated state are listed as skipped, never failed.
type PrizeDistributionResult struct {
	Distributed int    `json:"distributed"`
	Skipped     []uint `json:"skipped"`
}

// PrizeService snapshots leaderboard winners into prize records and drives
// each record through its calculated -> distributed | cancelled state
// machine, paying through the shared commission ledger.
type PrizeService struct {
	db          *gorm.DB
	leaderboard *LeaderboardService
	audit       *AuditService
}

func NewPrizeService(db *gorm.DB, leaderboard *LeaderboardService, audit *AuditService) *PrizeService {
	return &PrizeService{
		db:          db,
		leaderboard: leaderboard,
		audit:       audit,
	}
}

// CalculateWinners ranks the leaderboard and snapshots the qualified top
// ranks as fresh prize records. All still-undistributed records from earlier
// calculations are replaced in the same transaction, so re-running before a
// distribution is safe; distributed records are never touched.
func (s *PrizeService) CalculateWinners(actorID uint) (*PrizeCalculationResult, error) {
	entries, err := s.leaderboard.ComputeLeaderboard(MaxPrizeRank)
	if err != nil {
		s.audit.Record(actorID, "prize.calculate", "leaderboard", "", false,
			map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("failed to compute leaderboard: %w", err)
	}

	var winners []models.LeaderboardEntry
	for _, entry := range entries {
		if entry.Qualified && entry.PrizeAmount.IsPositive() {
			winners = append(winners, entry)
		}
	}

	if len(winners) == 0 {
		s.audit.Record(actorID, "prize.calculate", "leaderboard", "", false,
			map[string]interface{}{"error": ErrNoQualifiedParticipants.Error()})
		return nil, ErrNoQualifiedParticipants
	}

	now := time.Now()
	records := make([]models.PrizeRecord, 0, len(winners))
	for _, w := range winners {
		records = append(records, models.PrizeRecord{
			Rank:          w.Rank,
			UserID:        w.UserID,
			UserName:      w.UserName,
			DirectVolume:  w.DirectVolume,
			ReferralCount: w.ReferralCount,
			PrizeAmount:   w.PrizeAmount,
			Status:        models.PrizeStatusCalculated,
			CalculatedBy:  actorID,
			CalculatedAt:  now,
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("status = ?", models.PrizeStatusCalculated).
			Delete(&models.PrizeRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(&records).Error
	})
	if err != nil {
		s.audit.Record(actorID, "prize.calculate", "leaderboard", "", false,
			map[string]interface{}{"error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrDistributionPersistence, err)
	}

	s.audit.Record(actorID, "prize.calculate", "leaderboard", "", true,
		map[string]interface{}{"winners": len(records)})

	log.Printf("Calculated %d leaderboard prize records (actor %d)", len(records), actorID)
	return &PrizeCalculationResult{Created: len(records), Records: records}, nil
}

// DistributePrizes pays the requested prize records. Each eligible record
// gets one leaderboard_prize transaction in the commission ledger and is
// advanced to distributed, both in the same database transaction. Ids whose
// record is missing or already processed are skipped silently, which makes
// retries with a stale id list safe.
func (s *PrizeService) DistributePrizes(actorID uint, prizeIDs []uint) (*PrizeDistributionResult, error) {
	result := &PrizeDistributionResult{Skipped: []uint{}}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range prizeIDs {
			var record models.PrizeRecord
			if err := tx.First(&record, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					result.Skipped = append(result.Skipped, id)
					continue
				}
				return err
			}

			if !record.Status.CanTransitionTo(models.PrizeStatusDistributed) {
				result.Skipped = append(result.Skipped, id)
				continue
			}

			now := time.Now()
			// The status guard on the update serializes concurrent
			// distribution attempts for the same record.
			updated := tx.Model(&models.PrizeRecord{}).
				Where("id = ? AND status = ?", id, models.PrizeStatusCalculated).
				Updates(map[string]interface{}{
					"status":         models.PrizeStatusDistributed,
					"distributed_by": actorID,
					"distributed_at": now,
				})
			if updated.Error != nil {
				return updated.Error
			}
			if updated.RowsAffected == 0 {
				result.Skipped = append(result.Skipped, id)
				continue
			}

			transaction := models.CommissionTransaction{
				Reference:    uuid.NewString(),
				ReferrerID:   record.UserID,
				ReferrerName: record.UserName,
				ReferredID:   record.UserID,
				ReferredName: record.UserName,
				InvestmentID: fmt.Sprintf("prize-%d", record.ID),
				Amount:       record.DirectVolume,
				Level:        models.PrizeLevel,
				CashAmount:   record.PrizeAmount,
				Status:       models.TxStatusPending,
				Type:         models.TxTypeLeaderboardPrize,
				Note:         fmt.Sprintf("Leaderboard prize, rank %d", record.Rank),
			}
			if err := tx.Create(&transaction).Error; err != nil {
				return err
			}

			result.Distributed++
		}
		return nil
	})
	if err != nil {
		s.audit.Record(actorID, "prize.distribute", "prize_record", "", false,
			map[string]interface{}{"requested": len(prizeIDs), "error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrDistributionPersistence, err)
	}

	s.audit.Record(actorID, "prize.distribute", "prize_record", "", true,
		map[string]interface{}{"requested": len(prizeIDs), "distributed": result.Distributed, "skipped": len(result.Skipped)})

	log.Printf("Distributed %d of %d requested prize records (actor %d)", result.Distributed, len(prizeIDs), actorID)
	return result, nil
}

// PrizeCancellationResult reports one cancellation run.
type PrizeCancellationResult struct {
	Cancelled int    `json:"cancelled"`
	Skipped   []uint `json:"skipped"`
}

// CancelPrizes moves the requested records to cancelled without paying.
// Like distribution, non-calculated records are skipped, not failed.
func (s *PrizeService) CancelPrizes(actorID uint, prizeIDs []uint) (*PrizeCancellationResult, error) {
	result := &PrizeCancellationResult{Skipped: []uint{}}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range prizeIDs {
			updated := tx.Model(&models.PrizeRecord{}).
				Where("id = ? AND status = ?", id, models.PrizeStatusCalculated).
				Update("status", models.PrizeStatusCancelled)
			if updated.Error != nil {
				return updated.Error
			}
			if updated.RowsAffected == 0 {
				result.Skipped = append(result.Skipped, id)
				continue
			}
			result.Cancelled++
		}
		return nil
	})
	if err != nil {
		s.audit.Record(actorID, "prize.cancel", "prize_record", "", false,
			map[string]interface{}{"requested": len(prizeIDs), "error": err.Error()})
		return nil, fmt.Errorf("%w: %v", ErrDistributionPersistence, err)
	}

	s.audit.Record(actorID, "prize.cancel", "prize_record", "", true,
		map[string]interface{}{"requested": len(prizeIDs), "cancelled": result.Cancelled})
	return result, nil
}

// ListPrizes returns prize records, optionally filtered by status, ordered
// by rank within each calculation.
func (s *PrizeService) ListPrizes(status models.PrizeStatus) ([]models.PrizeRecord, error) {
	query := s.db.Order("calculated_at DESC, rank ASC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var records []models.PrizeRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
