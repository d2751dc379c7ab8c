package services

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"referral-rewards/internal/models"
)

// PrizeTier maps a rank range to a flat prize amount.
type PrizeTier struct {
	FromRank int
	ToRank   int
	Amount   decimal.Decimal
}

// PrizeTiers is the fixed leaderboard prize table: individual amounts for
// the top three, a flat amount for ranks 4-10, nothing beyond.
var PrizeTiers = []PrizeTier{
	{1, 1, decimal.NewFromInt(1000)},
	{2, 2, decimal.NewFromInt(500)},
	{3, 3, decimal.NewFromInt(250)},
	{4, 10, decimal.NewFromInt(100)},
}

// MaxPrizeRank is the lowest rank that still receives a prize.
const MaxPrizeRank = 10

// PrizeForRank returns the prize amount for a rank, zero beyond the table.
func PrizeForRank(rank int) decimal.Decimal {
	for _, tier := range PrizeTiers {
		if rank >= tier.FromRank && rank <= tier.ToRank {
			return tier.Amount
		}
	}
	return decimal.Zero
}

// LeaderboardService ranks referrers by direct sales volume. Only level-1
// volume counts here; the deeper levels that feed commissions are
// deliberately excluded from ranking.
type LeaderboardService struct {
	db        *gorm.DB
	threshold decimal.Decimal
}

func NewLeaderboardService(db *gorm.DB, qualificationThreshold decimal.Decimal) *LeaderboardService {
	return &LeaderboardService{
		db:        db,
		threshold: qualificationThreshold,
	}
}

// QualificationThreshold returns the minimum direct volume for a prize.
func (s *LeaderboardService) QualificationThreshold() decimal.Decimal {
	return s.threshold
}

type leaderboardRow struct {
	ReferrerID    uint            `gorm:"column:referrer_id"`
	ReferralCount int             `gorm:"column:referral_count"`
	DirectVolume  decimal.Decimal `gorm:"column:direct_volume"`
}

// ComputeLeaderboard aggregates direct referral volume per referrer and
// returns the ranked entries. Ordering is volume desc, then referral count
// desc, then referrer id asc, so repeated calls over the same data return
// the same order.
func (s *LeaderboardService) ComputeLeaderboard(limit int) ([]models.LeaderboardEntry, error) {
	var rows []leaderboardRow
	err := s.db.Model(&models.ReferralRelationship{}).
		Select("referrer_id, COUNT(*) AS referral_count, COALESCE(SUM(investment_amount), 0) AS direct_volume").
		Where("status = ?", models.RelationshipActive).
		Group("referrer_id").
		Order("direct_volume DESC, referral_count DESC, referrer_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return []models.LeaderboardEntry{}, nil
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ReferrerID)
	}
	var users []models.User
	if err := s.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	entries := make([]models.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		rank := i + 1
		qualified := row.DirectVolume.GreaterThanOrEqual(s.threshold)

		prize := decimal.Zero
		if qualified {
			prize = PrizeForRank(rank)
		}

		entries = append(entries, models.LeaderboardEntry{
			Rank:          rank,
			UserID:        row.ReferrerID,
			UserName:      names[row.ReferrerID],
			DirectVolume:  row.DirectVolume,
			ReferralCount: row.ReferralCount,
			Qualified:     qualified,
			PrizeAmount:   prize,
		})
	}

	return entries, nil
}
