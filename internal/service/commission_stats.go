package service

import (
	"github.com/affiliate-next/internal/models"

	"github.com/shopspring/decimal"
)

// MonthlyCommissionBucket 月度佣金汇总
type MonthlyCommissionBucket struct {
	Commissions decimal.Decimal `json:"commissions"`
	Amount      decimal.Decimal `json:"amount"`
	Count       int             `json:"count"`
}

// CommissionStats 佣金统计
type CommissionStats struct {
	AffiliateID       string                             `json:"affiliate_id"`
	TotalCommissions  decimal.Decimal                    `json:"total_commissions"`
	TotalAmount       decimal.Decimal                    `json:"total_amount"`
	AverageCommission decimal.Decimal                    `json:"average_commission"`
	CommissionCount   int                                `json:"commission_count"`
	MonthlyBreakdown  map[string]MonthlyCommissionBucket `json:"monthly_breakdown"`
	TierInfo          *models.TierDefinition             `json:"tier_info,omitempty"`
}

// SummarizeCommissions 汇总佣金记录
func SummarizeCommissions(records []models.CommissionRecord) CommissionStats {
	stats := CommissionStats{
		TotalCommissions:  decimal.Zero,
		TotalAmount:       decimal.Zero,
		AverageCommission: decimal.Zero,
		MonthlyBreakdown:  make(map[string]MonthlyCommissionBucket),
	}
	for _, record := range records {
		stats.TotalCommissions = stats.TotalCommissions.Add(record.TotalCommission)
		stats.TotalAmount = stats.TotalAmount.Add(record.Amount)
		stats.CommissionCount++

		month := record.MonthBucket()
		bucket, ok := stats.MonthlyBreakdown[month]
		if !ok {
			bucket = MonthlyCommissionBucket{Commissions: decimal.Zero, Amount: decimal.Zero}
		}
		bucket.Commissions = bucket.Commissions.Add(record.TotalCommission)
		bucket.Amount = bucket.Amount.Add(record.Amount)
		bucket.Count++
		stats.MonthlyBreakdown[month] = bucket
	}
	if stats.CommissionCount > 0 {
		stats.AverageCommission = stats.TotalCommissions.Div(decimal.NewFromInt(int64(stats.CommissionCount)))
	}
	return stats
}
