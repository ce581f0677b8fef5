package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TierDefinition 佣金等级定义
type TierDefinition struct {
	Level int              `json:"level"`           // 等级（>=1，唯一）
	Rate  decimal.Decimal  `json:"rate"`            // 佣金比例（百分比 0-100）
	Name  string           `json:"name"`            // 等级名称
	Bonus *decimal.Decimal `json:"bonus,omitempty"` // 固定奖励金额
}

// HasBonus 是否配置了固定奖励
func (t TierDefinition) HasBonus() bool {
	return t.Bonus != nil && t.Bonus.GreaterThan(decimal.Zero)
}

// VolumeBonusRule 销量奖励规则
type VolumeBonusRule struct {
	Threshold decimal.Decimal `json:"threshold"` // 累计销售额门槛
	Bonus     decimal.Decimal `json:"bonus"`     // 奖励比例（百分比 0-100）
}

// CommissionRecord 佣金记录（创建后不可变）
type CommissionRecord struct {
	ID              string          `json:"id"`
	AffiliateID     string          `json:"affiliate_id"`
	Amount          decimal.Decimal `json:"amount"`           // 销售金额
	CommissionRate  decimal.Decimal `json:"commission_rate"`  // 生效比例
	BaseCommission  decimal.Decimal `json:"base_commission"`  // 基础佣金
	VolumeBonus     decimal.Decimal `json:"volume_bonus"`     // 销量奖励
	TierBonus       decimal.Decimal `json:"tier_bonus"`       // 等级固定奖励
	TotalCommission decimal.Decimal `json:"total_commission"` // 限额裁剪后的佣金
	Timestamp       time.Time       `json:"timestamp"`
	Options         JSON            `json:"options"`
}

// DayBucket 记录所属的自然日（UTC）
func (r CommissionRecord) DayBucket() string {
	return r.Timestamp.UTC().Format("2006-01-02")
}

// MonthBucket 记录所属的月份（UTC）
func (r CommissionRecord) MonthBucket() string {
	return r.Timestamp.UTC().Format("2006-01")
}

// AffiliateSnapshot 计算佣金所需的推广用户只读快照
type AffiliateSnapshot struct {
	ID               string          `json:"id"`
	Tier             *int            `json:"tier,omitempty"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TotalCommissions decimal.Decimal `json:"total_commissions"`
	Status           string          `json:"status"`
}

// NeutralAffiliateSnapshot 无法获取推广用户时使用的中性快照
func NeutralAffiliateSnapshot(affiliateID string) AffiliateSnapshot {
	return AffiliateSnapshot{
		ID:               affiliateID,
		TotalSales:       decimal.Zero,
		TotalCommissions: decimal.Zero,
	}
}
