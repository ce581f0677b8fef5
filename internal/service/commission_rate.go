package service

import (
	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"

	"github.com/shopspring/decimal"
)

// TierLookup 按等级查询佣金定义
type TierLookup interface {
	GetTier(level int) (models.TierDefinition, bool)
}

// ResolveCommissionRate 解析生效佣金比例，多级模式下未命中等级时回退到统一比例
func ResolveCommissionRate(mode string, tiers TierLookup, affiliateTier *int, flatRate decimal.Decimal) decimal.Decimal {
	if mode != constants.CommissionModeMultiTier || tiers == nil || affiliateTier == nil {
		return flatRate
	}
	tier, ok := tiers.GetTier(*affiliateTier)
	if !ok {
		return flatRate
	}
	return tier.Rate
}

// ResolveVolumeBonus 返回累计销售额（含本单）达到门槛的最高奖励比例
func ResolveVolumeBonus(rules []models.VolumeBonusRule, cumulativeSales, amount decimal.Decimal) decimal.Decimal {
	total := cumulativeSales.Add(amount)
	bonus := decimal.Zero
	for _, rule := range rules {
		if total.GreaterThanOrEqual(rule.Threshold) && rule.Bonus.GreaterThan(bonus) {
			bonus = rule.Bonus
		}
	}
	return bonus
}
