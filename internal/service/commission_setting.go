package service

import (
	"fmt"
	"strings"

	"github.com/affiliate-next/internal/config"
	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"

	"github.com/shopspring/decimal"
)

var (
	commissionPercentMin = decimal.Zero
	commissionPercentMax = decimal.NewFromInt(100)
)

// CommissionSetting 佣金引擎配置
type CommissionSetting struct {
	MultiTier     bool                     `json:"multi_tier"`
	Calculation   string                   `json:"calculation"`
	Rate          decimal.Decimal          `json:"rate"`    // 单一比例模式下的百分比
	Minimum       decimal.Decimal          `json:"minimum"` // 0 表示不限
	Maximum       decimal.Decimal          `json:"maximum"` // 0 表示不限
	Tiers         []models.TierDefinition  `json:"tiers"`
	VolumeBonuses []models.VolumeBonusRule `json:"volume_bonuses"`
}

// Mode 返回当前佣金计算模式
func (s CommissionSetting) Mode() string {
	if s.MultiTier {
		return constants.CommissionModeMultiTier
	}
	return constants.CommissionModeFlat
}

// CommissionDefaultSetting 默认佣金配置
func CommissionDefaultSetting() CommissionSetting {
	return NormalizeCommissionSetting(CommissionSetting{
		MultiTier:   false,
		Calculation: constants.CommissionCalculationPercentage,
		Rate:        decimal.NewFromInt(10),
		Minimum:     decimal.Zero,
		Maximum:     decimal.NewFromInt(100),
		Tiers: []models.TierDefinition{
			{Level: 1, Rate: decimal.NewFromInt(10), Name: "Bronze"},
			{Level: 2, Rate: decimal.NewFromInt(15), Name: "Silver"},
			{Level: 3, Rate: decimal.NewFromInt(20), Name: "Gold"},
		},
		VolumeBonuses: []models.VolumeBonusRule{
			{Threshold: decimal.NewFromInt(1000), Bonus: decimal.NewFromInt(2)},
			{Threshold: decimal.NewFromInt(5000), Bonus: decimal.NewFromInt(5)},
			{Threshold: decimal.NewFromInt(10000), Bonus: decimal.NewFromInt(10)},
		},
	})
}

// CommissionSettingFromConfig 由应用配置构建佣金配置
func CommissionSettingFromConfig(cfg config.CommissionConfig) CommissionSetting {
	setting := CommissionSetting{
		MultiTier:   cfg.MultiTier,
		Calculation: cfg.Calculation,
		Rate:        decimal.NewFromFloat(cfg.Rate),
		Minimum:     decimal.NewFromFloat(cfg.Minimum),
		Maximum:     decimal.NewFromFloat(cfg.Maximum),
	}
	for _, tier := range cfg.Tiers {
		item := models.TierDefinition{
			Level: tier.Level,
			Rate:  decimal.NewFromFloat(tier.Rate),
			Name:  tier.Name,
		}
		if tier.Bonus != nil {
			bonus := decimal.NewFromFloat(*tier.Bonus)
			item.Bonus = &bonus
		}
		setting.Tiers = append(setting.Tiers, item)
	}
	for _, rule := range cfg.VolumeBonuses {
		setting.VolumeBonuses = append(setting.VolumeBonuses, models.VolumeBonusRule{
			Threshold: decimal.NewFromFloat(rule.Threshold),
			Bonus:     decimal.NewFromFloat(rule.Bonus),
		})
	}
	return NormalizeCommissionSetting(setting)
}

// NormalizeCommissionSetting 归一化佣金配置（不裁剪数值，非法值留给校验）
func NormalizeCommissionSetting(setting CommissionSetting) CommissionSetting {
	setting.Calculation = strings.ToLower(strings.TrimSpace(setting.Calculation))
	if setting.Calculation == "" {
		setting.Calculation = constants.CommissionCalculationPercentage
	}
	setting.Tiers = normalizeTierDefinitions(setting.Tiers)
	setting.VolumeBonuses = cloneVolumeBonusRules(setting.VolumeBonuses)
	return setting
}

// ValidateCommissionSetting 校验佣金配置
func ValidateCommissionSetting(setting CommissionSetting) error {
	normalized := NormalizeCommissionSetting(setting)
	if normalized.Calculation != constants.CommissionCalculationPercentage {
		return fmt.Errorf("%w: unsupported calculation %q", ErrCommissionConfigInvalid, normalized.Calculation)
	}
	if !isPercent(normalized.Rate) {
		return fmt.Errorf("%w: rate must be between 0 and 100", ErrCommissionConfigInvalid)
	}
	if normalized.Minimum.IsNegative() {
		return fmt.Errorf("%w: minimum must not be negative", ErrCommissionConfigInvalid)
	}
	if normalized.Maximum.IsNegative() {
		return fmt.Errorf("%w: maximum must not be negative", ErrCommissionConfigInvalid)
	}
	if normalized.Minimum.IsPositive() && normalized.Maximum.IsPositive() && normalized.Minimum.GreaterThan(normalized.Maximum) {
		return fmt.Errorf("%w: minimum %s exceeds maximum %s", ErrCommissionConfigInvalid, normalized.Minimum, normalized.Maximum)
	}
	if err := ValidateTierDefinitions(normalized.Tiers); err != nil {
		return err
	}
	for i, rule := range normalized.VolumeBonuses {
		if !rule.Threshold.IsPositive() {
			return fmt.Errorf("%w: volume bonus #%d threshold must be positive", ErrCommissionConfigInvalid, i+1)
		}
		if !isPercent(rule.Bonus) {
			return fmt.Errorf("%w: volume bonus #%d must be between 0 and 100", ErrCommissionConfigInvalid, i+1)
		}
	}
	return nil
}

func isPercent(value decimal.Decimal) bool {
	return !value.LessThan(commissionPercentMin) && !value.GreaterThan(commissionPercentMax)
}

func cloneVolumeBonusRules(rules []models.VolumeBonusRule) []models.VolumeBonusRule {
	if len(rules) == 0 {
		return []models.VolumeBonusRule{}
	}
	result := make([]models.VolumeBonusRule, len(rules))
	copy(result, rules)
	return result
}
