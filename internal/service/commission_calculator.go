package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CommissionCalculator 纯计算的佣金计算器，不写账本
type CommissionCalculator struct {
	setting CommissionSetting
	tiers   TierLookup
	now     func() time.Time
	newID   func() string
}

// NewCommissionCalculator 创建佣金计算器
func NewCommissionCalculator(setting CommissionSetting, tiers TierLookup) *CommissionCalculator {
	return &CommissionCalculator{
		setting: setting,
		tiers:   tiers,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Compute 计算一笔销售的佣金
func (c *CommissionCalculator) Compute(affiliateID string, amount decimal.Decimal, snapshot models.AffiliateSnapshot, options models.JSON) (models.CommissionRecord, error) {
	affiliateID = strings.TrimSpace(affiliateID)
	if affiliateID == "" {
		return models.CommissionRecord{}, fmt.Errorf("%w: affiliate id is required", ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return models.CommissionRecord{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	mode := c.setting.Mode()
	rate := ResolveCommissionRate(mode, c.tiers, snapshot.Tier, c.setting.Rate)
	base := amount.Mul(rate).Div(hundred)

	bonusRate := ResolveVolumeBonus(c.setting.VolumeBonuses, snapshot.TotalSales, amount)
	volumeBonus := amount.Mul(bonusRate).Div(hundred)

	tierBonus := decimal.Zero
	if mode == constants.CommissionModeMultiTier && snapshot.Tier != nil && c.tiers != nil {
		if tier, ok := c.tiers.GetTier(*snapshot.Tier); ok && tier.HasBonus() {
			tierBonus = *tier.Bonus
		}
	}

	total := clampCommission(base.Add(volumeBonus).Add(tierBonus), c.setting.Minimum, c.setting.Maximum)
	if options == nil {
		options = models.JSON{}
	}
	return models.CommissionRecord{
		ID:              c.newID(),
		AffiliateID:     affiliateID,
		Amount:          amount,
		CommissionRate:  rate,
		BaseCommission:  base,
		VolumeBonus:     volumeBonus,
		TierBonus:       tierBonus,
		TotalCommission: total,
		Timestamp:       c.now().UTC(),
		Options:         options.Clone(),
	}, nil
}

// clampCommission 先应用下限再应用上限，0 表示不限制
func clampCommission(raw, minimum, maximum decimal.Decimal) decimal.Decimal {
	result := raw
	if minimum.IsPositive() && result.LessThan(minimum) {
		result = minimum
	}
	if maximum.IsPositive() && result.GreaterThan(maximum) {
		result = maximum
	}
	return result
}
