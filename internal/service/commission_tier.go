package service

import (
	"fmt"
	"strings"

	"github.com/affiliate-next/internal/models"
)

// TierRegistry 佣金等级注册表
//
// 不做内部加锁，由佣金引擎统一串行化写入。
type TierRegistry struct {
	tiers   []models.TierDefinition
	byLevel map[int]int
}

// NewTierRegistry 创建佣金等级注册表
func NewTierRegistry(tiers []models.TierDefinition) (*TierRegistry, error) {
	registry := &TierRegistry{byLevel: map[int]int{}}
	if err := registry.SetTiers(tiers); err != nil {
		return nil, err
	}
	return registry, nil
}

// SetTiers 整体替换等级结构，校验失败时保持原结构不变
func (r *TierRegistry) SetTiers(tiers []models.TierDefinition) error {
	normalized := normalizeTierDefinitions(tiers)
	if err := ValidateTierDefinitions(normalized); err != nil {
		return err
	}
	byLevel := make(map[int]int, len(normalized))
	for i, tier := range normalized {
		byLevel[tier.Level] = i
	}
	r.tiers = normalized
	r.byLevel = byLevel
	return nil
}

// GetTier 按等级获取定义
func (r *TierRegistry) GetTier(level int) (models.TierDefinition, bool) {
	if r == nil {
		return models.TierDefinition{}, false
	}
	idx, ok := r.byLevel[level]
	if !ok {
		return models.TierDefinition{}, false
	}
	return cloneTierDefinition(r.tiers[idx]), true
}

// ListTiers 按写入顺序返回等级副本
func (r *TierRegistry) ListTiers() []models.TierDefinition {
	if r == nil {
		return []models.TierDefinition{}
	}
	return normalizeTierDefinitions(r.tiers)
}

// Clear 清空等级结构
func (r *TierRegistry) Clear() {
	r.tiers = []models.TierDefinition{}
	r.byLevel = map[int]int{}
}

// ValidateTierDefinitions 校验等级结构
func ValidateTierDefinitions(tiers []models.TierDefinition) error {
	seen := make(map[int]struct{}, len(tiers))
	for i, tier := range tiers {
		if tier.Level < 1 {
			return fmt.Errorf("%w: tier #%d level must be >= 1", ErrTierStructureInvalid, i+1)
		}
		if !isPercent(tier.Rate) {
			return fmt.Errorf("%w: tier %d rate must be between 0 and 100", ErrTierStructureInvalid, tier.Level)
		}
		if strings.TrimSpace(tier.Name) == "" {
			return fmt.Errorf("%w: tier %d name is required", ErrTierStructureInvalid, tier.Level)
		}
		if tier.Bonus != nil && tier.Bonus.IsNegative() {
			return fmt.Errorf("%w: tier %d bonus must not be negative", ErrTierStructureInvalid, tier.Level)
		}
		if _, ok := seen[tier.Level]; ok {
			return fmt.Errorf("%w: duplicate tier level %d", ErrTierStructureInvalid, tier.Level)
		}
		seen[tier.Level] = struct{}{}
	}
	return nil
}

func normalizeTierDefinitions(tiers []models.TierDefinition) []models.TierDefinition {
	result := make([]models.TierDefinition, 0, len(tiers))
	for _, tier := range tiers {
		item := cloneTierDefinition(tier)
		item.Name = strings.TrimSpace(item.Name)
		result = append(result, item)
	}
	return result
}

func cloneTierDefinition(tier models.TierDefinition) models.TierDefinition {
	if tier.Bonus != nil {
		bonus := *tier.Bonus
		tier.Bonus = &bonus
	}
	return tier
}
