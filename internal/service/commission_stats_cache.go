package service

import (
	"context"
	"time"

	"github.com/affiliate-next/internal/cache"
)

// CommissionStatsCache 佣金统计缓存
type CommissionStatsCache interface {
	GetCommissionStats(ctx context.Context, key string) (*CommissionStats, bool, error)
	SetCommissionStats(ctx context.Context, key string, stats CommissionStats, ttl time.Duration) error
}

// RedisCommissionStatsCache 基于 Redis 的统计缓存
type RedisCommissionStatsCache struct {
	store *cache.Store
}

// NewRedisCommissionStatsCache 创建 Redis 统计缓存，未启用时返回 nil
func NewRedisCommissionStatsCache(store *cache.Store) *RedisCommissionStatsCache {
	if !store.Enabled() {
		return nil
	}
	return &RedisCommissionStatsCache{store: store}
}

// GetCommissionStats 读取缓存
func (c *RedisCommissionStatsCache) GetCommissionStats(ctx context.Context, key string) (*CommissionStats, bool, error) {
	var stats CommissionStats
	hit, err := c.store.GetJSON(ctx, key, &stats)
	if err != nil || !hit {
		return nil, false, err
	}
	if stats.MonthlyBreakdown == nil {
		stats.MonthlyBreakdown = make(map[string]MonthlyCommissionBucket)
	}
	return &stats, true, nil
}

// SetCommissionStats 写入缓存
func (c *RedisCommissionStatsCache) SetCommissionStats(ctx context.Context, key string, stats CommissionStats, ttl time.Duration) error {
	stats.TierInfo = nil
	return c.store.SetJSON(ctx, key, stats, ttl)
}
