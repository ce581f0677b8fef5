package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/queue"
	"github.com/affiliate-next/internal/repository"

	"github.com/shopspring/decimal"
)

// AffiliateSnapshotProvider 推广用户快照来源
type AffiliateSnapshotProvider interface {
	GetAffiliateSnapshot(ctx context.Context, affiliateID string) (models.AffiliateSnapshot, error)
}

// AffiliateStatsDelta 一次佣金入账带来的累计数据增量
type AffiliateStatsDelta struct {
	AffiliateID     string
	AmountDelta     decimal.Decimal
	CommissionDelta decimal.Decimal
	CommissionID    string
	TransactionID   string
}

// AffiliateStatsUpdater 推广用户累计数据更新（尽力而为）
type AffiliateStatsUpdater interface {
	UpdateAffiliateStats(ctx context.Context, delta AffiliateStatsDelta) error
}

// RepositoryAffiliateSnapshotProvider 基于推广用户仓储的快照来源
type RepositoryAffiliateSnapshotProvider struct {
	repo repository.AffiliateRepository
}

// NewRepositoryAffiliateSnapshotProvider 创建仓储快照来源
func NewRepositoryAffiliateSnapshotProvider(repo repository.AffiliateRepository) *RepositoryAffiliateSnapshotProvider {
	return &RepositoryAffiliateSnapshotProvider{repo: repo}
}

// GetAffiliateSnapshot 获取推广用户快照
func (p *RepositoryAffiliateSnapshotProvider) GetAffiliateSnapshot(_ context.Context, affiliateID string) (models.AffiliateSnapshot, error) {
	profile, err := p.repo.GetProfileByID(affiliateID)
	if err != nil {
		return models.AffiliateSnapshot{}, err
	}
	if profile == nil {
		return models.AffiliateSnapshot{}, fmt.Errorf("%w: affiliate %s", ErrNotFound, affiliateID)
	}
	return profile.Snapshot(), nil
}

// RepositoryAffiliateStatsUpdater 直接写库的累计数据更新
type RepositoryAffiliateStatsUpdater struct {
	repo repository.AffiliateRepository
	now  func() time.Time
}

// NewRepositoryAffiliateStatsUpdater 创建直接写库的累计数据更新
func NewRepositoryAffiliateStatsUpdater(repo repository.AffiliateRepository) *RepositoryAffiliateStatsUpdater {
	return &RepositoryAffiliateStatsUpdater{repo: repo, now: time.Now}
}

// UpdateAffiliateStats 累加推广用户的销售额与佣金
func (u *RepositoryAffiliateStatsUpdater) UpdateAffiliateStats(_ context.Context, delta AffiliateStatsDelta) error {
	affected, err := u.repo.ApplyStatsDelta(delta.AffiliateID, delta.AmountDelta, delta.CommissionDelta, u.now())
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: affiliate %s", ErrNotFound, delta.AffiliateID)
	}
	return nil
}

// QueueAffiliateStatsUpdater 通过异步队列更新累计数据
type QueueAffiliateStatsUpdater struct {
	client *queue.Client
}

// NewQueueAffiliateStatsUpdater 创建队列累计数据更新
func NewQueueAffiliateStatsUpdater(client *queue.Client) *QueueAffiliateStatsUpdater {
	return &QueueAffiliateStatsUpdater{client: client}
}

// UpdateAffiliateStats 推送累计数据更新任务
func (u *QueueAffiliateStatsUpdater) UpdateAffiliateStats(_ context.Context, delta AffiliateStatsDelta) error {
	if strings.TrimSpace(delta.AffiliateID) == "" {
		return fmt.Errorf("%w: affiliate id is required", ErrInvalidInput)
	}
	return u.client.EnqueueAffiliateStatsUpdate(queue.AffiliateStatsUpdatePayload{
		AffiliateID:     delta.AffiliateID,
		AmountDelta:     delta.AmountDelta,
		CommissionDelta: delta.CommissionDelta,
		CommissionID:    delta.CommissionID,
		TransactionID:   delta.TransactionID,
	})
}
