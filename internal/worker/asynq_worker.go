package worker

import (
	"context"
	"errors"

	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/provider"
	"github.com/affiliate-next/internal/queue"
	"github.com/affiliate-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskAffiliateStatsUpdate, c.handleAffiliateStatsUpdate)
}

func (c *Consumer) handleAffiliateStatsUpdate(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_affiliate_stats_update_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseAffiliateStatsUpdatePayload(task.Payload())
	if err != nil {
		// 载荷无法解析时重试没有意义
		logger.Warnw("worker_affiliate_stats_update_invalid_payload", "error", err)
		return nil
	}
	if c.AffiliateStatsStore == nil {
		logger.Warnw("worker_affiliate_stats_update_skip_store_nil", "affiliate_id", payload.AffiliateID)
		return nil
	}
	delta := service.AffiliateStatsDelta{
		AffiliateID:     payload.AffiliateID,
		AmountDelta:     payload.AmountDelta,
		CommissionDelta: payload.CommissionDelta,
		CommissionID:    payload.CommissionID,
		TransactionID:   payload.TransactionID,
	}
	if err := c.AffiliateStatsStore.UpdateAffiliateStats(ctx, delta); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			logger.Debugw("worker_affiliate_stats_update_skip_not_found",
				"affiliate_id", payload.AffiliateID,
				"commission_id", payload.CommissionID,
			)
			return nil
		}
		logger.Warnw("worker_affiliate_stats_update_failed",
			"affiliate_id", payload.AffiliateID,
			"commission_id", payload.CommissionID,
			"error", err,
		)
		return err
	}
	return nil
}
