package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/affiliate-next/internal/models"

	"go.uber.org/zap"
)

// CommissionEvent 佣金引擎事件
type CommissionEvent struct {
	Name        string                   `json:"name"`
	AffiliateID string                   `json:"affiliate_id,omitempty"`
	Commission  *models.CommissionRecord `json:"commission,omitempty"`
	Transaction *TrackCommissionInput    `json:"transaction,omitempty"`
	Tiers       []models.TierDefinition  `json:"tiers,omitempty"`
	Error       string                   `json:"error,omitempty"`
	Timestamp   time.Time                `json:"timestamp"`
}

// CommissionEventListener 佣金事件订阅者
type CommissionEventListener interface {
	HandleCommissionEvent(ctx context.Context, event CommissionEvent) error
}

// CommissionEventListenerFunc 函数形式的订阅者
type CommissionEventListenerFunc func(ctx context.Context, event CommissionEvent) error

// HandleCommissionEvent 实现 CommissionEventListener
func (f CommissionEventListenerFunc) HandleCommissionEvent(ctx context.Context, event CommissionEvent) error {
	return f(ctx, event)
}

type subscription struct {
	id       uint64
	listener CommissionEventListener
}

// CommissionEventBus 同步事件总线，按订阅顺序投递
type CommissionEventBus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription
	log    *zap.SugaredLogger
}

// NewCommissionEventBus 创建事件总线
func NewCommissionEventBus(log *zap.SugaredLogger) *CommissionEventBus {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &CommissionEventBus{log: log}
}

// Subscribe 订阅事件，返回取消订阅函数
func (b *CommissionEventBus) Subscribe(listener CommissionEventListener) func() {
	if listener == nil {
		return func() {}
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, listener: listener})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, sub := range b.subs {
				if sub.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish 投递事件，订阅者的错误与 panic 只记录日志
func (b *CommissionEventBus) Publish(ctx context.Context, event CommissionEvent) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		if err := b.deliver(ctx, sub.listener, event); err != nil {
			b.log.Warnw("commission_event_listener_failed",
				"event", event.Name,
				"affiliate_id", event.AffiliateID,
				"error", err,
			)
		}
	}
}

func (b *CommissionEventBus) deliver(ctx context.Context, listener CommissionEventListener, event CommissionEvent) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("listener panic: %v", recovered)
		}
	}()
	return listener.HandleCommissionEvent(ctx, event)
}

// NewLoggingEventListener 将佣金事件写入日志
func NewLoggingEventListener(log *zap.SugaredLogger) CommissionEventListener {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return CommissionEventListenerFunc(func(_ context.Context, event CommissionEvent) error {
		fields := []interface{}{"event", event.Name}
		if event.AffiliateID != "" {
			fields = append(fields, "affiliate_id", event.AffiliateID)
		}
		if event.Commission != nil {
			fields = append(fields,
				"commission_id", event.Commission.ID,
				"total_commission", event.Commission.TotalCommission.String(),
			)
		}
		if event.Transaction != nil {
			fields = append(fields, "transaction_id", event.Transaction.TransactionID)
		}
		if len(event.Tiers) > 0 {
			fields = append(fields, "tier_count", len(event.Tiers))
		}
		if event.Error != "" {
			log.Warnw("commission_event", append(fields, "error", event.Error)...)
			return nil
		}
		log.Infow("commission_event", fields...)
		return nil
	})
}
