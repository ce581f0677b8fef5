package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const commissionTracerName = "github.com/affiliate-next/internal/service"

// TrackCommissionInput 交易入账参数
type TrackCommissionInput struct {
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	CustomerID    string          `json:"customer_id,omitempty"`
	ProductID     string          `json:"product_id,omitempty"`
	Options       models.JSON     `json:"options,omitempty"`
}

// HistoryQuery 佣金历史查询参数
type HistoryQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// StatsQuery 佣金统计查询参数
type StatsQuery struct {
	StartDate *time.Time
	EndDate   *time.Time
}

// HistoryPagination 历史分页信息
type HistoryPagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// CommissionHistory 佣金历史
type CommissionHistory struct {
	AffiliateID string                    `json:"affiliate_id"`
	History     []models.CommissionRecord `json:"history"`
	Total       int64                     `json:"total"`
	Pagination  HistoryPagination         `json:"pagination"`
}

// TierUpdateResult 等级结构更新结果
type TierUpdateResult struct {
	Success bool                    `json:"success"`
	Tiers   []models.TierDefinition `json:"tiers"`
}

// CommissionEngineOption 佣金引擎可选项
type CommissionEngineOption func(*CommissionEngine)

// WithAffiliateSnapshotProvider 设置推广用户快照来源
func WithAffiliateSnapshotProvider(provider AffiliateSnapshotProvider) CommissionEngineOption {
	return func(e *CommissionEngine) {
		e.affiliates = provider
	}
}

// WithAffiliateStatsUpdater 设置累计数据更新
func WithAffiliateStatsUpdater(updater AffiliateStatsUpdater) CommissionEngineOption {
	return func(e *CommissionEngine) {
		e.statsUpdater = updater
	}
}

// WithCommissionStatsCache 设置统计缓存
func WithCommissionStatsCache(cache CommissionStatsCache, ttl time.Duration) CommissionEngineOption {
	return func(e *CommissionEngine) {
		e.statsCache = cache
		e.statsCacheTTL = ttl
	}
}

// WithEngineLogger 设置日志
func WithEngineLogger(log *zap.SugaredLogger) CommissionEngineOption {
	return func(e *CommissionEngine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithEngineTracer 设置链路追踪
func WithEngineTracer(tracer trace.Tracer) CommissionEngineOption {
	return func(e *CommissionEngine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithEngineClock 设置时钟
func WithEngineClock(now func() time.Time) CommissionEngineOption {
	return func(e *CommissionEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRecordIDGenerator 设置佣金记录ID生成
func WithRecordIDGenerator(newID func() string) CommissionEngineOption {
	return func(e *CommissionEngine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// WithPurgeOnShutdown 关闭时是否清空账本
func WithPurgeOnShutdown(purge bool) CommissionEngineOption {
	return func(e *CommissionEngine) {
		e.purgeOnShutdown = purge
	}
}

// CommissionEngine 佣金引擎
//
// mu 串行化账本追加与等级替换；快照获取、累计更新与事件投递都在锁外进行。
type CommissionEngine struct {
	mu     sync.RWMutex
	closed bool

	setting    CommissionSetting
	tiers      *TierRegistry
	ledger     repository.CommissionLedger
	calculator *CommissionCalculator
	events     *CommissionEventBus

	affiliates    AffiliateSnapshotProvider
	statsUpdater  AffiliateStatsUpdater
	statsCache    CommissionStatsCache
	statsCacheTTL time.Duration

	instanceID      string
	ledgerVersion   atomic.Uint64
	purgeOnShutdown bool

	now    func() time.Time
	newID  func() string
	log    *zap.SugaredLogger
	tracer trace.Tracer
}

// NewCommissionEngine 创建佣金引擎
func NewCommissionEngine(setting CommissionSetting, ledger repository.CommissionLedger, opts ...CommissionEngineOption) (*CommissionEngine, error) {
	if ledger == nil {
		return nil, fmt.Errorf("%w: commission ledger is required", ErrCommissionConfigInvalid)
	}
	setting = NormalizeCommissionSetting(setting)
	if err := ValidateCommissionSetting(setting); err != nil {
		return nil, err
	}
	tiers, err := NewTierRegistry(setting.Tiers)
	if err != nil {
		return nil, err
	}

	engine := &CommissionEngine{
		setting:         setting,
		tiers:           tiers,
		ledger:          ledger,
		instanceID:      uuid.NewString(),
		purgeOnShutdown: true,
		now:             time.Now,
		newID:           uuid.NewString,
		log:             logger.S(),
		tracer:          otel.Tracer(commissionTracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(engine)
		}
	}
	engine.events = NewCommissionEventBus(engine.log)
	engine.calculator = NewCommissionCalculator(setting, tiers)
	engine.calculator.now = engine.now
	engine.calculator.newID = engine.newID

	engine.log.Infow("commission_engine_initialized",
		"mode", setting.Mode(),
		"rate", setting.Rate.String(),
		"minimum", setting.Minimum.String(),
		"maximum", setting.Maximum.String(),
		"tier_count", len(setting.Tiers),
		"volume_bonus_count", len(setting.VolumeBonuses),
	)
	return engine, nil
}

// Setting 返回引擎配置副本
func (e *CommissionEngine) Setting() CommissionSetting {
	return NormalizeCommissionSetting(e.setting)
}

// Subscribe 订阅引擎事件，返回取消订阅函数
func (e *CommissionEngine) Subscribe(listener CommissionEventListener) func() {
	return e.events.Subscribe(listener)
}

// CalculateCommission 计算并记录一笔佣金
func (e *CommissionEngine) CalculateCommission(ctx context.Context, affiliateID string, amount decimal.Decimal, options models.JSON) (*models.CommissionRecord, error) {
	ctx, span := e.tracer.Start(ctx, "CommissionEngine.CalculateCommission",
		trace.WithAttributes(attribute.String("affiliate.id", affiliateID)))
	defer span.End()

	record, err := e.calculate(ctx, affiliateID, amount, options)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("commission.id", record.ID))

	e.events.Publish(ctx, CommissionEvent{
		Name:        constants.EventCommissionCalculated,
		AffiliateID: record.AffiliateID,
		Commission:  cloneRecord(record),
		Timestamp:   e.now().UTC(),
	})
	return record, nil
}

// TrackCommission 记录交易佣金并通知更新推广用户累计数据
func (e *CommissionEngine) TrackCommission(ctx context.Context, affiliateID string, input TrackCommissionInput) (*models.CommissionRecord, error) {
	ctx, span := e.tracer.Start(ctx, "CommissionEngine.TrackCommission",
		trace.WithAttributes(
			attribute.String("affiliate.id", affiliateID),
			attribute.String("transaction.id", input.TransactionID),
		))
	defer span.End()

	input.TransactionID = strings.TrimSpace(input.TransactionID)
	if input.TransactionID == "" {
		err := fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
		recordSpanError(span, err)
		return nil, err
	}
	if !input.Amount.IsPositive() {
		err := fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
		recordSpanError(span, err)
		return nil, err
	}

	record, err := e.CalculateCommission(ctx, affiliateID, input.Amount, trackOptions(input))
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	if e.statsUpdater != nil {
		delta := AffiliateStatsDelta{
			AffiliateID:     record.AffiliateID,
			AmountDelta:     record.Amount,
			CommissionDelta: record.TotalCommission,
			CommissionID:    record.ID,
			TransactionID:   input.TransactionID,
		}
		if err := e.statsUpdater.UpdateAffiliateStats(ctx, delta); err != nil {
			e.log.Warnw("affiliate_stats_update_failed",
				"affiliate_id", record.AffiliateID,
				"commission_id", record.ID,
				"transaction_id", input.TransactionID,
				"error", err,
			)
			e.events.Publish(ctx, CommissionEvent{
				Name:        constants.EventAffiliateStatsUpdateFailed,
				AffiliateID: record.AffiliateID,
				Commission:  cloneRecord(record),
				Error:       err.Error(),
				Timestamp:   e.now().UTC(),
			})
		}
	}

	transaction := input
	transaction.Options = input.Options.Clone()
	e.events.Publish(ctx, CommissionEvent{
		Name:        constants.EventCommissionTracked,
		AffiliateID: record.AffiliateID,
		Commission:  cloneRecord(record),
		Transaction: &transaction,
		Timestamp:   e.now().UTC(),
	})
	e.log.Infow("commission_tracked",
		"affiliate_id", record.AffiliateID,
		"commission_id", record.ID,
		"transaction_id", input.TransactionID,
		"amount", record.Amount.String(),
		"total_commission", record.TotalCommission.String(),
	)
	return record, nil
}

// GetCommissionHistory 查询佣金历史
func (e *CommissionEngine) GetCommissionHistory(ctx context.Context, affiliateID string, query HistoryQuery) (*CommissionHistory, error) {
	_, span := e.tracer.Start(ctx, "CommissionEngine.GetCommissionHistory",
		trace.WithAttributes(attribute.String("affiliate.id", affiliateID)))
	defer span.End()

	affiliateID = strings.TrimSpace(affiliateID)
	if err := validateAffiliateRange(affiliateID, query.StartDate, query.EndDate); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ErrEngineShutdown
	}
	page, err := e.ledger.Query(affiliateID, repository.CommissionLedgerFilter{
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
		Limit:     query.Limit,
		Offset:    query.Offset,
	})
	e.mu.RUnlock()
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	return &CommissionHistory{
		AffiliateID: affiliateID,
		History:     page.Records,
		Total:       page.Total,
		Pagination: HistoryPagination{
			Limit:   page.Limit,
			Offset:  page.Offset,
			HasMore: page.HasMore,
		},
	}, nil
}

// GetCommissionStats 汇总最近最多 1000 条匹配记录的佣金统计
func (e *CommissionEngine) GetCommissionStats(ctx context.Context, affiliateID string, query StatsQuery) (*CommissionStats, error) {
	ctx, span := e.tracer.Start(ctx, "CommissionEngine.GetCommissionStats",
		trace.WithAttributes(attribute.String("affiliate.id", affiliateID)))
	defer span.End()

	affiliateID = strings.TrimSpace(affiliateID)
	if err := validateAffiliateRange(affiliateID, query.StartDate, query.EndDate); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	stats, err := e.loadStats(ctx, affiliateID, query)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	stats.AffiliateID = affiliateID

	if e.setting.MultiTier {
		snapshot := e.resolveSnapshot(ctx, affiliateID)
		if snapshot.Tier != nil {
			e.mu.RLock()
			tier, ok := e.tiers.GetTier(*snapshot.Tier)
			e.mu.RUnlock()
			if ok {
				stats.TierInfo = &tier
			}
		}
	}
	return stats, nil
}

// UpdateTierStructure 整体替换等级结构
func (e *CommissionEngine) UpdateTierStructure(ctx context.Context, tiers []models.TierDefinition) (*TierUpdateResult, error) {
	ctx, span := e.tracer.Start(ctx, "CommissionEngine.UpdateTierStructure",
		trace.WithAttributes(attribute.Int("tier.count", len(tiers))))
	defer span.End()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineShutdown
	}
	if err := e.tiers.SetTiers(tiers); err != nil {
		e.mu.Unlock()
		recordSpanError(span, err)
		return nil, err
	}
	updated := e.tiers.ListTiers()
	e.mu.Unlock()

	e.events.Publish(ctx, CommissionEvent{
		Name:      constants.EventTierStructureUpdated,
		Tiers:     updated,
		Timestamp: e.now().UTC(),
	})
	e.log.Infow("commission_tier_structure_updated", "tier_count", len(updated))
	return &TierUpdateResult{Success: true, Tiers: normalizeTierDefinitions(updated)}, nil
}

// TierStructure 当前等级结构
func (e *CommissionEngine) TierStructure() []models.TierDefinition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tiers.ListTiers()
}

// Shutdown 关闭引擎，之后的调用返回 ErrEngineShutdown
func (e *CommissionEngine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	var clearErr error
	if e.purgeOnShutdown {
		clearErr = e.ledger.Clear()
	}
	e.tiers.Clear()
	e.ledgerVersion.Add(1)
	e.mu.Unlock()

	if clearErr != nil {
		e.log.Errorw("commission_ledger_clear_failed", "error", clearErr)
	}
	e.events.Publish(ctx, CommissionEvent{
		Name:      constants.EventShutdown,
		Timestamp: e.now().UTC(),
	})
	e.log.Infow("commission_engine_shutdown", "purged", e.purgeOnShutdown)
	return clearErr
}

func (e *CommissionEngine) calculate(ctx context.Context, affiliateID string, amount decimal.Decimal, options models.JSON) (*models.CommissionRecord, error) {
	affiliateID = strings.TrimSpace(affiliateID)
	if affiliateID == "" {
		return nil, fmt.Errorf("%w: affiliate id is required", ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if e.isClosed() {
		return nil, ErrEngineShutdown
	}

	snapshot := e.resolveSnapshot(ctx, affiliateID)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineShutdown
	}
	record, err := e.calculator.Compute(affiliateID, amount, snapshot, options)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if err := e.ledger.Append(record); err != nil {
		e.mu.Unlock()
		if errors.Is(err, repository.ErrDuplicateCommissionRecord) {
			e.log.Errorw("commission_ledger_invariant_violation", "commission_id", record.ID, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrInvariantViolation, err)
		}
		return nil, err
	}
	e.ledgerVersion.Add(1)
	e.mu.Unlock()

	e.log.Debugw("commission_calculated",
		"affiliate_id", record.AffiliateID,
		"commission_id", record.ID,
		"rate", record.CommissionRate.String(),
		"total_commission", record.TotalCommission.String(),
	)
	return &record, nil
}

func (e *CommissionEngine) loadStats(ctx context.Context, affiliateID string, query StatsQuery) (*CommissionStats, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ErrEngineShutdown
	}
	cacheKey, cacheable := e.statsCacheKey(affiliateID, query)
	e.mu.RUnlock()

	if cacheable {
		cached, hit, err := e.statsCache.GetCommissionStats(ctx, cacheKey)
		if err != nil {
			e.log.Warnw("commission_stats_cache_get_failed", "affiliate_id", affiliateID, "error", err)
		}
		if hit && cached != nil {
			return cached, nil
		}
	}

	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ErrEngineShutdown
	}
	// 版本须在查询前读取，并发追加只会让缓存键落后于数据
	cacheKey, cacheable = e.statsCacheKey(affiliateID, query)
	page, err := e.ledger.Query(affiliateID, repository.CommissionLedgerFilter{
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
		Limit:     constants.CommissionStatsRecordLimit,
	})
	e.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	stats := SummarizeCommissions(page.Records)
	if cacheable {
		if err := e.statsCache.SetCommissionStats(ctx, cacheKey, stats, e.statsCacheTTL); err != nil {
			e.log.Warnw("commission_stats_cache_set_failed", "affiliate_id", affiliateID, "error", err)
		}
	}
	return &stats, nil
}

// statsCacheKey 共享账本按推广用户写入版本生成缓存键，多实例间一致；
// 进程内账本按实例与本地版本生成
func (e *CommissionEngine) statsCacheKey(affiliateID string, query StatsQuery) (string, bool) {
	if e.statsCache == nil {
		return "", false
	}
	scope := fmt.Sprintf("%s:%d", e.instanceID, e.ledgerVersion.Load())
	if versioner, ok := e.ledger.(repository.CommissionLedgerVersioner); ok {
		version, err := versioner.AffiliateVersion(affiliateID)
		if err != nil {
			e.log.Warnw("commission_stats_cache_version_failed", "affiliate_id", affiliateID, "error", err)
			return "", false
		}
		scope = fmt.Sprintf("shared:%d", version)
	}
	return fmt.Sprintf("commission:stats:%s:%s:%s:%s",
		scope,
		affiliateID,
		formatBound(query.StartDate),
		formatBound(query.EndDate),
	), true
}

func (e *CommissionEngine) resolveSnapshot(ctx context.Context, affiliateID string) models.AffiliateSnapshot {
	if e.affiliates == nil {
		return models.NeutralAffiliateSnapshot(affiliateID)
	}
	snapshot, err := e.affiliates.GetAffiliateSnapshot(ctx, affiliateID)
	if err != nil {
		e.log.Warnw("affiliate_snapshot_fallback", "affiliate_id", affiliateID, "error", err)
		return models.NeutralAffiliateSnapshot(affiliateID)
	}
	if snapshot.ID == "" {
		snapshot.ID = affiliateID
	}
	return snapshot
}

func (e *CommissionEngine) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

func validateAffiliateRange(affiliateID string, start, end *time.Time) error {
	if affiliateID == "" {
		return fmt.Errorf("%w: affiliate id is required", ErrInvalidInput)
	}
	if start != nil && end != nil && start.After(*end) {
		return fmt.Errorf("%w: start date is after end date", ErrInvalidInput)
	}
	return nil
}

func trackOptions(input TrackCommissionInput) models.JSON {
	options := input.Options.Clone()
	if options == nil {
		options = models.JSON{}
	}
	options["transaction_id"] = input.TransactionID
	if customerID := strings.TrimSpace(input.CustomerID); customerID != "" {
		options["customer_id"] = customerID
	}
	if productID := strings.TrimSpace(input.ProductID); productID != "" {
		options["product_id"] = productID
	}
	return options
}

func cloneRecord(record *models.CommissionRecord) *models.CommissionRecord {
	if record == nil {
		return nil
	}
	cloned := *record
	cloned.Options = record.Options.Clone()
	return &cloned
}

func formatBound(value *time.Time) string {
	if value == nil {
		return "-"
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
