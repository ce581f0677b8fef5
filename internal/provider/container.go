package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/affiliate-next/internal/authz"
	"github.com/affiliate-next/internal/cache"
	"github.com/affiliate-next/internal/config"
	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/queue"
	"github.com/affiliate-next/internal/repository"
	"github.com/affiliate-next/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	Cache       *cache.Store
	QueueClient *queue.Client

	// Repositories
	AffiliateRepo    repository.AffiliateRepository
	CommissionLedger repository.CommissionLedger

	// Services
	AdminTokenService   *service.AdminTokenService
	AuthzService        *authz.Service
	AffiliateService    *service.AffiliateService
	AffiliateStatsStore service.AffiliateStatsUpdater
	CommissionEngine    *service.CommissionEngine
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config, db *gorm.DB) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if db == nil {
		return nil, errors.New("database is nil")
	}

	// 初始化缓存
	store := cache.NewStore(&cfg.Redis)
	if store.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := store.Ping(ctx); err != nil {
			logger.Warnw("provider_redis_ping_failed", "error", err)
		}
		cancel()
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		DB:          db,
		Cache:       store,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	c.AffiliateRepo = repository.NewAffiliateRepository(c.DB)
	switch ledgerDriver(c.Config) {
	case constants.CommissionLedgerDriverDatabase:
		c.CommissionLedger = repository.NewGormCommissionLedger(c.DB)
	default:
		c.CommissionLedger = repository.NewMemoryCommissionLedger()
	}
}

func (c *Container) initServices() error {
	c.AdminTokenService = service.NewAdminTokenService(c.Config.JWT.SecretKey, c.Config.JWT.ExpireHours)
	authzService, err := authz.NewService(c.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		return err
	}
	if err := authzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_authz_roles_failed", "error", err)
		return err
	}
	if err := authzService.BootstrapOperators(c.Config.Authz.OperatorRoles); err != nil {
		logger.Errorw("provider_bootstrap_authz_operators_failed", "error", err)
		return err
	}
	c.AuthzService = authzService
	c.AffiliateService = service.NewAffiliateService(c.AffiliateRepo)
	c.AffiliateStatsStore = service.NewRepositoryAffiliateStatsUpdater(c.AffiliateRepo)

	// 队列启用时累计数据由 worker 异步写入
	var statsUpdater service.AffiliateStatsUpdater = c.AffiliateStatsStore
	if c.QueueClient.Enabled() {
		statsUpdater = service.NewQueueAffiliateStatsUpdater(c.QueueClient)
	}

	options := []service.CommissionEngineOption{
		service.WithAffiliateSnapshotProvider(service.NewRepositoryAffiliateSnapshotProvider(c.AffiliateRepo)),
		service.WithAffiliateStatsUpdater(statsUpdater),
		service.WithEngineLogger(logger.SW("component", "commission_engine")),
		service.WithPurgeOnShutdown(ledgerDriver(c.Config) != constants.CommissionLedgerDriverDatabase),
	}
	if statsCache := service.NewRedisCommissionStatsCache(c.Cache); statsCache != nil {
		ttl := time.Duration(c.Config.Commission.StatsCacheTTLSeconds) * time.Second
		if ttl > 0 {
			options = append(options, service.WithCommissionStatsCache(statsCache, ttl))
		}
	}

	engine, err := service.NewCommissionEngine(service.CommissionSettingFromConfig(c.Config.Commission), c.CommissionLedger, options...)
	if err != nil {
		logger.Errorw("provider_init_commission_engine_failed", "error", err)
		return err
	}
	engine.Subscribe(service.NewLoggingEventListener(logger.SW("component", "commission_events")))
	c.CommissionEngine = engine
	return nil
}

// Close 释放容器持有的资源
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.CommissionEngine != nil {
		if err := c.CommissionEngine.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.QueueClient.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Cache.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func ledgerDriver(cfg *config.Config) string {
	if cfg == nil {
		return constants.CommissionLedgerDriverMemory
	}
	return strings.ToLower(strings.TrimSpace(cfg.Commission.Ledger.Driver))
}
