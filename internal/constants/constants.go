package constants

// 佣金计算模式常量
const (
	CommissionModeFlat      = "flat"
	CommissionModeMultiTier = "multi_tier"
)

// 佣金计算方式常量
const (
	CommissionCalculationPercentage = "percentage"
)

// 佣金账本驱动常量
const (
	CommissionLedgerDriverMemory   = "memory"
	CommissionLedgerDriverDatabase = "database"
)

// 佣金事件常量
const (
	EventCommissionCalculated       = "commissionCalculated"
	EventCommissionTracked          = "commissionTracked"
	EventTierStructureUpdated       = "tierStructureUpdated"
	EventAffiliateStatsUpdateFailed = "affiliateStatsUpdateFailed"
	EventShutdown                   = "shutdown"
)

// 推广用户状态常量
const (
	AffiliateStatusActive   = "active"
	AffiliateStatusDisabled = "disabled"
)

// 佣金账本分页常量
const (
	CommissionHistoryDefaultLimit = 100
	CommissionHistoryMaxLimit     = 1000
	CommissionStatsRecordLimit    = 1000
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 异步任务类型常量
const (
	TaskAffiliateStatsUpdate = "affiliate:stats_update"
)
