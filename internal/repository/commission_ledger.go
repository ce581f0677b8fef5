package repository

import (
	"errors"

	"github.com/affiliate-next/internal/models"
)

// ErrDuplicateCommissionRecord 佣金记录ID重复
var ErrDuplicateCommissionRecord = errors.New("duplicate commission record id")

// CommissionLedger 只追加的佣金账本
//
// 实现不做内部加锁，并发访问由调用方（佣金引擎）串行化。
type CommissionLedger interface {
	// Append 追加记录，ID 重复时返回 ErrDuplicateCommissionRecord 且不写入任何数据
	Append(record models.CommissionRecord) error
	// Query 按时间倒序返回推广用户的记录，时间相同按写入顺序
	Query(affiliateID string, filter CommissionLedgerFilter) (CommissionLedgerPage, error)
	// Clear 清空账本
	Clear() error
}

// CommissionLedgerVersioner 多实例共享的账本，提供推广用户维度的写入版本
type CommissionLedgerVersioner interface {
	// AffiliateVersion 返回推广用户最新写入序号，每次追加后单调递增
	AffiliateVersion(affiliateID string) (uint64, error)
}

func inDateRange(record models.CommissionRecord, filter CommissionLedgerFilter) bool {
	if filter.StartDate != nil && record.Timestamp.Before(*filter.StartDate) {
		return false
	}
	if filter.EndDate != nil && record.Timestamp.After(*filter.EndDate) {
		return false
	}
	return true
}
