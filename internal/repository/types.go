package repository

import (
	"time"

	"github.com/affiliate-next/internal/models"
)

// CommissionLedgerFilter 佣金账本查询条件
type CommissionLedgerFilter struct {
	StartDate *time.Time // 起始时间（含）
	EndDate   *time.Time // 截止时间（含）
	Limit     int
	Offset    int
}

// CommissionLedgerPage 佣金账本分页结果
type CommissionLedgerPage struct {
	Records []models.CommissionRecord
	Total   int64
	Limit   int
	Offset  int
	HasMore bool
}

// AffiliateProfileListFilter 推广用户列表过滤条件
type AffiliateProfileListFilter struct {
	Page     int
	PageSize int
	Status   string
	Tier     int
}
