package repository

import (
	"github.com/affiliate-next/internal/constants"

	"gorm.io/gorm"
)

// applyPagination 应用分页参数，统一处理非法页码与偏移量。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize
	if offset < 0 {
		offset = 0
	}
	return query.Limit(pageSize).Offset(offset)
}

// NormalizeLedgerWindow 归一化账本分页窗口：limit 为 0 时取默认值，其余裁剪到 [1,1000]，offset 不小于 0。
func NormalizeLedgerWindow(limit, offset int) (int, int) {
	switch {
	case limit == 0:
		limit = constants.CommissionHistoryDefaultLimit
	case limit < 1:
		limit = 1
	case limit > constants.CommissionHistoryMaxLimit:
		limit = constants.CommissionHistoryMaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// hasMorePages offset+limit 未覆盖全部记录时返回 true
func hasMorePages(limit, offset int, total int64) bool {
	return int64(offset)+int64(limit) < total
}
