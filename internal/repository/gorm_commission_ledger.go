package repository

import (
	"fmt"
	"strings"

	"github.com/affiliate-next/internal/models"

	"gorm.io/gorm"
)

// GormCommissionLedger 基于数据库的佣金账本
type GormCommissionLedger struct {
	db *gorm.DB
}

// NewGormCommissionLedger 创建数据库佣金账本
func NewGormCommissionLedger(db *gorm.DB) *GormCommissionLedger {
	return &GormCommissionLedger{db: db}
}

// Append 追加佣金记录
func (l *GormCommissionLedger) Append(record models.CommissionRecord) error {
	id := strings.TrimSpace(record.ID)
	if id == "" {
		return fmt.Errorf("commission record id is empty")
	}
	entry := models.NewCommissionLedgerEntry(record)
	return l.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.CommissionLedgerEntry{}).Where("record_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateCommissionRecord, id)
		}
		return tx.Create(&entry).Error
	})
}

// Query 查询推广用户的佣金记录
func (l *GormCommissionLedger) Query(affiliateID string, filter CommissionLedgerFilter) (CommissionLedgerPage, error) {
	limit, offset := NormalizeLedgerWindow(filter.Limit, filter.Offset)
	page := CommissionLedgerPage{Records: []models.CommissionRecord{}, Limit: limit, Offset: offset}

	query := l.db.Model(&models.CommissionLedgerEntry{}).Where("affiliate_id = ?", affiliateID)
	if filter.StartDate != nil {
		query = query.Where("timestamp >= ?", filter.StartDate.UTC())
	}
	if filter.EndDate != nil {
		query = query.Where("timestamp <= ?", filter.EndDate.UTC())
	}
	if err := query.Count(&page.Total).Error; err != nil {
		return page, err
	}
	page.HasMore = hasMorePages(limit, offset, page.Total)
	if int64(offset) >= page.Total {
		return page, nil
	}

	var entries []models.CommissionLedgerEntry
	if err := query.Order("timestamp desc").Order("seq asc").Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		return page, err
	}
	for _, entry := range entries {
		page.Records = append(page.Records, entry.ToRecord())
	}
	return page, nil
}

// AffiliateVersion 返回推广用户最大写入序号，无记录时为 0
func (l *GormCommissionLedger) AffiliateVersion(affiliateID string) (uint64, error) {
	var version uint64
	err := l.db.Model(&models.CommissionLedgerEntry{}).
		Where("affiliate_id = ?", affiliateID).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&version).Error
	if err != nil {
		return 0, err
	}
	return version, nil
}

// Clear 清空账本
func (l *GormCommissionLedger) Clear() error {
	return l.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CommissionLedgerEntry{}).Error
}
