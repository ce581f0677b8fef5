package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionLedgerEntry 佣金账本落库行
type CommissionLedgerEntry struct {
	Seq             uint64          `gorm:"primaryKey;autoIncrement" json:"seq"`                                                     // 写入顺序
	RecordID        string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"record_id"`                                  // 佣金记录ID
	AffiliateID     string          `gorm:"type:varchar(64);not null;index:idx_commission_ledger_affiliate_day" json:"affiliate_id"` // 推广用户ID
	DayBucket       string          `gorm:"type:varchar(10);not null;index:idx_commission_ledger_affiliate_day" json:"day_bucket"`   // 自然日分桶
	Amount          decimal.Decimal `gorm:"type:decimal(30,12);not null" json:"amount"`                                              // 销售金额
	CommissionRate  decimal.Decimal `gorm:"type:decimal(20,10);not null" json:"commission_rate"`                                     // 生效比例
	BaseCommission  decimal.Decimal `gorm:"type:decimal(30,12);not null" json:"base_commission"`                                     // 基础佣金
	VolumeBonus     decimal.Decimal `gorm:"type:decimal(30,12);not null" json:"volume_bonus"`                                        // 销量奖励
	TierBonus       decimal.Decimal `gorm:"type:decimal(30,12);not null" json:"tier_bonus"`                                          // 等级奖励
	TotalCommission decimal.Decimal `gorm:"type:decimal(30,12);not null" json:"total_commission"`                                    // 最终佣金
	Options         JSON            `gorm:"type:json" json:"options"`                                                                // 附加参数
	Timestamp       time.Time       `gorm:"not null;index" json:"timestamp"`                                                         // 佣金时间
}

// TableName 指定表名
func (CommissionLedgerEntry) TableName() string {
	return "commission_ledger_entries"
}

// NewCommissionLedgerEntry 由佣金记录构建落库行
func NewCommissionLedgerEntry(record CommissionRecord) CommissionLedgerEntry {
	return CommissionLedgerEntry{
		RecordID:        record.ID,
		AffiliateID:     record.AffiliateID,
		DayBucket:       record.DayBucket(),
		Amount:          record.Amount,
		CommissionRate:  record.CommissionRate,
		BaseCommission:  record.BaseCommission,
		VolumeBonus:     record.VolumeBonus,
		TierBonus:       record.TierBonus,
		TotalCommission: record.TotalCommission,
		Options:         record.Options.Clone(),
		Timestamp:       record.Timestamp.UTC(),
	}
}

// ToRecord 还原为佣金记录
func (e CommissionLedgerEntry) ToRecord() CommissionRecord {
	return CommissionRecord{
		ID:              e.RecordID,
		AffiliateID:     e.AffiliateID,
		Amount:          e.Amount,
		CommissionRate:  e.CommissionRate,
		BaseCommission:  e.BaseCommission,
		VolumeBonus:     e.VolumeBonus,
		TierBonus:       e.TierBonus,
		TotalCommission: e.TotalCommission,
		Timestamp:       e.Timestamp,
		Options:         e.Options,
	}
}
