package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AffiliateProfile 推广用户档案（佣金引擎只读取其快照）
type AffiliateProfile struct {
	ID               string          `gorm:"type:varchar(64);primaryKey" json:"id"`                           // 推广用户ID
	Name             string          `gorm:"type:varchar(120)" json:"name"`                                   // 名称
	Email            string          `gorm:"type:varchar(255);index" json:"email"`                            // 邮箱
	Tier             int             `gorm:"not null;default:0" json:"tier"`                                  // 佣金等级（0 表示未分级）
	TotalSales       decimal.Decimal `gorm:"type:decimal(30,12);not null;default:0" json:"total_sales"`       // 累计销售额
	TotalCommissions decimal.Decimal `gorm:"type:decimal(30,12);not null;default:0" json:"total_commissions"` // 累计佣金
	Status           string          `gorm:"type:varchar(20);not null;index" json:"status"`                   // 状态
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`                                         // 创建时间
	UpdatedAt        time.Time       `gorm:"index" json:"updated_at"`                                         // 更新时间
}

// TableName 指定表名
func (AffiliateProfile) TableName() string {
	return "affiliate_profiles"
}

// Snapshot 转换为佣金计算快照
func (p AffiliateProfile) Snapshot() AffiliateSnapshot {
	snapshot := AffiliateSnapshot{
		ID:               p.ID,
		TotalSales:       p.TotalSales,
		TotalCommissions: p.TotalCommissions,
		Status:           p.Status,
	}
	if p.Tier > 0 {
		tier := p.Tier
		snapshot.Tier = &tier
	}
	return snapshot
}
