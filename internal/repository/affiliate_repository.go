package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/affiliate-next/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AffiliateRepository 推广用户数据访问接口
type AffiliateRepository interface {
	GetProfileByID(id string) (*models.AffiliateProfile, error)
	CreateProfile(profile *models.AffiliateProfile) error
	UpdateProfileTier(id string, tier int, updatedAt time.Time) error
	ListProfiles(filter AffiliateProfileListFilter) ([]models.AffiliateProfile, int64, error)
	ApplyStatsDelta(id string, amountDelta, commissionDelta decimal.Decimal, updatedAt time.Time) (int64, error)
}

// GormAffiliateRepository GORM 推广用户仓储
type GormAffiliateRepository struct {
	db *gorm.DB
}

// NewAffiliateRepository 创建推广用户仓储
func NewAffiliateRepository(db *gorm.DB) *GormAffiliateRepository {
	return &GormAffiliateRepository{db: db}
}

// GetProfileByID 按ID获取推广档案
func (r *GormAffiliateRepository) GetProfileByID(id string) (*models.AffiliateProfile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var profile models.AffiliateProfile
	if err := r.db.Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// CreateProfile 创建推广档案
func (r *GormAffiliateRepository) CreateProfile(profile *models.AffiliateProfile) error {
	return r.db.Create(profile).Error
}

// UpdateProfileTier 更新推广用户等级
func (r *GormAffiliateRepository) UpdateProfileTier(id string, tier int, updatedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return nil
	}
	return r.db.Model(&models.AffiliateProfile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tier":       tier,
			"updated_at": updatedAt,
		}).Error
}

// ListProfiles 分页列出推广档案
func (r *GormAffiliateRepository) ListProfiles(filter AffiliateProfileListFilter) ([]models.AffiliateProfile, int64, error) {
	query := r.db.Model(&models.AffiliateProfile{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.Tier > 0 {
		query = query.Where("tier = ?", filter.Tier)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var profiles []models.AffiliateProfile
	if err := query.Order("created_at desc").Order("id asc").Find(&profiles).Error; err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// ApplyStatsDelta 原子累加推广用户的销售额与佣金，返回受影响行数
func (r *GormAffiliateRepository) ApplyStatsDelta(id string, amountDelta, commissionDelta decimal.Decimal, updatedAt time.Time) (int64, error) {
	if strings.TrimSpace(id) == "" {
		return 0, nil
	}
	result := r.db.Model(&models.AffiliateProfile{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"total_sales":       gorm.Expr("total_sales + ?", amountDelta),
			"total_commissions": gorm.Expr("total_commissions + ?", commissionDelta),
			"updated_at":        updatedAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
