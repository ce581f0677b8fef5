package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AffiliateService 推广用户档案服务（为佣金引擎提供快照数据）
type AffiliateService struct {
	repo repository.AffiliateRepository
}

// NewAffiliateService 创建推广用户档案服务
func NewAffiliateService(repo repository.AffiliateRepository) *AffiliateService {
	return &AffiliateService{repo: repo}
}

// CreateAffiliateInput 创建推广用户参数
type CreateAffiliateInput struct {
	ID         string
	Name       string
	Email      string
	Tier       int
	TotalSales decimal.Decimal
	Status     string
}

// CreateAffiliate 创建推广用户档案
func (s *AffiliateService) CreateAffiliate(input CreateAffiliateInput) (*models.AffiliateProfile, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if input.Tier < 0 {
		return nil, fmt.Errorf("%w: tier must not be negative", ErrInvalidInput)
	}
	if input.TotalSales.IsNegative() {
		return nil, fmt.Errorf("%w: total sales must not be negative", ErrInvalidInput)
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = constants.AffiliateStatusActive
	}
	if status != constants.AffiliateStatusActive && status != constants.AffiliateStatusDisabled {
		return nil, fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, status)
	}

	existing, err := s.repo.GetProfileByID(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAffiliateExists
	}

	now := time.Now()
	profile := &models.AffiliateProfile{
		ID:               id,
		Name:             strings.TrimSpace(input.Name),
		Email:            strings.TrimSpace(input.Email),
		Tier:             input.Tier,
		TotalSales:       input.TotalSales,
		TotalCommissions: decimal.Zero,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateProfile(profile); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAffiliateExists
		}
		return nil, err
	}
	return profile, nil
}

// GetAffiliate 获取推广用户档案
func (s *AffiliateService) GetAffiliate(id string) (*models.AffiliateProfile, error) {
	profile, err := s.repo.GetProfileByID(strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	return profile, nil
}

// UpdateAffiliateTier 调整推广用户等级
func (s *AffiliateService) UpdateAffiliateTier(id string, tier int) (*models.AffiliateProfile, error) {
	if tier < 0 {
		return nil, fmt.Errorf("%w: tier must not be negative", ErrInvalidInput)
	}
	profile, err := s.GetAffiliate(id)
	if err != nil {
		return nil, err
	}
	if profile.Tier == tier {
		return profile, nil
	}
	if err := s.repo.UpdateProfileTier(profile.ID, tier, time.Now()); err != nil {
		return nil, err
	}
	return s.GetAffiliate(profile.ID)
}

// ListAffiliates 分页列出推广用户
func (s *AffiliateService) ListAffiliates(filter repository.AffiliateProfileListFilter) ([]models.AffiliateProfile, int64, error) {
	return s.repo.ListProfiles(filter)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
