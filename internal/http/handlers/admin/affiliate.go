package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/affiliate-next/internal/http/handlers/shared"
	"github.com/affiliate-next/internal/http/response"
	"github.com/affiliate-next/internal/repository"
	"github.com/affiliate-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreateAffiliateRequest 创建推广用户请求
type CreateAffiliateRequest struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email"`
	Tier       int             `json:"tier"`
	TotalSales decimal.Decimal `json:"total_sales"`
	Status     string          `json:"status"`
}

// UpdateAffiliateTierRequest 调整推广用户等级请求
type UpdateAffiliateTierRequest struct {
	Tier *int `json:"tier" binding:"required"`
}

// CreateAffiliate 创建推广用户
func (h *Handler) CreateAffiliate(c *gin.Context) {
	var req CreateAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	profile, err := h.AffiliateService.CreateAffiliate(service.CreateAffiliateInput{
		ID:         req.ID,
		Name:       req.Name,
		Email:      req.Email,
		Tier:       req.Tier,
		TotalSales: req.TotalSales,
		Status:     req.Status,
	})
	if err != nil {
		respondCommissionError(c, err, "affiliate create failed")
		return
	}
	response.Success(c, profile)
}

// GetAffiliate 获取推广用户档案
func (h *Handler) GetAffiliate(c *gin.Context) {
	profile, err := h.AffiliateService.GetAffiliate(c.Param("id"))
	if err != nil {
		respondCommissionError(c, err, "affiliate fetch failed")
		return
	}
	response.Success(c, profile)
}

// ListAffiliates 分页列出推广用户
func (h *Handler) ListAffiliates(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	tier, _ := strconv.Atoi(c.DefaultQuery("tier", "0"))
	page, pageSize = handlershared.NormalizePagination(page, pageSize)

	profiles, total, err := h.AffiliateService.ListAffiliates(repository.AffiliateProfileListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Tier:     tier,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "affiliate list failed", err)
		return
	}
	totalPage := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPage++
	}
	response.SuccessWithPage(c, profiles, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// UpdateAffiliateTier 调整推广用户等级，只影响之后的佣金计算
func (h *Handler) UpdateAffiliateTier(c *gin.Context) {
	var req UpdateAffiliateTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	profile, err := h.AffiliateService.UpdateAffiliateTier(c.Param("id"), *req.Tier)
	if err != nil {
		respondCommissionError(c, err, "affiliate tier update failed")
		return
	}
	response.Success(c, profile)
}
