package admin

import (
	"github.com/affiliate-next/internal/http/response"
	"github.com/affiliate-next/internal/models"

	"github.com/gin-gonic/gin"
)

// UpdateCommissionTiersRequest 等级结构更新请求
type UpdateCommissionTiersRequest struct {
	Tiers []models.TierDefinition `json:"tiers"`
}

// UpdateCommissionTiers 整体替换佣金等级结构
func (h *Handler) UpdateCommissionTiers(c *gin.Context) {
	var req UpdateCommissionTiersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if h.CommissionEngine == nil {
		respondError(c, response.CodeServiceUnavailable, "commission engine unavailable", nil)
		return
	}
	result, err := h.CommissionEngine.UpdateTierStructure(c.Request.Context(), req.Tiers)
	if err != nil {
		respondCommissionError(c, err, "tier structure update failed")
		return
	}
	response.Success(c, result)
}

// GetCommissionSetting 获取当前佣金配置
func (h *Handler) GetCommissionSetting(c *gin.Context) {
	if h.CommissionEngine == nil {
		respondError(c, response.CodeServiceUnavailable, "commission engine unavailable", nil)
		return
	}
	setting := h.CommissionEngine.Setting()
	setting.Tiers = h.CommissionEngine.TierStructure()
	response.Success(c, gin.H{
		"mode":    setting.Mode(),
		"setting": setting,
	})
}
