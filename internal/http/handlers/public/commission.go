package public

import (
	"strings"

	handlershared "github.com/affiliate-next/internal/http/handlers/shared"
	"github.com/affiliate-next/internal/http/response"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CalculateCommissionRequest 佣金计算请求
type CalculateCommissionRequest struct {
	AffiliateID string          `json:"affiliate_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Options     models.JSON     `json:"options"`
}

// TrackCommissionRequest 交易入账请求
type TrackCommissionRequest struct {
	AffiliateID   string          `json:"affiliate_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id" binding:"required"`
	CustomerID    string          `json:"customer_id"`
	ProductID     string          `json:"product_id"`
	Options       models.JSON     `json:"options"`
}

// HistoryQueryRequest 佣金历史查询参数
type HistoryQueryRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// StatsQueryRequest 佣金统计查询参数
type StatsQueryRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
}

// CalculateCommission 计算并记录一笔佣金
func (h *Handler) CalculateCommission(c *gin.Context) {
	var req CalculateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if h.CommissionEngine == nil {
		respondError(c, response.CodeServiceUnavailable, "commission engine unavailable", nil)
		return
	}
	record, err := h.CommissionEngine.CalculateCommission(c.Request.Context(), req.AffiliateID, req.Amount, req.Options)
	if err != nil {
		respondCommissionError(c, err, "commission calculate failed")
		return
	}
	response.Success(c, record)
}

// TrackCommission 记录交易佣金
func (h *Handler) TrackCommission(c *gin.Context) {
	var req TrackCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}
	if h.CommissionEngine == nil {
		respondError(c, response.CodeServiceUnavailable, "commission engine unavailable", nil)
		return
	}
	record, err := h.CommissionEngine.TrackCommission(c.Request.Context(), req.AffiliateID, service.TrackCommissionInput{
		Amount:        req.Amount,
		TransactionID: req.TransactionID,
		CustomerID:    strings.TrimSpace(req.CustomerID),
		ProductID:     strings.TrimSpace(req.ProductID),
		Options:       req.Options,
	})
	if err != nil {
		respondCommissionError(c, err, "commission track failed")
		return
	}
	response.Success(c, record)
}

// GetCommissionHistory 获取推广用户佣金历史
func (h *Handler) GetCommissionHistory(c *gin.Context) {
	var req HistoryQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid query", err)
		return
	}
	start, err := handlershared.ParseDateQuery(req.StartDate, false)
	if err != nil {
		respondCommissionError(c, err, "invalid query")
		return
	}
	end, err := handlershared.ParseDateQuery(req.EndDate, true)
	if err != nil {
		respondCommissionError(c, err, "invalid query")
		return
	}
	if h.CommissionEngine == nil {
		respondError(c, response.CodeServiceUnavailable, "commission engine unavailable", nil)
		return
	}

	history, err := h.CommissionEngine.GetCommissionHistory(c.Request.Context(), c.Param("id"), service.HistoryQuery{
		StartDate: start,
		EndDate:   end,
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
	if err != nil {
		respondCommissionError(c, err, "commission history fetch failed")
		return
	}
	response.SuccessWithPage(c, history.History, response.OffsetPagination{
		Limit:   history.Pagination.Limit,
		Offset:  history.Pagination.Offset,
		Total:   history.Total,
		HasMore: history.Pagination.HasMore,
	})
}

// GetCommissionStats 获取推广用户佣金统计
func (h *Handler) GetCommissionStats(c *gin.Context) {
	var req StatsQueryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid query", err)
		return
	}
	start, err := handlershared.ParseDateQuery(req.StartDate, false)
	if err != nil {
		respondCommissionError(c, err, "invalid query")
		return
	}
	end, err := handlershared.ParseDateQuery(req.EndDate, true)
	if err != nil {
		respondCommissionError(c, err, "invalid query")
		return
	}
	if h.CommissionEngine == nil {
		respondError(c, response.CodeServiceUnavailable, "commission engine unavailable", nil)
		return
	}

	stats, err := h.CommissionEngine.GetCommissionStats(c.Request.Context(), c.Param("id"), service.StatsQuery{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		respondCommissionError(c, err, "commission stats fetch failed")
		return
	}
	response.Success(c, stats)
}

// GetCommissionTiers 获取当前等级结构
func (h *Handler) GetCommissionTiers(c *gin.Context) {
	if h.CommissionEngine == nil {
		respondError(c, response.CodeServiceUnavailable, "commission engine unavailable", nil)
		return
	}
	setting := h.CommissionEngine.Setting()
	response.Success(c, gin.H{
		"mode":  setting.Mode(),
		"tiers": h.CommissionEngine.TierStructure(),
	})
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondCommissionError(c *gin.Context, err error, fallbackMsg string) {
	handlershared.RespondMappedError(c, err, handlershared.CommissionErrorRules, fallbackMsg)
}
