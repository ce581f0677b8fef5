package queue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/affiliate-next/internal/constants"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
)

const (
	// TaskAffiliateStatsUpdate 推广用户累计数据更新任务
	TaskAffiliateStatsUpdate = constants.TaskAffiliateStatsUpdate
)

// AffiliateStatsUpdatePayload 推广用户累计数据更新任务载荷
type AffiliateStatsUpdatePayload struct {
	AffiliateID     string          `json:"affiliate_id"`
	AmountDelta     decimal.Decimal `json:"amount_delta"`
	CommissionDelta decimal.Decimal `json:"commission_delta"`
	CommissionID    string          `json:"commission_id"`
	TransactionID   string          `json:"transaction_id"`
}

// NewAffiliateStatsUpdateTask 创建推广用户累计数据更新任务
func NewAffiliateStatsUpdateTask(payload AffiliateStatsUpdatePayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.AffiliateID) == "" {
		return nil, fmt.Errorf("affiliate id is empty")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAffiliateStatsUpdate, body), nil
}

// ParseAffiliateStatsUpdatePayload 解析推广用户累计数据更新任务载荷
func ParseAffiliateStatsUpdatePayload(body []byte) (AffiliateStatsUpdatePayload, error) {
	var payload AffiliateStatsUpdatePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, err
	}
	if strings.TrimSpace(payload.AffiliateID) == "" {
		return payload, fmt.Errorf("affiliate id is empty")
	}
	return payload, nil
}
