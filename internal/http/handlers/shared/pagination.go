package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/affiliate-next/internal/service"
)

// NormalizePagination 归一化分页参数。
func NormalizePagination(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// ParseDateQuery 解析日期查询参数，支持 RFC3339 与 YYYY-MM-DD。
// endOfDay 为 true 时，纯日期会解析为当天最后一刻，使区间右端包含整天。
func ParseDateQuery(raw string, endOfDay bool) (*time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return &parsed, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", service.ErrInvalidInput, value)
	}
	if endOfDay {
		parsed = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	return &parsed, nil
}
