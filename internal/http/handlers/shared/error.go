package shared

import (
	"errors"

	"github.com/affiliate-next/internal/http/response"
	"github.com/affiliate-next/internal/logger"
	"github.com/affiliate-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.Error(c, appErr.Code, appErr.Message)
}

// MappedError 定义业务错误到接口错误响应的映射关系。
type MappedError struct {
	Target error
	Code   int
}

// CommissionErrorRules 佣金相关业务错误映射，按顺序匹配
var CommissionErrorRules = []MappedError{
	{Target: service.ErrEngineShutdown, Code: response.CodeServiceUnavailable},
	{Target: service.ErrNotFound, Code: response.CodeNotFound},
	{Target: service.ErrAffiliateExists, Code: response.CodeConflict},
	{Target: service.ErrInvariantViolation, Code: response.CodeConflict},
	{Target: service.ErrValidation, Code: response.CodeBadRequest},
}

// RespondMappedError 按映射规则返回错误响应，未命中时按内部错误处理
func RespondMappedError(c *gin.Context, err error, rules []MappedError, fallbackMsg string) {
	if appErr, ok := response.AsAppError(err); ok {
		RespondError(c, appErr.Code, appErr.Message, appErr.Err)
		return
	}
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			// 业务错误直接回显，不记录为 handler_error
			RespondError(c, rule.Code, err.Error(), nil)
			return
		}
	}
	RespondError(c, response.CodeInternal, fallbackMsg, err)
}
