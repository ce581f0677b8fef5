package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/affiliate-next/internal/config"
	"github.com/affiliate-next/internal/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 运行模式：all 同时启动佣金 API 与统计回写 worker
const (
	ModeAll    = "all"
	ModeAPI    = "api"
	ModeWorker = "worker"
)

// ErrUnknownMode 运行模式不存在
var ErrUnknownMode = errors.New("unknown run mode")

// Options 应用启动选项
type Options struct {
	Config          *config.Config
	DB              *gorm.DB
	Logger          *zap.SugaredLogger
	Signals         []os.Signal
	ShutdownTimeout time.Duration
	Mode            string
}

// normalizeOptions 补齐默认参数
func normalizeOptions(opts Options) Options {
	if opts.Logger == nil {
		opts.Logger = logger.S()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	opts.Mode = strings.ToLower(strings.TrimSpace(opts.Mode))
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	return opts
}

// validateMode 构建容器前拒绝未知模式
func validateMode(mode string) error {
	switch mode {
	case ModeAll, ModeAPI, ModeWorker:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
