package app

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// httpReadHeaderTimeout 请求头读取超时
const httpReadHeaderTimeout = 10 * time.Second

// HTTPService 佣金 API 的 HTTP 服务
type HTTPService struct {
	name   string
	server *http.Server
}

// NewHTTPService 创建佣金 API 服务
func NewHTTPService(addr string, handler http.Handler) *HTTPService {
	return &HTTPService{
		name: "commission_api",
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: httpReadHeaderTimeout,
		},
	}
}

// Name 服务名称
func (s *HTTPService) Name() string {
	if s == nil || s.name == "" {
		return "commission_api"
	}
	return s.name
}

// Start 监听直至 Stop，正常关闭返回 nil
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("commission api server not initialized")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅关闭，等待进行中的请求
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
