package app

import (
	"context"

	"github.com/affiliate-next/internal/provider"
)

// containerService 将容器生命周期挂到运行器上，Stop 时关闭佣金引擎与外部连接
type containerService struct {
	container *provider.Container
}

func newContainerService(c *provider.Container) *containerService {
	return &containerService{container: c}
}

// Name 服务名称
func (s *containerService) Name() string {
	return "container"
}

// Start 阻塞直到运行器取消
func (s *containerService) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Stop 关闭容器
func (s *containerService) Stop(ctx context.Context) error {
	if s == nil || s.container == nil {
		return nil
	}
	return s.container.Close(ctx)
}
