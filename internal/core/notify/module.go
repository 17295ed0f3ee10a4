package notify

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-lobby/internal/core/metrics"
	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Service interfaces.DirectoryService
	Session *session.Session
	Metrics *metrics.Collector `optional:"true"`
}

// ProvideSubscriber 提供订阅者
func ProvideSubscriber(input ModuleInput) *Subscriber {
	return NewSubscriber(input.Service, input.Session, input.Metrics)
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(ProvideSubscriber),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In
	LC         fx.Lifecycle
	Subscriber *Subscriber
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return input.Subscriber.Unsubscribe(ctx)
		},
	})
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "notify"
	// Description 模块描述
	Description = "房间通知订阅，维护本地房间投影"
)
