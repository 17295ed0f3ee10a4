package heartbeat

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-lobby/internal/core/metrics"
	"github.com/dep2p/go-lobby/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Directory interfaces.DirectoryService
	Clock     clock.Clock        `optional:"true"`
	Metrics   *metrics.Collector `optional:"true"`
}

// ProvideKeeper 提供心跳维持器
func ProvideKeeper(input ModuleInput) *Keeper {
	return NewKeeper(input.Directory, input.Clock, input.Metrics)
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("heartbeat",
		fx.Provide(ProvideKeeper),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In
	LC     fx.Lifecycle
	Keeper *Keeper
}

func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			input.Keeper.Stop()
			return nil
		},
	})
}
