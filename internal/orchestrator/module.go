package orchestrator

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/core/directory"
	"github.com/dep2p/go-lobby/internal/core/heartbeat"
	"github.com/dep2p/go-lobby/internal/core/identity"
	"github.com/dep2p/go-lobby/internal/core/metrics"
	"github.com/dep2p/go-lobby/internal/core/notify"
	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/internal/core/transport"
	"github.com/dep2p/go-lobby/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Session    *session.Session
	Gateway    *identity.Gateway
	Directory  *directory.Directory
	Subscriber *notify.Subscriber
	Heartbeat  *heartbeat.Keeper
	Supervisor *transport.Supervisor
	EventBus   interfaces.EventBus `optional:"true"`
	Config     *config.Config      `optional:"true"`
	Metrics    *metrics.Collector  `optional:"true"`
}

// ProvideOrchestrator 提供编排器
func ProvideOrchestrator(input ModuleInput) (*Orchestrator, error) {
	return New(Deps{
		Session:    input.Session,
		Gateway:    input.Gateway,
		Directory:  input.Directory,
		Subscriber: input.Subscriber,
		Heartbeat:  input.Heartbeat,
		Supervisor: input.Supervisor,
		EventBus:   input.EventBus,
		Config:     input.Config,
		Metrics:    input.Metrics,
	})
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("orchestrator",
		fx.Provide(ProvideOrchestrator),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In
	LC           fx.Lifecycle
	Orchestrator *Orchestrator
}

// registerLifecycle 进程退出时拆除会话
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return input.Orchestrator.Close(ctx)
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
	Name = "orchestrator"
	// Description 模块描述
	Description = "会话编排器与唯一拆除路径"
)
