package transport

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/core/metrics"
	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Transport interfaces.Transport
	Session   *session.Session
	Clock     clock.Clock        `optional:"true"`
	Config    *config.Config     `optional:"true"`
	Metrics   *metrics.Collector `optional:"true"`
}

// ProvideSupervisor 提供传输监管者
func ProvideSupervisor(input ModuleInput) *Supervisor {
	return NewSupervisor(input.Transport, input.Session, input.Clock, input.Config, input.Metrics)
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("transport",
		fx.Provide(ProvideSupervisor),
	)
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "transport"
	// Description 模块描述
	Description = "传输层监管：配置、启动、有界等待连接与生命周期回调"
)
