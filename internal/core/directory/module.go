package directory

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/core/heartbeat"
	"github.com/dep2p/go-lobby/internal/core/metrics"
	"github.com/dep2p/go-lobby/internal/core/relay"
	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/pkg/interfaces"
)

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	Service   interfaces.DirectoryService
	Relay     *relay.Coordinator
	Heartbeat *heartbeat.Keeper
	Session   *session.Session
	Config    *config.Config     `optional:"true"`
	Metrics   *metrics.Collector `optional:"true"`
}

// ProvideDirectory 提供房间目录
func ProvideDirectory(input ModuleInput) *Directory {
	return New(input.Service, input.Relay, input.Heartbeat, input.Session, input.Config, input.Metrics)
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("directory",
		fx.Provide(ProvideDirectory),
	)
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "directory"
	// Description 模块描述
	Description = "房间目录，组合目录服务、中继与心跳"
)
