package relay

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-lobby/pkg/interfaces"
)

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("relay",
		fx.Provide(func(svc interfaces.RelayService) *Coordinator {
			return NewCoordinator(svc)
		}),
	)
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "relay"
	// Description 模块描述
	Description = "中继协调器，申请主机分配与客户端加入"
)
