package identity

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Service interfaces.IdentityService
	Session *session.Session
	Config  *config.Config `optional:"true"`
}

// ============================================================================
//                              模块定义
// ============================================================================

// ProvideGateway 提供身份网关
func ProvideGateway(input ModuleInput) *Gateway {
	cfg := config.DefaultIdentityConfig()
	if input.Config != nil {
		cfg = input.Config.Identity
	}
	return NewGateway(input.Service, input.Session, cfg.Profile)
}

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("identity",
		fx.Provide(ProvideGateway),
	)
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "identity"
	// Description 模块描述
	Description = "身份网关，保证进程内唯一的已登录身份"
)
