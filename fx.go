package lobby

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/core/directory"
	"github.com/dep2p/go-lobby/internal/core/eventbus"
	"github.com/dep2p/go-lobby/internal/core/heartbeat"
	"github.com/dep2p/go-lobby/internal/core/identity"
	"github.com/dep2p/go-lobby/internal/core/metrics"
	"github.com/dep2p/go-lobby/internal/core/notify"
	"github.com/dep2p/go-lobby/internal/core/relay"
	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/internal/core/transport"
	"github.com/dep2p/go-lobby/internal/orchestrator"
	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
)

var fxLogger = logger.Logger("lobby/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置与外部服务
//  2. Session → EventBus → Metrics
//  3. Identity / Relay / Heartbeat / Notify / Transport
//  4. Directory → Orchestrator
func buildFxApp(o *options, cfg *config.Config, lb *Lobby) (*fx.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if !o.backends.Complete() {
		return nil, ErrMissingBackends
	}

	b := o.backends
	modules := []fx.Option{
		// 配置注入
		fx.Supply(cfg),

		// 外部服务
		fx.Provide(
			func() interfaces.IdentityService { return b.Identity },
			func() interfaces.DirectoryService { return b.Directory },
			func() interfaces.RelayService { return b.Relay },
			func() interfaces.Transport { return b.Transport },
		),
	}

	if o.clock != nil {
		clk := o.clock
		modules = append(modules, fx.Provide(func() clock.Clock { return clk }))
	}
	if o.registry != nil {
		reg := o.registry
		modules = append(modules, fx.Provide(func() prometheus.Registerer { return reg }))
	}

	modules = append(modules,
		session.Module(),
		eventbus.Module(),
		metrics.Module(),

		identity.Module(),
		relay.Module(),
		heartbeat.Module(),
		notify.Module(),
		transport.Module(),

		directory.Module(),
		orchestrator.Module(),
	)

	if len(o.fxOptions) > 0 {
		fxLogger.Debug("加载用户自定义 Fx 选项", "count", len(o.fxOptions))
		modules = append(modules, o.fxOptions...)
	}

	modules = append(modules,
		fx.Populate(&lb.orch, &lb.bus),

		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}
