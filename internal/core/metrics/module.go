package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-lobby/config"
)

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Config   *config.Config        `optional:"true"`
	Registry prometheus.Registerer `optional:"true"`
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideCollector),
	)
}

// ProvideCollector 按配置提供 Collector，禁用时返回 nil
//
// 未注入 Registerer 时使用 prometheus.DefaultRegisterer。
func ProvideCollector(p Params) (*Collector, error) {
	cfg := config.DefaultMetricsConfig()
	if p.Config != nil {
		cfg = p.Config.Metrics
	}
	if !cfg.Enable {
		return nil, nil
	}
	reg := p.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return NewCollector(cfg.Namespace, reg)
}

// ============================================================================
//                              模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "metrics"
	// Description 模块描述
	Description = "会话编排 Prometheus 指标"
)
