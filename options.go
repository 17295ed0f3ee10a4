package lobby

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 预设配置
	preset *Preset

	// 完整配置（WithConfig），为空时使用 config.NewConfig()
	config *config.Config

	// 身份 profile
	profile string

	// 指标开关（nil 表示沿用配置）
	metrics *bool

	backends interfaces.Backends
	clock    clock.Clock
	registry prometheus.Registerer

	// 用户自定义 Fx 选项
	fxOptions []fx.Option
}

func newOptions() *options {
	return &options{}
}

// toConfig 合成最终配置：配置 → 预设 → 单项覆盖
func (o *options) toConfig() *config.Config {
	cfg := o.config.Clone()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	o.preset.Apply(cfg)
	if o.profile != "" {
		cfg.Identity.Profile = o.profile
	}
	if o.metrics != nil {
		cfg.Metrics.Enable = *o.metrics
	}
	return cfg
}

// ════════════════════════════════════════════════════════════════════════════
//                              选项
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用完整配置作为基础
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config must not be nil")
		}
		o.config = cfg
		return nil
	}
}

// WithPreset 应用预设配置
func WithPreset(p *Preset) Option {
	return func(o *options) error {
		if p == nil {
			return errors.New("preset must not be nil")
		}
		o.preset = p
		return nil
	}
}

// WithProfile 设置登录 profile（同时作为显示名称）
func WithProfile(name string) Option {
	return func(o *options) error {
		if !types.ValidProfileName(name) {
			return fmt.Errorf("invalid profile name %q", name)
		}
		o.profile = name
		return nil
	}
}

// WithBackends 注入身份、房间目录、中继与传输层
func WithBackends(b interfaces.Backends) Option {
	return func(o *options) error {
		if !b.Complete() {
			return ErrMissingBackends
		}
		o.backends = b
		return nil
	}
}

// WithClock 注入时钟（心跳与连接等待）
func WithClock(clk clock.Clock) Option {
	return func(o *options) error {
		o.clock = clk
		return nil
	}
}

// WithMetrics 启用或关闭 Prometheus 指标
func WithMetrics(enable bool) Option {
	return func(o *options) error {
		o.metrics = &enable
		return nil
	}
}

// WithRegistry 指标注册到 reg（隐含 WithMetrics(true)）
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) error {
		if reg == nil {
			return errors.New("registry must not be nil")
		}
		o.registry = reg
		enable := true
		o.metrics = &enable
		return nil
	}
}

// WithFxOption 追加自定义 Fx 选项
func WithFxOption(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
