package lobby

import (
	"time"

	"github.com/dep2p/go-lobby/config"
)

// ════════════════════════════════════════════════════════════════════════════
//                              预设配置
// ════════════════════════════════════════════════════════════════════════════

// 预设名称常量
const (
	// PresetNameDefault 默认预设名称
	PresetNameDefault = "default"

	// PresetNameLocal 本机模拟预设名称
	PresetNameLocal = "local"

	// PresetNameTest 测试预设名称
	PresetNameTest = "test"
)

// Preset 预设配置
type Preset struct {
	Name        string
	Description string
	apply       func(*config.Config)
}

// Apply 将预设应用到配置
func (p *Preset) Apply(cfg *config.Config) {
	if p != nil && p.apply != nil {
		p.apply(cfg)
	}
}

var (
	// PresetDefault 生产默认值（160 × 100ms 连接等待，15s 心跳）
	PresetDefault = &Preset{
		Name:        PresetNameDefault,
		Description: "远端服务默认配置",
		apply:       func(*config.Config) {},
	}

	// PresetLocal 本机模拟：连接等待缩短，心跳更频繁
	PresetLocal = &Preset{
		Name:        PresetNameLocal,
		Description: "进程内后端模拟",
		apply: func(cfg *config.Config) {
			cfg.Transport.ConnectTimeoutTicks = 50
			cfg.Transport.PollInterval = config.Duration(20 * time.Millisecond)
			cfg.Heartbeat.Interval = config.Duration(2 * time.Second)
			cfg.Room.QueryRate = 20
			cfg.Room.QueryBurst = 20
		},
	}

	// PresetTest 测试：最短等待，查询不限流
	PresetTest = &Preset{
		Name:        PresetNameTest,
		Description: "单元与集成测试",
		apply: func(cfg *config.Config) {
			cfg.Transport.ConnectTimeoutTicks = 200
			cfg.Transport.PollInterval = config.Duration(5 * time.Millisecond)
			cfg.Heartbeat.Interval = config.Duration(time.Second)
			cfg.Room.QueryRate = 1000
			cfg.Room.QueryBurst = 1000
		},
	}
)

// PresetByName 按名称获取预设，未知名称返回 nil
func PresetByName(name string) *Preset {
	switch name {
	case PresetNameDefault:
		return PresetDefault
	case PresetNameLocal:
		return PresetLocal
	case PresetNameTest:
		return PresetTest
	default:
		return nil
	}
}

// AvailablePresets 返回所有可用预设
func AvailablePresets() []*Preset {
	return []*Preset{PresetDefault, PresetLocal, PresetTest}
}
