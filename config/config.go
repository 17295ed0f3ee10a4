// Package config 提供统一的配置管理
//
// 本包采用与组件一一对应的子配置：
//   - Identity: 身份 profile
//   - Room: 房间目录（默认房间、容量、查询限流）
//   - Heartbeat: 房间保活
//   - Transport: 传输连接等待与加密模式
//   - Redis: Redis 房间目录后端
//   - Metrics: Prometheus 指标
//
// 加载顺序：默认值 → 配置文件（JSON/YAML）→ 环境变量（LOBBY_ 前缀）。
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Room.DefaultSize = 6
//
//	cfg, err := config.FromYAML(data)
//	if err := config.ApplyEnv(cfg); err != nil { ... }
package config

// Config 是 go-lobby 的完整配置结构
type Config struct {
	// Identity 身份配置
	Identity IdentityConfig `json:"identity" yaml:"identity" envPrefix:"IDENTITY_"`

	// Room 房间目录配置
	Room RoomConfig `json:"room" yaml:"room" envPrefix:"ROOM_"`

	// Heartbeat 房间保活配置
	Heartbeat HeartbeatConfig `json:"heartbeat" yaml:"heartbeat" envPrefix:"HEARTBEAT_"`

	// Transport 传输配置
	Transport TransportConfig `json:"transport" yaml:"transport" envPrefix:"TRANSPORT_"`

	// Redis Redis 房间目录配置
	Redis RedisConfig `json:"redis" yaml:"redis" envPrefix:"REDIS_"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" envPrefix:"METRICS_"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Identity:  DefaultIdentityConfig(),
		Room:      DefaultRoomConfig(),
		Heartbeat: DefaultHeartbeatConfig(),
		Transport: DefaultTransportConfig(),
		Redis:     DefaultRedisConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 收集全部子配置的错误，返回 ValidationErrors。
func (c *Config) Validate() error {
	v := NewValidator()
	c.Identity.validate(v)
	c.Room.validate(v)
	c.Heartbeat.validate(v)
	c.Transport.validate(v)
	c.Redis.validate(v)
	c.Metrics.validate(v)
	if v.Errors().HasErrors() {
		return v.Errors()
	}
	return nil
}

// Clone 返回配置副本
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}
