package config

import (
	"time"

	"github.com/dep2p/go-lobby/pkg/types"
)

// ============================================================================
//                              Identity
// ============================================================================

// IdentityConfig 身份配置
type IdentityConfig struct {
	// Profile 登录 profile（同时作为显示名称）
	// 为空或不合法时自动生成 player-xxxxxxxx
	Profile string `json:"profile" yaml:"profile" env:"PROFILE"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{}
}

func (c IdentityConfig) validate(_ *Validator) {}

// ============================================================================
//                              Room
// ============================================================================

// RoomConfig 房间目录配置
type RoomConfig struct {
	// DefaultName PlayNow 回退创建房间时使用的名称
	DefaultName string `json:"default_name" yaml:"default_name" env:"DEFAULT_NAME"`

	// DefaultSize PlayNow 回退创建房间时使用的容量
	DefaultSize int `json:"default_size" yaml:"default_size" env:"DEFAULT_SIZE"`

	// MaxCapacity 房间容量上限，CreateRoom 将 size 钳制到 [2, MaxCapacity]
	MaxCapacity int `json:"max_capacity" yaml:"max_capacity" env:"MAX_CAPACITY"`

	// QueryLimit FindOpenRooms 默认返回数
	QueryLimit int `json:"query_limit" yaml:"query_limit" env:"QUERY_LIMIT"`

	// QueryRate 每秒允许的查询次数（远端目录对查询限流）
	QueryRate float64 `json:"query_rate" yaml:"query_rate" env:"QUERY_RATE"`

	// QueryBurst 查询突发量
	QueryBurst int `json:"query_burst" yaml:"query_burst" env:"QUERY_BURST"`
}

// MinCapacity 房间最小容量
const MinCapacity = 2

// DefaultRoomConfig 返回默认房间配置
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		DefaultName: "Quick Match",
		DefaultSize: 4,
		MaxCapacity: 8,
		QueryLimit:  25,
		QueryRate:   1,
		QueryBurst:  2,
	}
}

// ClampSize 将容量钳制到 [MinCapacity, MaxCapacity]
func (c RoomConfig) ClampSize(size int) int {
	return min(max(size, MinCapacity), max(c.MaxCapacity, MinCapacity))
}

func (c RoomConfig) validate(v *Validator) {
	if c.MaxCapacity < MinCapacity {
		v.addError("room.max_capacity", "must be at least 2")
	}
	if c.DefaultSize < MinCapacity || c.DefaultSize > c.MaxCapacity {
		v.addError("room.default_size", "must be within [2, max_capacity]")
	}
	if c.DefaultName == "" {
		v.addError("room.default_name", "must not be empty")
	}
	if c.QueryLimit <= 0 {
		v.addError("room.query_limit", "must be positive")
	}
	if c.QueryRate <= 0 {
		v.addError("room.query_rate", "must be positive")
	}
	if c.QueryBurst < 1 {
		v.addError("room.query_burst", "must be at least 1")
	}
}

// ============================================================================
//                              Heartbeat
// ============================================================================

// HeartbeatConfig 房间保活配置
type HeartbeatConfig struct {
	// Interval 心跳间隔，必须小于目录回收闲置房间的时间
	Interval Duration `json:"interval" yaml:"interval" env:"INTERVAL"`
}

// DefaultHeartbeatConfig 返回默认心跳配置
func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{
		Interval: Duration(15 * time.Second),
	}
}

func (c HeartbeatConfig) validate(v *Validator) {
	if c.Interval <= 0 {
		v.addError("heartbeat.interval", "must be positive")
	}
}

// ============================================================================
//                              Transport
// ============================================================================

// TransportConfig 传输配置
type TransportConfig struct {
	// ConnectTimeoutTicks 等待连接的轮询次数上限
	ConnectTimeoutTicks int `json:"connect_timeout_ticks" yaml:"connect_timeout_ticks" env:"CONNECT_TIMEOUT_TICKS"`

	// PollInterval 轮询间隔
	PollInterval Duration `json:"poll_interval" yaml:"poll_interval" env:"POLL_INTERVAL"`

	// Encryption 加密模式：dtls / udp / wss
	Encryption string `json:"encryption" yaml:"encryption" env:"ENCRYPTION"`
}

// DefaultTransportConfig 返回默认传输配置（160 × 100ms ≈ 16s）
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ConnectTimeoutTicks: 160,
		PollInterval:        Duration(100 * time.Millisecond),
		Encryption:          string(types.EncryptionDTLS),
	}
}

// ConnectTimeout 等待连接的总时长
func (c TransportConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutTicks) * c.PollInterval.Duration()
}

func (c TransportConfig) validate(v *Validator) {
	if c.ConnectTimeoutTicks <= 0 {
		v.addError("transport.connect_timeout_ticks", "must be positive")
	}
	if c.PollInterval <= 0 {
		v.addError("transport.poll_interval", "must be positive")
	}
	if !types.EncryptionMode(c.Encryption).Valid() {
		v.addError("transport.encryption", "must be one of dtls, udp, wss")
	}
}

// ============================================================================
//                              Redis
// ============================================================================

// RedisConfig Redis 房间目录配置
type RedisConfig struct {
	// Addr 服务地址，为空表示不使用 Redis 目录
	Addr string `json:"addr" yaml:"addr" env:"ADDR"`

	// Password 密码
	Password string `json:"password,omitempty" yaml:"password,omitempty" env:"PASSWORD"`

	// DB 数据库编号
	DB int `json:"db" yaml:"db" env:"DB"`

	// KeyPrefix 键前缀
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" env:"KEY_PREFIX"`

	// RoomTTL 未收到心跳的房间过期时间
	RoomTTL Duration `json:"room_ttl" yaml:"room_ttl" env:"ROOM_TTL"`
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		KeyPrefix: "lobby",
		RoomTTL:   Duration(45 * time.Second),
	}
}

// Enabled 是否配置了 Redis
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

func (c RedisConfig) validate(v *Validator) {
	if !c.Enabled() {
		return
	}
	if c.KeyPrefix == "" {
		v.addError("redis.key_prefix", "must not be empty")
	}
	if c.RoomTTL <= 0 {
		v.addError("redis.room_ttl", "must be positive")
	}
	if c.DB < 0 {
		v.addError("redis.db", "must not be negative")
	}
}

// ============================================================================
//                              Metrics
// ============================================================================

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enable 是否启用 Prometheus 指标
	Enable bool `json:"enable" yaml:"enable" env:"ENABLE"`

	// Namespace 指标命名空间
	Namespace string `json:"namespace" yaml:"namespace" env:"NAMESPACE"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enable:    true,
		Namespace: "lobby",
	}
}

func (c MetricsConfig) validate(v *Validator) {
	if c.Enable && c.Namespace == "" {
		v.addError("metrics.namespace", "must not be empty when metrics are enabled")
	}
}
