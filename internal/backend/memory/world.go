package memory

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-lobby/pkg/interfaces"
)

// World 共享的进程内服务集合
type World struct {
	Directory *Directory
	Relay     *Relay
	Network   *Network

	mu         sync.Mutex
	transports []*Transport
}

// WorldOption 配置 World
type WorldOption func(*worldOptions)

type worldOptions struct {
	clock       clock.Clock
	handshake   time.Duration
	joinCodeTTL time.Duration
}

// WithClock 目录使用的时钟（心跳时间、创建时间）
func WithClock(clk clock.Clock) WorldOption {
	return func(o *worldOptions) { o.clock = clk }
}

// WithHandshake 回环握手延迟
func WithHandshake(d time.Duration) WorldOption {
	return func(o *worldOptions) { o.handshake = d }
}

// WithJoinCodeTTL 中继加入码有效期
func WithJoinCodeTTL(ttl time.Duration) WorldOption {
	return func(o *worldOptions) { o.joinCodeTTL = ttl }
}

// NewWorld 创建共享服务集合
func NewWorld(opts ...WorldOption) *World {
	o := worldOptions{handshake: DefaultHandshake, joinCodeTTL: DefaultJoinCodeTTL}
	for _, opt := range opts {
		opt(&o)
	}
	return &World{
		Directory: NewDirectory(o.clock),
		Relay:     NewRelay(o.joinCodeTTL),
		Network:   NewNetwork(o.handshake),
	}
}

// Player 一个玩家进程的后端
type Player struct {
	Identity  *Identity
	Transport *Transport
	Backends  interfaces.Backends
}

// NewPlayer 为一个新玩家创建后端：独立的身份与传输层，共享目录、中继与网络
func (w *World) NewPlayer() *Player {
	ids := NewIdentity()
	tr := w.Network.NewTransport()

	w.mu.Lock()
	w.transports = append(w.transports, tr)
	w.mu.Unlock()

	return &Player{
		Identity:  ids,
		Transport: tr,
		Backends: interfaces.Backends{
			Identity:  ids,
			Directory: w.Directory.Client(ids),
			Relay:     w.Relay,
			Transport: tr,
		},
	}
}

// Close 关闭全部传输层
func (w *World) Close() {
	w.mu.Lock()
	trs := w.transports
	w.transports = nil
	w.mu.Unlock()
	for _, tr := range trs {
		tr.Close()
	}
}
