package lobby

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/orchestrator"
	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

var log = logger.Logger("lobby")

const (
	// startTimeout Fx 应用启动超时
	startTimeout = 15 * time.Second

	// stopTimeout 关闭（含会话拆除）超时
	stopTimeout = 15 * time.Second
)

// ════════════════════════════════════════════════════════════════════════════
//                              Lobby
// ════════════════════════════════════════════════════════════════════════════

// Lobby 会话编排门面
//
// 同一时刻最多持有一个会话。所有会话命令并发安全。
type Lobby struct {
	cfg *config.Config
	app *fx.App

	orch *orchestrator.Orchestrator
	bus  interfaces.EventBus

	mu      sync.Mutex
	started bool
	closed  bool
}

// New 创建 Lobby（不启动）
func New(_ context.Context, opts ...Option) (*Lobby, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	cfg := o.toConfig()
	lb := &Lobby{cfg: cfg}

	app, err := buildFxApp(o, cfg, lb)
	if err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	lb.app = app
	return lb, nil
}

// Start 快捷启动函数
//
// 等价于 New 后调用 Start。
func Start(ctx context.Context, opts ...Option) (*Lobby, error) {
	lb, err := New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	if err := lb.Start(ctx); err != nil {
		return nil, fmt.Errorf("start lobby: %w", err)
	}
	return lb, nil
}

// Start 启动 Fx 应用
func (l *Lobby) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if l.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()
	if err := l.app.Start(startCtx); err != nil {
		log.Error("启动失败", "error", err)
		return err
	}
	l.started = true
	log.Info("lobby 已启动", "profile", l.cfg.Identity.Profile)
	return nil
}

// Close 拆除当前会话并停止
//
// 重复调用是安全的。
func (l *Lobby) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if !l.started {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := l.app.Stop(ctx); err != nil {
		log.Warn("关闭时出错", "error", err)
		return err
	}
	log.Info("lobby 已关闭")
	return nil
}

func (l *Lobby) ready() (*orchestrator.Orchestrator, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.closed:
		return nil, ErrClosed
	case !l.started:
		return nil, ErrNotStarted
	}
	return l.orch, nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              查询
// ════════════════════════════════════════════════════════════════════════════

// Config 生效的配置（副本）
func (l *Lobby) Config() *config.Config {
	return l.cfg.Clone()
}

// State 当前会话状态
func (l *Lobby) State() types.SessionState {
	if l.orch == nil {
		return types.StateDisconnected
	}
	return l.orch.State()
}

// Room 当前房间的本地投影，无房间时返回 nil
func (l *Lobby) Room() *types.Room {
	if l.orch == nil {
		return nil
	}
	return l.orch.CurrentRoom()
}

// Identity 进程身份，未登录时为零值
func (l *Lobby) Identity() types.Identity {
	if l.orch == nil {
		return types.Identity{}
	}
	return l.orch.Identity()
}

// Subscribe 订阅会话信号
//
//	sub, err := lb.Subscribe(new(types.EvtSessionEnded))
func (l *Lobby) Subscribe(eventType any, opts ...interfaces.SubscriptionOpt) (interfaces.Subscription, error) {
	if l.bus == nil {
		return nil, ErrNotStarted
	}
	return l.bus.Subscribe(eventType, opts...)
}

// ════════════════════════════════════════════════════════════════════════════
//                              会话命令
// ════════════════════════════════════════════════════════════════════════════

// PlayNow 快速加入任一可加入房间，没有时以默认名称与容量创建
func (l *Lobby) PlayNow(ctx context.Context) error {
	orch, err := l.ready()
	if err != nil {
		return err
	}
	return orch.PlayNow(ctx)
}

// CreateRoom 创建房间并以主机身份连接
func (l *Lobby) CreateRoom(ctx context.Context, name string, size int) error {
	orch, err := l.ready()
	if err != nil {
		return err
	}
	return orch.Create(ctx, name, size)
}

// JoinByCode 通过房间码加入
func (l *Lobby) JoinByCode(ctx context.Context, code string) error {
	orch, err := l.ready()
	if err != nil {
		return err
	}
	return orch.Join(ctx, orchestrator.JoinTarget{Code: code})
}

// JoinByID 通过房间 ID 加入
func (l *Lobby) JoinByID(ctx context.Context, id string) error {
	orch, err := l.ready()
	if err != nil {
		return err
	}
	return orch.Join(ctx, orchestrator.JoinTarget{ID: id})
}

// Leave 离开当前会话
func (l *Lobby) Leave(ctx context.Context) error {
	orch, err := l.ready()
	if err != nil {
		return err
	}
	return orch.Leave(ctx)
}

// LockRoom 锁定当前房间（仅房主）
func (l *Lobby) LockRoom(ctx context.Context) (*types.Room, error) {
	orch, err := l.ready()
	if err != nil {
		return nil, err
	}
	return orch.LockCurrentRoom(ctx)
}

// Kick 将成员移出当前房间（仅房主）
func (l *Lobby) Kick(ctx context.Context, playerID string) error {
	orch, err := l.ready()
	if err != nil {
		return err
	}
	return orch.Kick(ctx, playerID)
}

// Rooms 列出可加入房间，最新的在前
func (l *Lobby) Rooms(ctx context.Context, max int) ([]types.RoomSummary, error) {
	orch, err := l.ready()
	if err != nil {
		return nil, err
	}
	return orch.Rooms(ctx, max)
}
