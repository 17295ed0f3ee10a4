package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/core/directory"
	"github.com/dep2p/go-lobby/internal/core/heartbeat"
	"github.com/dep2p/go-lobby/internal/core/identity"
	"github.com/dep2p/go-lobby/internal/core/metrics"
	"github.com/dep2p/go-lobby/internal/core/notify"
	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/internal/core/transport"
	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

var log = logger.Logger("orchestrator")

// ErrClosed 编排器已关闭
var ErrClosed = errors.New("orchestrator: closed")

// cleanupTimeout 拆除与回滚使用的超时
const cleanupTimeout = 10 * time.Second

// JoinTarget 加入目标，Code 优先
type JoinTarget struct {
	Code string
	ID   string
}

// Deps 编排器依赖
type Deps struct {
	Session    *session.Session
	Gateway    *identity.Gateway
	Directory  *directory.Directory
	Subscriber *notify.Subscriber
	Heartbeat  *heartbeat.Keeper
	Supervisor *transport.Supervisor
	EventBus   interfaces.EventBus
	Config     *config.Config
	Metrics    *metrics.Collector
}

// Orchestrator 会话编排器
type Orchestrator struct {
	sess    *session.Session
	gateway *identity.Gateway
	dir     *directory.Directory
	sub     *notify.Subscriber
	hb      *heartbeat.Keeper
	sup     *transport.Supervisor
	metrics *metrics.Collector
	cfg     *config.Config

	emitters emitters

	// teardownMu 串行化拆除以及工作流的失败清理
	teardownMu sync.Mutex
	closed     atomic.Bool
}

type emitters struct {
	signedIn    interfaces.Emitter
	roomJoined  interfaces.Emitter
	roomUpdated interfaces.Emitter
	ready       interfaces.Emitter
	ended       interfaces.Emitter
	state       interfaces.Emitter
}

// New 创建编排器并接线各组件的回调
func New(d Deps) (*Orchestrator, error) {
	if d.Config == nil {
		d.Config = config.NewConfig()
	}
	o := &Orchestrator{
		sess:    d.Session,
		gateway: d.Gateway,
		dir:     d.Directory,
		sub:     d.Subscriber,
		hb:      d.Heartbeat,
		sup:     d.Supervisor,
		metrics: d.Metrics,
		cfg:     d.Config,
	}
	if err := o.initEmitters(d.EventBus); err != nil {
		return nil, err
	}

	o.gateway.OnSignedIn(func(id types.Identity) {
		o.emit(o.emitters.signedIn, types.EvtSignedIn{PlayerID: id.PlayerID, DisplayName: id.DisplayName})
	})
	o.sub.SetHooks(notify.Hooks{
		OnRoomUpdated: func(room *types.Room, _ types.RoomDiff) {
			o.emit(o.emitters.roomUpdated, types.EvtRoomUpdated{Room: room})
		},
		OnInvalidated: func(token session.Token, reason types.EndReason) {
			o.invalidated(token, reason, nil)
		},
	})
	o.sup.SetInvalidateFunc(o.invalidated)
	o.sess.OnStateChange(func(from, to types.SessionState) {
		o.metrics.SetState(to)
		o.emit(o.emitters.state, types.EvtStateChanged{From: from, To: to})
	})
	return o, nil
}

func (o *Orchestrator) initEmitters(bus interfaces.EventBus) error {
	if bus == nil {
		return nil
	}
	var err error
	mk := func(evt any) interfaces.Emitter {
		if err != nil {
			return nil
		}
		var em interfaces.Emitter
		em, err = bus.Emitter(evt)
		return em
	}
	o.emitters = emitters{
		signedIn:    mk(new(types.EvtSignedIn)),
		roomJoined:  mk(new(types.EvtRoomJoined)),
		roomUpdated: mk(new(types.EvtRoomUpdated)),
		ready:       mk(new(types.EvtSessionReady)),
		ended:       mk(new(types.EvtSessionEnded)),
		state:       mk(new(types.EvtStateChanged)),
	}
	return err
}

func (o *Orchestrator) emit(em interfaces.Emitter, evt any) {
	if em == nil {
		return
	}
	if err := em.Emit(evt); err != nil {
		log.Debug("发布事件失败", "event", evt, "error", err)
	}
}

// ============================================================================
//                              查询
// ============================================================================

// State 当前会话状态
func (o *Orchestrator) State() types.SessionState {
	return o.sess.State()
}

// CurrentRoom 当前房间投影的副本，没有房间时为 nil
func (o *Orchestrator) CurrentRoom() *types.Room {
	return o.sess.Room()
}

// Identity 已登录身份，未登录时为零值
func (o *Orchestrator) Identity() types.Identity {
	return o.sess.Identity()
}

// ============================================================================
//                              连接命令
// ============================================================================

// PlayNow 快速加入任一房间，没有可加入房间时以默认名称与容量创建
func (o *Orchestrator) PlayNow(ctx context.Context) error {
	return o.connect(ctx, "play_now", func(ctx context.Context, token session.Token) (*directory.Lease, error) {
		lease, err := o.dir.QuickJoin(ctx)
		if err != nil || lease != nil {
			return lease, err
		}
		if !o.sess.Valid(token) {
			return nil, types.ErrSessionAborted
		}
		log.Info("没有可加入的房间，创建新房间")
		return o.dir.CreateRoom(ctx, o.cfg.Room.DefaultName, o.cfg.Room.DefaultSize)
	})
}

// Create 创建房间并以主机身份启动
func (o *Orchestrator) Create(ctx context.Context, name string, size int) error {
	return o.connect(ctx, "create", func(ctx context.Context, _ session.Token) (*directory.Lease, error) {
		return o.dir.CreateRoom(ctx, name, size)
	})
}

// Join 通过房间码或房间 ID 加入并以客户端身份启动
func (o *Orchestrator) Join(ctx context.Context, target JoinTarget) error {
	if target.Code == "" && target.ID == "" {
		return types.PreconditionError("join", types.ErrInvalidTarget)
	}
	return o.connect(ctx, "join", func(ctx context.Context, _ session.Token) (*directory.Lease, error) {
		if target.Code != "" {
			return o.dir.JoinRoomByCode(ctx, target.Code)
		}
		return o.dir.JoinRoomByID(ctx, target.ID)
	})
}

type acquireFunc func(ctx context.Context, token session.Token) (*directory.Lease, error)

// connect 连接工作流
func (o *Orchestrator) connect(ctx context.Context, op string, acquire acquireFunc) error {
	if o.closed.Load() {
		return types.PreconditionError(op, ErrClosed)
	}
	token, err := o.sess.Begin()
	if err != nil {
		log.Debug("拒绝并发的会话命令", "op", op, "state", o.sess.State())
		return err
	}
	log.Info("会话工作流开始", "op", op)

	if _, err := o.gateway.EnsureAuthenticated(ctx); err != nil {
		o.abortAuth(token, err)
		return err
	}
	if err := o.sess.Transition(token, types.StateRoomPending); err != nil {
		return err
	}

	lease, err := acquire(ctx, token)
	if err != nil {
		return o.abort(token, err)
	}
	if err := o.sess.CommitRoom(token, lease.Room, &lease.Allocation); err != nil {
		o.release(lease)
		return err
	}
	o.emit(o.emitters.roomJoined, types.EvtRoomJoined{
		RoomID: lease.Room.ID,
		Code:   lease.Room.JoinCode,
		Name:   lease.Room.Name,
		IsHost: lease.Host,
	})

	if err := o.sub.Subscribe(ctx, token, lease.Room); err != nil {
		return o.abort(token, err)
	}
	if err := o.sess.Transition(token, types.StateConnecting); err != nil {
		o.releaseAborted(token)
		return o.abort(token, err)
	}

	if lease.Host {
		err = o.sup.StartAsHost(ctx, token, lease.Allocation.ServerData)
	} else {
		err = o.sup.StartAsClient(ctx, token, lease.Allocation.ServerData)
	}
	if err != nil {
		o.releaseAborted(token)
		return o.abort(token, err)
	}

	if err := o.sess.Transition(token, types.StateInGame); err != nil {
		o.releaseAborted(token)
		return o.abort(token, err)
	}
	o.emit(o.emitters.ready, types.EvtSessionReady{RoomID: lease.Room.ID, IsHost: lease.Host})
	log.Info("会话就绪",
		"room", logger.TruncateID(lease.Room.ID, 8),
		"code", lease.Room.JoinCode,
		"host", lease.Host)
	return nil
}

// abort 工作流失败：令牌仍有效时执行拆除
//
// 令牌已失效说明拆除已由其他来源完成，只返回 ErrSessionAborted。
func (o *Orchestrator) abort(token session.Token, err error) error {
	if errors.Is(err, types.ErrSessionAborted) || !o.sess.Valid(token) {
		log.Debug("工作流被并发拆除中止", "error", err)
		return types.ErrSessionAborted
	}
	reason := types.ReasonForError(err)
	log.Warn("会话工作流失败", "reason", reason, "error", err)
	if terr := o.teardown(context.Background(), &token, reason, err); terr != nil {
		log.Debug("失败后的拆除存在错误", "error", terr)
	}
	return err
}

// abortAuth 登录失败：没有创建任何资源，只回到 Disconnected
func (o *Orchestrator) abortAuth(token session.Token, err error) {
	o.teardownMu.Lock()
	defer o.teardownMu.Unlock()
	if !o.sess.Valid(token) {
		return
	}
	from := o.sess.Reset()
	log.Warn("登录失败，会话中止", "error", err)
	if from != types.StateDisconnected {
		o.emitEnded(types.ReasonAuthFailed, err)
	}
}

// release 释放未能提交到会话的租约
func (o *Orchestrator) release(lease *directory.Lease) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := o.dir.Release(ctx, lease); err != nil {
		log.Warn("释放未提交的房间失败", "room", logger.TruncateID(lease.Room.ID, 8), "error", err)
	}
}

// releaseAborted 释放被并发拆除的工作流在拆除之后才建立的订阅与传输层
//
// 令牌仍有效时由随后的拆除负责清理。订阅与传输层按令牌归属释放，
// 不会触及之后工作流建立的资源。
func (o *Orchestrator) releaseAborted(token session.Token) {
	// 等待并发的拆除结束
	o.teardownMu.Lock()
	valid := o.sess.Valid(token)
	o.teardownMu.Unlock()
	if valid {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := o.sub.UnsubscribeFor(ctx, token); err != nil {
		log.Debug("释放中止工作流的订阅失败", "error", err)
	}
	if o.sup.Release(token) {
		log.Debug("已关闭被中止工作流启动的传输层")
	}
}

// ============================================================================
//                              房间命令
// ============================================================================

// Leave 离开当前会话，Disconnected 时为空操作
func (o *Orchestrator) Leave(ctx context.Context) error {
	return o.Teardown(ctx, types.ReasonLeft)
}

// LockCurrentRoom 锁定当前房间（仅房主）
func (o *Orchestrator) LockCurrentRoom(ctx context.Context) (*types.Room, error) {
	room, err := o.dir.LockRoom(ctx)
	if err != nil {
		return nil, err
	}
	o.emit(o.emitters.roomUpdated, types.EvtRoomUpdated{Room: room.Clone()})
	return room, nil
}

// Kick 将成员移出当前房间（仅房主）
func (o *Orchestrator) Kick(ctx context.Context, playerID string) error {
	return o.dir.KickPlayer(ctx, playerID)
}

// Rooms 列出可加入的房间，必要时先登录
func (o *Orchestrator) Rooms(ctx context.Context, max int) ([]types.RoomSummary, error) {
	if _, err := o.gateway.EnsureAuthenticated(ctx); err != nil {
		return nil, err
	}
	return o.dir.FindOpenRooms(ctx, max)
}

// Close 拆除当前会话并拒绝后续命令
func (o *Orchestrator) Close(ctx context.Context) error {
	if !o.closed.CompareAndSwap(false, true) {
		return nil
	}
	return o.Teardown(ctx, types.ReasonQuit)
}

// invalidated 通知或传输事件使 token 所属会话失效
//
// 令牌在拆除锁内核对，已结束会话的迟到事件不会影响之后的会话。
func (o *Orchestrator) invalidated(token session.Token, reason types.EndReason, cause error) {
	log.Info("会话失效", "reason", reason)
	if err := o.teardown(context.Background(), &token, reason, cause); err != nil {
		log.Debug("失效拆除存在错误", "error", err)
	}
}
