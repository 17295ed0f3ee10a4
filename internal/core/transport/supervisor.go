package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/core/metrics"
	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

var log = logger.Logger("transport")

// ObserverName 生命周期回调在会话观察者表中的登记名
const ObserverName = "transport"

// InvalidateFunc 传输事件使会话失效时调用，token 为启动传输层的会话令牌
type InvalidateFunc func(token session.Token, reason types.EndReason, err error)

// Supervisor 传输层监管者
type Supervisor struct {
	tr      interfaces.Transport
	sess    *session.Session
	clk     clock.Clock
	metrics *metrics.Collector

	ticks      int
	poll       time.Duration
	encryption types.EncryptionMode

	// startMu 串行化启动与 Release
	startMu sync.Mutex

	mu         sync.Mutex
	role       types.TransportRole
	owner      session.Token
	invalidate InvalidateFunc
}

// NewSupervisor 创建监管者
func NewSupervisor(tr interfaces.Transport, sess *session.Session, clk clock.Clock, cfg *config.Config, m *metrics.Collector) *Supervisor {
	if clk == nil {
		clk = clock.New()
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Supervisor{
		tr:         tr,
		sess:       sess,
		clk:        clk,
		metrics:    m,
		ticks:      cfg.Transport.ConnectTimeoutTicks,
		poll:       cfg.Transport.PollInterval.Duration(),
		encryption: types.EncryptionMode(cfg.Transport.Encryption),
		role:       types.RoleNone,
	}
}

// SetInvalidateFunc 设置失效钩子
func (s *Supervisor) SetInvalidateFunc(fn InvalidateFunc) {
	s.mu.Lock()
	s.invalidate = fn
	s.mu.Unlock()
}

// Role 最近一次启动的角色
func (s *Supervisor) Role() types.TransportRole {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// ============================================================================
//                              启动
// ============================================================================

// StartAsHost 以主机身份启动并等待连接
func (s *Supervisor) StartAsHost(ctx context.Context, token session.Token, data types.RelayServerData) error {
	return s.start(ctx, token, types.RoleHost, data, s.tr.StartHost)
}

// StartAsClient 以客户端身份启动并等待连接
func (s *Supervisor) StartAsClient(ctx context.Context, token session.Token, data types.RelayServerData) error {
	return s.start(ctx, token, types.RoleClient, data, s.tr.StartClient)
}

// StartAsServer 以专用服务器身份启动并等待监听
func (s *Supervisor) StartAsServer(ctx context.Context, token session.Token, data types.RelayServerData) error {
	return s.start(ctx, token, types.RoleServer, data, s.tr.StartServer)
}

func (s *Supervisor) start(ctx context.Context, token session.Token, role types.TransportRole, data types.RelayServerData, startFn func() error) error {
	if err := s.launch(token, role, data, startFn); err != nil {
		return err
	}
	s.metrics.SessionStarted(role)

	if !s.WaitForConnection(ctx, token, s.ticks, s.poll) {
		switch {
		case !s.sess.ValidRoom(token):
			return types.ErrSessionAborted
		case ctx.Err() != nil:
			return types.TransportError("wait", ctx.Err())
		default:
			log.Warn("等待连接超时", "role", role, "ticks", s.ticks, "poll", s.poll)
			return types.TransportError("wait", types.ErrHandshakeTimeout)
		}
	}
	s.metrics.SessionReady(role)
	log.Info("传输层连接完成", "role", role)
	return nil
}

// launch 配置并启动传输层，不等待连接
func (s *Supervisor) launch(token session.Token, role types.TransportRole, data types.RelayServerData, startFn func() error) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	op := "start_" + role.String()
	if !s.sess.ValidRoom(token) {
		return types.ErrSessionAborted
	}
	if s.tr.IsListening() {
		log.Error("传输层已在监听，拒绝重复启动", "role", role)
		return types.TransportError(op, types.ErrAlreadyListening)
	}

	enc := s.encryption
	if !enc.Valid() {
		enc = types.EncryptionDTLS
	}
	err := s.tr.Configure(types.TransportConfig{
		RelayData:     data,
		Encryption:    enc,
		LocalClientID: s.sess.Identity().LocalClientID,
	})
	if err != nil {
		return types.TransportError("configure", err)
	}

	s.sess.Track(ObserverName, s.tr.Notify(s.handlers(token)))

	if err := startFn(); err != nil {
		log.Warn("传输层启动失败", "role", role, "error", err)
		return types.TransportError(op, err)
	}

	// 启动成功后登记归属，启动期间的拆除不会清除它
	s.mu.Lock()
	s.role = role
	s.owner = token
	s.mu.Unlock()
	log.Info("传输层已启动，等待连接", "role", role, "encryption", enc)
	return nil
}

// ============================================================================
//                              等待连接
// ============================================================================

// WaitForConnection 有界轮询连接标志
//
// 每个 tick 先检查会话是否仍持有房间，再检查连接标志，最后检查预算。
// 连接完成返回 true；会话失效、ctx 取消或 tick 预算耗尽返回 false。
func (s *Supervisor) WaitForConnection(ctx context.Context, token session.Token, ticks int, poll time.Duration) bool {
	start := s.clk.Now()
	defer func() { s.metrics.ConnectWait(s.clk.Since(start)) }()

	for tick := 0; ; tick++ {
		if !s.sess.ValidRoom(token) {
			log.Debug("会话已失效，停止等待连接", "tick", tick)
			return false
		}
		if s.connected() {
			return true
		}
		if tick >= ticks {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-s.clk.After(poll):
		}
	}
}

func (s *Supervisor) connected() bool {
	if s.Role() == types.RoleServer {
		return s.tr.IsListening()
	}
	return s.tr.IsConnectedClient()
}

// ============================================================================
//                              生命周期回调
// ============================================================================

func (s *Supervisor) handlers(token session.Token) interfaces.TransportHandlers {
	return interfaces.TransportHandlers{
		OnTransportFailure: func() {
			log.Warn("传输层故障")
			s.fire(token, types.ReasonTransportFailure, types.ErrTransportFailure)
		},
		OnServerStarted: func() {
			log.Debug("服务端已启动")
		},
		OnServerStopped: func(wasHost bool) {
			log.Debug("服务端已停止", "wasHost", wasHost)
		},
		OnClientStarted: func() {
			log.Debug("客户端已启动")
		},
		OnClientStopped: func(wasHost bool) {
			log.Debug("客户端已停止", "wasHost", wasHost)
		},
		OnClientConnected: func(id uint64) {
			log.Debug("客户端已连接", "client", id)
		},
		OnClientDisconnected: func(id uint64) {
			// 每个进程都会收到所有对端的断开事件，只处理本地客户端
			if id != s.sess.Identity().LocalClientID {
				log.Debug("对端客户端断开", "client", id)
				return
			}
			log.Info("本地客户端被断开", "client", id)
			s.fire(token, types.ReasonDisconnected, errors.New("transport: local client disconnected"))
		},
	}
}

// fire 将失效交给钩子，由钩子在拆除锁内核对令牌
func (s *Supervisor) fire(token session.Token, reason types.EndReason, err error) {
	if !s.sess.Valid(token) {
		return
	}
	s.mu.Lock()
	fn := s.invalidate
	s.mu.Unlock()
	if fn != nil {
		fn(token, reason, err)
	}
}

// ============================================================================
//                              拆除
// ============================================================================

// Unsubscribe 取消生命周期回调，未登记时为空操作
func (s *Supervisor) Unsubscribe() bool {
	return s.sess.Drain(ObserverName)
}

// Release 关闭 token 所属工作流启动的传输层
//
// 传输层未由该令牌启动或已被关闭时为空操作，返回是否执行了关闭。
func (s *Supervisor) Release(token session.Token) bool {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	owned := s.owner == token && s.role != types.RoleNone
	s.mu.Unlock()
	if !owned {
		return false
	}
	s.Unsubscribe()
	return s.Shutdown()
}

// Shutdown 传输层在监听时将其关闭，返回是否执行了关闭
func (s *Supervisor) Shutdown() bool {
	s.mu.Lock()
	s.role = types.RoleNone
	s.owner = 0
	s.mu.Unlock()

	if !s.tr.IsListening() {
		return false
	}
	s.tr.Shutdown()
	log.Info("传输层已关闭")
	return true
}
