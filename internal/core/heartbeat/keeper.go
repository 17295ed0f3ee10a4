// Package heartbeat 实现房间保活（HeartbeatKeeper）
//
// 房主持有房间期间按固定间隔向目录发送心跳，防止房间被回收。
// 心跳失败只记录日志与计数，不停止计时器；只有明确的房间删除、
// 被踢或传输故障才会结束会话。拆除时无条件停止。
package heartbeat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-lobby/internal/core/metrics"
	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
)

var log = logger.Logger("heartbeat")

// ErrInvalidInterval 心跳间隔无效
var ErrInvalidInterval = errors.New("heartbeat: interval must be positive")

// DefaultPingTimeout 单次心跳超时
const DefaultPingTimeout = 5 * time.Second

// Keeper 房间心跳维持器
type Keeper struct {
	dir     interfaces.DirectoryService
	clk     clock.Clock
	metrics *metrics.Collector

	mu     sync.Mutex
	roomID string
	cancel context.CancelFunc
	done   chan struct{}

	pings    atomic.Int64
	failures atomic.Int64
}

// NewKeeper 创建心跳维持器，clk 为 nil 时使用系统时钟
func NewKeeper(dir interfaces.DirectoryService, clk clock.Clock, m *metrics.Collector) *Keeper {
	if clk == nil {
		clk = clock.New()
	}
	return &Keeper{dir: dir, clk: clk, metrics: m}
}

// Start 开始对 roomID 发送心跳
//
// 已在运行时先停止旧的循环。
func (k *Keeper) Start(roomID string, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	k.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := k.clk.Ticker(interval)

	k.mu.Lock()
	k.roomID = roomID
	k.cancel = cancel
	k.done = done
	k.mu.Unlock()

	go k.loop(ctx, roomID, ticker, done)

	log.Debug("启动房间心跳",
		"room", logger.TruncateID(roomID, 8),
		"interval", interval)
	return nil
}

// Stop 停止心跳并等待循环退出，返回之前是否在运行
func (k *Keeper) Stop() bool {
	k.mu.Lock()
	cancel, done, roomID := k.cancel, k.done, k.roomID
	k.cancel, k.done, k.roomID = nil, nil, ""
	k.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	<-done

	log.Debug("停止房间心跳", "room", logger.TruncateID(roomID, 8))
	return true
}

// Running 是否正在运行
func (k *Keeper) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cancel != nil
}

// RoomID 当前心跳的房间
func (k *Keeper) RoomID() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.roomID
}

// Pings 已发送的心跳数
func (k *Keeper) Pings() int64 {
	return k.pings.Load()
}

// Failures 失败的心跳数
func (k *Keeper) Failures() int64 {
	return k.failures.Load()
}

func (k *Keeper) loop(ctx context.Context, roomID string, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.ping(ctx, roomID)
		}
	}
}

func (k *Keeper) ping(ctx context.Context, roomID string) {
	pingCtx, cancel := context.WithTimeout(ctx, DefaultPingTimeout)
	err := k.dir.Heartbeat(pingCtx, roomID)
	cancel()

	k.pings.Add(1)
	k.metrics.Heartbeat(err)
	if err != nil {
		// 取消导致的失败不计入
		if ctx.Err() != nil {
			return
		}
		n := k.failures.Add(1)
		log.Warn("房间心跳失败",
			"room", logger.TruncateID(roomID, 8),
			"failures", n,
			"error", err)
	}
}
