package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/types"
)

// 拆除步骤名（日志与指标标签）
const (
	stepNotifications = "unsubscribe_notifications"
	stepHandlers      = "unsubscribe_transport_handlers"
	stepHeartbeat     = "stop_heartbeat"
	stepDeleteRoom    = "delete_room"
	stepLeaveRoom     = "leave_room"
	stepTransport     = "shutdown_transport"
)

// Teardown 唯一的退出路径
//
// 可在任何状态、任何 goroutine 中重复调用；Disconnected 时为空操作。
// 每一步的失败只记录并继续，聚合后返回。
func (o *Orchestrator) Teardown(ctx context.Context, reason types.EndReason) error {
	return o.teardown(ctx, nil, reason, nil)
}

// teardown 执行拆除
//
// token 非 nil 时仅在该令牌仍有效时执行（工作流失败路径）。
func (o *Orchestrator) teardown(ctx context.Context, token *session.Token, reason types.EndReason, cause error) error {
	o.teardownMu.Lock()
	defer o.teardownMu.Unlock()

	if token != nil && !o.sess.Valid(*token) {
		return nil
	}
	snap := o.sess.Invalidate()
	if snap.State == types.StateDisconnected && snap.Room == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	start := time.Now()
	log.Info("开始拆除会话",
		"reason", reason,
		"state", snap.State,
		"room", roomID(snap.Room),
		"host", snap.IsHost())

	var errs error
	step := func(name string, err error) {
		if err == nil {
			return
		}
		log.Warn("拆除步骤失败", "step", name, "error", err)
		o.metrics.TeardownStepFailed(name)
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
	}

	// 1. 通知订阅
	step(stepNotifications, o.sub.Unsubscribe(ctx))

	// 2. 传输层生命周期回调
	if o.sup.Unsubscribe() {
		log.Debug("已取消传输层回调")
	}

	// 3. 心跳
	if o.hb.Stop() {
		log.Debug("已停止心跳")
	}

	// 4. 房间：房主删除，成员离开
	if snap.Room != nil {
		if snap.IsHost() {
			step(stepDeleteRoom, o.dir.DeleteRoom(ctx))
		} else {
			step(stepLeaveRoom, o.dir.LeaveRoom(ctx))
		}
	}

	// 5. 传输层
	if o.sup.Shutdown() {
		log.Debug("已关闭传输层")
	}

	// 6. 清除会话
	if n := o.sess.DrainAll(); n > 0 {
		log.Debug("已取消剩余观察者", "count", n)
	}
	from := o.sess.Reset()
	o.metrics.Teardown(reason)

	log.Info("会话已拆除",
		"reason", reason,
		"from", from,
		"elapsed", time.Since(start),
		"errors", len(multierr.Errors(errs)))

	if from != types.StateDisconnected {
		o.emitEnded(reason, cause)
	}
	return errs
}

func (o *Orchestrator) emitEnded(reason types.EndReason, cause error) {
	o.emit(o.emitters.ended, types.EvtSessionEnded{
		Reason:    reason,
		Err:       cause,
		Timestamp: time.Now(),
	})
}

func roomID(r *types.Room) string {
	if r == nil {
		return ""
	}
	return logger.TruncateID(r.ID, 8)
}
