package notify

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dep2p/go-lobby/internal/core/metrics"
	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

var log = logger.Logger("notify")

// Hooks 订阅者向编排器回报的钩子
type Hooks struct {
	// OnRoomUpdated 本地投影发生变化后调用，room 为副本
	OnRoomUpdated func(room *types.Room, diff types.RoomDiff)

	// OnInvalidated 房间被删除或被踢出时在回调内同步调用
	//
	// token 为建立该订阅的会话令牌，调用方据此判断失效是否仍针对当前会话。
	OnInvalidated func(token session.Token, reason types.EndReason)
}

// Subscriber 房间通知订阅者
type Subscriber struct {
	svc     interfaces.DirectoryService
	sess    *session.Session
	metrics *metrics.Collector

	mu     sync.Mutex
	state  types.SubscriptionState
	roomID string
	token  session.Token
	handle interfaces.SubscriptionHandle
	gen    uint64
	hooks  Hooks
}

// NewSubscriber 创建订阅者
func NewSubscriber(svc interfaces.DirectoryService, sess *session.Session, m *metrics.Collector) *Subscriber {
	return &Subscriber{
		svc:     svc,
		sess:    sess,
		metrics: m,
		state:   types.SubUnsubscribed,
	}
}

// SetHooks 设置钩子
func (s *Subscriber) SetHooks(h Hooks) {
	s.mu.Lock()
	s.hooks = h
	s.mu.Unlock()
}

// State 当前订阅状态
func (s *Subscriber) State() types.SubscriptionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RoomID 当前订阅的房间
func (s *Subscriber) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// Active 是否持有订阅
func (s *Subscriber) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != types.SubUnsubscribed && s.state != types.SubError
}

// ============================================================================
//                              订阅 / 退订
// ============================================================================

// Subscribe 为 token 所属会话订阅房间通知
//
// 已为同一会话订阅同一房间时直接返回；否则先释放旧订阅。
// 后端报告 ErrAlreadySubscribed 视为成功。订阅完成时会话已失效则立即释放新句柄，
// 返回 ErrSessionAborted。
func (s *Subscriber) Subscribe(ctx context.Context, token session.Token, room *types.Room) error {
	if room == nil {
		return types.PreconditionError("subscribe", types.ErrNoRoom)
	}

	s.mu.Lock()
	if s.roomID == room.ID && s.token == token && s.holding() {
		s.mu.Unlock()
		log.Debug("已订阅该房间，忽略重复订阅", "room", logger.TruncateID(room.ID, 8))
		return nil
	}
	stale := s.release()
	s.gen++
	gen := s.gen
	s.roomID = room.ID
	s.token = token
	s.state = types.SubSubscribing
	s.mu.Unlock()

	if stale != nil {
		s.unsubscribeHandle(ctx, stale)
	}

	handle, err := s.svc.Subscribe(ctx, room.ID, s.callbacks(gen, token, room.ID))
	if errors.Is(err, types.ErrAlreadySubscribed) {
		log.Debug("后端报告重复订阅，视为成功", "room", logger.TruncateID(room.ID, 8))
		err = nil
	}
	s.metrics.DirectoryCall("subscribe", err)

	s.mu.Lock()
	if s.gen != gen {
		// 订阅期间已被释放
		s.mu.Unlock()
		if handle != nil {
			s.unsubscribeHandle(context.WithoutCancel(ctx), handle)
		}
		return types.ErrSessionAborted
	}
	if err != nil {
		s.state = types.SubError
		s.mu.Unlock()
		log.Warn("订阅房间通知失败", "room", logger.TruncateID(room.ID, 8), "error", err)
		return types.RoomError("subscribe", err)
	}
	// 拆除先使令牌失效再释放订阅
	if !s.sess.ValidRoom(token) {
		s.release()
		s.mu.Unlock()
		log.Debug("订阅期间会话已拆除，释放新订阅", "room", logger.TruncateID(room.ID, 8))
		if handle != nil {
			s.unsubscribeHandle(context.WithoutCancel(ctx), handle)
		}
		return types.ErrSessionAborted
	}
	s.handle = handle
	s.state = types.SubSubscribed
	s.mu.Unlock()
	log.Debug("已订阅房间通知", "room", logger.TruncateID(room.ID, 8))
	return nil
}

// Unsubscribe 释放订阅，未订阅时为空操作
func (s *Subscriber) Unsubscribe(ctx context.Context) error {
	s.mu.Lock()
	handle := s.release()
	s.mu.Unlock()

	if handle == nil {
		return nil
	}
	return s.unsubscribeHandle(ctx, handle)
}

// UnsubscribeFor 释放 token 所属会话的订阅
//
// 当前订阅属于其他会话时为空操作。
func (s *Subscriber) UnsubscribeFor(ctx context.Context, token session.Token) error {
	s.mu.Lock()
	if s.token != token || s.state == types.SubUnsubscribed {
		s.mu.Unlock()
		return nil
	}
	handle := s.release()
	s.mu.Unlock()

	if handle == nil {
		return nil
	}
	return s.unsubscribeHandle(ctx, handle)
}

func (s *Subscriber) holding() bool {
	switch s.state {
	case types.SubSubscribed, types.SubSubscribing, types.SubUnsynced:
		return true
	}
	return false
}

// release 清除订阅状态并返回待释放的句柄（调用方持有锁）
func (s *Subscriber) release() interfaces.SubscriptionHandle {
	handle := s.handle
	s.handle = nil
	s.roomID = ""
	s.token = 0
	s.state = types.SubUnsubscribed
	s.gen++
	return handle
}

func (s *Subscriber) unsubscribeHandle(ctx context.Context, handle interfaces.SubscriptionHandle) error {
	err := handle.Unsubscribe(ctx)
	if errors.Is(err, types.ErrAlreadyUnsubscribed) {
		err = nil
	}
	s.metrics.DirectoryCall("unsubscribe", err)
	if err != nil {
		log.Warn("释放房间订阅失败", "room", logger.TruncateID(handle.RoomID(), 8), "error", err)
		return types.RoomError("unsubscribe", err)
	}
	return nil
}

// ============================================================================
//                              回调
// ============================================================================

// current 回调所属订阅是否仍然有效，有效时返回钩子
func (s *Subscriber) current(gen uint64) (Hooks, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state == types.SubUnsubscribed {
		return Hooks{}, false
	}
	return s.hooks, true
}

func (s *Subscriber) callbacks(gen uint64, token session.Token, roomID string) interfaces.RoomCallbacks {
	return interfaces.RoomCallbacks{
		OnChanged: func(change types.RoomChange) {
			hooks, ok := s.current(gen)
			if !ok {
				return
			}
			if change.Deleted {
				log.Info("房间已被删除", "room", logger.TruncateID(roomID, 8))
				s.invalidate(hooks, token, types.ReasonRoomDeleted)
				return
			}
			var diff types.RoomDiff
			room, changed := s.sess.UpdateRoom(roomID, func(r *types.Room) bool {
				wasFull := r.IsFull()
				var applied bool
				diff, applied = change.Apply(r)
				if applied && wasFull != r.IsFull() {
					logFullness(r)
				}
				return applied
			})
			if changed && diff.LockChanged {
				log.Info("房间锁定状态变化", "room", logger.TruncateID(roomID, 8), "locked", room.IsLocked)
			}
			s.updated(hooks, room, changed, diff)
		},

		OnPlayerJoined: func(players []types.Player) {
			hooks, ok := s.current(gen)
			if !ok {
				return
			}
			room, changed := s.sess.UpdateRoom(roomID, func(r *types.Room) bool {
				wasFull := r.IsFull()
				added := false
				for _, p := range players {
					if r.AddPlayer(p) {
						added = true
					}
				}
				if added && wasFull != r.IsFull() {
					logFullness(r)
				}
				return added
			})
			if changed {
				log.Info("玩家加入", "room", logger.TruncateID(roomID, 8), "count", len(players), "players", room.PlayerCount())
			}
			s.updated(hooks, room, changed, types.RoomDiff{})
		},

		OnPlayerLeft: func(ids []string) {
			hooks, ok := s.current(gen)
			if !ok {
				return
			}
			if self := s.sess.Identity().PlayerID; self != "" && slices.Contains(ids, self) {
				log.Info("本地玩家被移出房间", "room", logger.TruncateID(roomID, 8))
				s.invalidate(hooks, token, types.ReasonKicked)
				return
			}
			room, changed := s.sess.UpdateRoom(roomID, func(r *types.Room) bool {
				wasEmpty := r.PlayerCount() == 0
				removed := false
				for _, id := range ids {
					if r.RemovePlayer(id) {
						removed = true
					}
				}
				if removed && !wasEmpty && r.PlayerCount() <= 1 {
					log.Debug("房间只剩房主", "room", logger.TruncateID(roomID, 8))
				}
				return removed
			})
			if changed {
				log.Info("玩家离开", "room", logger.TruncateID(roomID, 8), "count", len(ids), "players", room.PlayerCount())
			}
			s.updated(hooks, room, changed, types.RoomDiff{})
		},

		OnKicked: func() {
			hooks, ok := s.current(gen)
			if !ok {
				return
			}
			log.Info("被踢出房间", "room", logger.TruncateID(roomID, 8))
			s.invalidate(hooks, token, types.ReasonKicked)
		},

		OnConnectionStateChanged: func(state types.SubscriptionState) {
			s.mu.Lock()
			if s.gen != gen || s.state == types.SubUnsubscribed {
				s.mu.Unlock()
				return
			}
			from := s.state
			if state == types.SubUnsubscribed {
				// 后端主动断开：句柄已失效
				s.handle = nil
				s.roomID = ""
				s.token = 0
				s.gen++
			}
			s.state = state
			s.mu.Unlock()
			if from != state {
				log.Info("通知连接状态变化", "room", logger.TruncateID(roomID, 8), "from", from, "to", state)
			}
		},
	}
}

func (s *Subscriber) updated(hooks Hooks, room *types.Room, changed bool, diff types.RoomDiff) {
	if !changed || hooks.OnRoomUpdated == nil {
		return
	}
	hooks.OnRoomUpdated(room, diff)
}

func (s *Subscriber) invalidate(hooks Hooks, token session.Token, reason types.EndReason) {
	if hooks.OnInvalidated == nil {
		log.Warn("房间已失效但未设置失效钩子", "reason", reason)
		return
	}
	hooks.OnInvalidated(token, reason)
}

func logFullness(r *types.Room) {
	if r.IsFull() {
		log.Info("房间已满", "room", logger.TruncateID(r.ID, 8), "capacity", r.Capacity)
	} else {
		log.Info("房间有空位", "room", logger.TruncateID(r.ID, 8), "available", r.AvailableSlots())
	}
}
