package redisdir

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

// subscription 房间频道订阅
//
// 回调在读取频道的 goroutine 中串行执行。
type subscription struct {
	dir *Directory
	key subKey
	cb  interfaces.RoomCallbacks

	mu     sync.Mutex
	ps     *redis.PubSub
	closed bool
}

var _ interfaces.SubscriptionHandle = (*subscription)(nil)

// RoomID 订阅的房间
func (s *subscription) RoomID() string {
	return s.key.roomID
}

// Unsubscribe 释放订阅，不等待正在执行的回调
func (s *subscription) Unsubscribe(_ context.Context) error {
	if !s.release() {
		return types.ErrAlreadyUnsubscribed
	}
	return nil
}

// release 关闭订阅，返回是否由本次调用关闭
func (s *subscription) release() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	ps := s.ps
	s.mu.Unlock()

	s.dir.forget(s)
	if ps != nil {
		_ = ps.Close()
	}
	return true
}

// attach 绑定已确认的频道订阅，订阅已被释放时返回 false
func (s *subscription) attach(ps *redis.PubSub) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.ps = ps
	return true
}

func (s *subscription) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *subscription) run(ch <-chan *redis.Message) {
	for msg := range ch {
		if !s.active() {
			return
		}
		e, err := decodeEnvelope(msg.Payload)
		if err != nil {
			log.Warn("忽略无法解析的房间推送", "room", logger.TruncateID(s.key.roomID, 8), "error", err)
			continue
		}
		if !s.dispatch(e) {
			s.release()
			return
		}
	}
}

// dispatch 投递一条推送，返回订阅是否继续
func (s *subscription) dispatch(e envelope) bool {
	cb := s.cb
	switch e.Type {
	case evtChanged:
		if e.Change == nil {
			return true
		}
		if cb.OnChanged != nil {
			cb.OnChanged(*e.Change)
		}
		return !e.Change.Deleted

	case evtJoined:
		if cb.OnPlayerJoined != nil {
			cb.OnPlayerJoined(e.Players)
		}

	case evtLeft:
		if e.mentions(s.key.playerID) {
			// 本人离开时服务端释放订阅；被踢时先通知
			if e.Kicked && cb.OnKicked != nil {
				cb.OnKicked()
			}
			return false
		}
		if cb.OnPlayerLeft != nil {
			cb.OnPlayerLeft(e.PlayerIDs)
		}
	}
	return true
}

func (d *Directory) forget(s *subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.subs[s.key] == s {
		delete(d.subs, s.key)
	}
}
