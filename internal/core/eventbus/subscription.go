package eventbus

import (
	"reflect"
	"sync"
	"sync/atomic"
)

// ============================================================================
//                              Subscription 实现
// ============================================================================

// Subscription 订阅
type Subscription struct {
	node      *node
	out       chan any
	closeOnce sync.Once
}

// Out 返回事件通道
func (s *Subscription) Out() <-chan any {
	return s.out
}

// Close 取消订阅，可重复调用
//
// 先从总线移除再关闭通道，之后不会再有发送。
func (s *Subscription) Close() error {
	s.node.removeSub(s)
	s.closeChannel()
	return nil
}

func (s *Subscription) closeChannel() {
	s.closeOnce.Do(func() {
		close(s.out)
	})
}

// ============================================================================
//                              Emitter 实现
// ============================================================================

// Emitter 事件发射器
type Emitter struct {
	node   *node
	closed atomic.Bool
}

// Emit 发射事件
//
// 事件的动态类型必须与创建发射器时的类型一致。
func (e *Emitter) Emit(event any) error {
	if e.closed.Load() {
		return ErrEmitterClosed
	}
	if reflect.TypeOf(event) != e.node.typ {
		return ErrWrongEventType
	}
	e.node.emit(event)
	return nil
}

// Close 关闭发射器
func (e *Emitter) Close() error {
	e.closed.Store(true)
	return nil
}
