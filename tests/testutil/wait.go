// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"testing"
	"time"

	pkgif "github.com/dep2p/go-lobby/pkg/interfaces"
)

// WaitForCondition 等待条件满足或超时
//
// 返回：条件是否满足（超时返回 false）
func WaitForCondition(t *testing.T, timeout time.Duration, interval time.Duration, condition func() bool) bool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if condition() {
		return true
	}

	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if condition() {
				return true
			}
		}
	}
}

// WaitForConditionOrFail 等待条件满足，超时则 fail 测试
func WaitForConditionOrFail(t *testing.T, timeout time.Duration, interval time.Duration, condition func() bool, msg string) {
	t.Helper()

	if !WaitForCondition(t, timeout, interval, condition) {
		t.Fatalf("等待超时: %s", msg)
	}
}

// Eventually 在指定时间内重试条件检查（间隔 10ms）
//
// 示例:
//
//	testutil.Eventually(t, time.Second, func() bool {
//	    return orch.State() == types.StateDisconnected
//	}, "应该回到 Disconnected")
func Eventually(t *testing.T, timeout time.Duration, condition func() bool, msg string) {
	t.Helper()
	WaitForConditionOrFail(t, timeout, 10*time.Millisecond, condition, msg)
}

// WaitForEvent 从订阅中读取下一个事件，超时则失败
func WaitForEvent[T any](t *testing.T, sub pkgif.Subscription, timeout time.Duration) T {
	t.Helper()

	select {
	case evt, ok := <-sub.Out():
		if !ok {
			t.Fatalf("订阅已关闭")
		}
		typed, ok := evt.(T)
		if !ok {
			t.Fatalf("事件类型不符: %T", evt)
		}
		return typed
	case <-time.After(timeout):
		var zero T
		t.Fatalf("等待事件超时: %T", zero)
		return zero
	}
}

// NoEvent 断言在 wait 时间内没有收到事件
func NoEvent(t *testing.T, sub pkgif.Subscription, wait time.Duration) {
	t.Helper()

	select {
	case evt, ok := <-sub.Out():
		if ok {
			t.Fatalf("不应收到事件: %#v", evt)
		}
	case <-time.After(wait):
	}
}

// Drain 读取订阅中当前缓冲的全部事件
func Drain(sub pkgif.Subscription) []any {
	var out []any
	for {
		select {
		case evt, ok := <-sub.Out():
			if !ok {
				return out
			}
			out = append(out, evt)
		default:
			return out
		}
	}
}
