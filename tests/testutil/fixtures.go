package testutil

import "time"

// 测试数据固件

const (
	// DefaultRoomName 默认测试房间名
	DefaultRoomName = "Test"

	// DefaultRoomSize 默认测试房间容量
	DefaultRoomSize = 4

	// ShortTimeout 等待异步事件的默认超时
	ShortTimeout = 2 * time.Second
)
