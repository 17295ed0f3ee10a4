package lobby

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 尚未启动
	ErrNotStarted = errors.New("lobby not started")

	// ErrAlreadyStarted 已启动
	ErrAlreadyStarted = errors.New("lobby already started")

	// ErrClosed 已关闭
	ErrClosed = errors.New("lobby closed")

	// ErrMissingBackends 未提供完整的外部服务
	ErrMissingBackends = errors.New("identity, directory, relay and transport backends are required")
)
