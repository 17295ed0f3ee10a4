package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              错误分类
// ============================================================================

// ErrorKind 错误类别
type ErrorKind int

const (
	// KindUnknown 未分类
	KindUnknown ErrorKind = iota
	// KindAuth 身份服务错误
	KindAuth
	// KindRoom 房间目录服务错误
	KindRoom
	// KindRelay 中继服务错误
	KindRelay
	// KindTransport 传输层错误
	KindTransport
	// KindPrecondition 前置条件不满足
	KindPrecondition
)

// String 返回类别名
func (k ErrorKind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRoom:
		return "room"
	case KindRelay:
		return "relay"
	case KindTransport:
		return "transport"
	case KindPrecondition:
		return "precondition"
	default:
		return "unknown"
	}
}

// Error 带类别的错误
//
// 所有外部调用封装都返回 *Error，调用方通过 KindOf / errors.Is 分支。
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap 返回底层错误
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 创建带类别的错误
//
// err 已经是 *Error 时保留其原始类别，不重复包装。
func NewError(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// AuthError 身份服务错误
func AuthError(op string, err error) error { return NewError(KindAuth, op, err) }

// RoomError 房间目录服务错误
func RoomError(op string, err error) error { return NewError(KindRoom, op, err) }

// RelayError 中继服务错误
func RelayError(op string, err error) error { return NewError(KindRelay, op, err) }

// TransportError 传输层错误
func TransportError(op string, err error) error { return NewError(KindTransport, op, err) }

// PreconditionError 前置条件错误
func PreconditionError(op string, err error) error { return NewError(KindPrecondition, op, err) }

// KindOf 返回错误类别，非 *Error 返回 KindUnknown
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// Is 等价于 errors.Is
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// ============================================================================
//                              房间目录错误
// ============================================================================

var (
	// ErrRoomNotFound 房间不存在（或没有可加入的房间）
	ErrRoomNotFound = errors.New("room not found")

	// ErrAlreadySubscribed 已订阅该房间的通知
	ErrAlreadySubscribed = errors.New("already subscribed")

	// ErrAlreadyUnsubscribed 订阅已释放
	ErrAlreadyUnsubscribed = errors.New("already unsubscribed")

	// ErrServiceUnavailable 服务不可用
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrRoomLocked 房间已锁定
	ErrRoomLocked = errors.New("room is locked")

	// ErrRoomFull 房间已满
	ErrRoomFull = errors.New("room is full")

	// ErrNotHost 仅房主可执行
	ErrNotHost = errors.New("not the room host")

	// ErrNotMember 不是房间成员
	ErrNotMember = errors.New("not a room member")

	// ErrRateLimited 请求过于频繁
	ErrRateLimited = errors.New("rate limited")
)

// ============================================================================
//                              中继错误
// ============================================================================

var (
	// ErrJoinCodeNotFound 中继加入码无效或已过期
	ErrJoinCodeNotFound = errors.New("relay join code not found")

	// ErrAllocationNotFound 分配不存在
	ErrAllocationNotFound = errors.New("relay allocation not found")

	// ErrAllocationFull 分配已满
	ErrAllocationFull = errors.New("relay allocation full")
)

// ============================================================================
//                              传输错误
// ============================================================================

var (
	// ErrAlreadyListening 传输层已在监听（前置条件违例，不重试）
	ErrAlreadyListening = errors.New("transport already listening")

	// ErrHandshakeTimeout 等待连接超时
	ErrHandshakeTimeout = errors.New("connection handshake timeout")

	// ErrTransportFailure 传输层故障
	ErrTransportFailure = errors.New("transport failure")

	// ErrNotConfigured 传输层未配置
	ErrNotConfigured = errors.New("transport not configured")
)

// ============================================================================
//                              会话错误
// ============================================================================

var (
	// ErrNoRoom 当前没有连接的房间
	ErrNoRoom = errors.New("no room connected")

	// ErrSessionBusy 已有会话工作流在进行
	ErrSessionBusy = errors.New("session workflow already in progress")

	// ErrSessionAborted 工作流被并发的拆除中止
	ErrSessionAborted = errors.New("session aborted")

	// ErrInvalidTarget 加入目标无效（code 和 id 均为空）
	ErrInvalidTarget = errors.New("join target requires a code or an id")

	// ErrNotAuthenticated 尚未登录
	ErrNotAuthenticated = errors.New("not authenticated")
)
