package types

import "fmt"

// ============================================================================
//                              SessionState - 会话状态
// ============================================================================

// SessionState 会话状态
type SessionState int

const (
	// StateDisconnected 未连接（初始状态，也是拆除后的状态）
	StateDisconnected SessionState = iota
	// StateAuthenticating 登录中
	StateAuthenticating
	// StateRoomPending 创建/加入房间中
	StateRoomPending
	// StateRoomActive 已持有房间，正在订阅通知
	StateRoomActive
	// StateConnecting 传输层连接中
	StateConnecting
	// StateInGame 已连接，游戏进行中
	StateInGame
)

// String 返回状态名
func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateAuthenticating:
		return "authenticating"
	case StateRoomPending:
		return "room_pending"
	case StateRoomActive:
		return "room_active"
	case StateConnecting:
		return "connecting"
	case StateInGame:
		return "in_game"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ============================================================================
//                              EndReason - 会话结束原因
// ============================================================================

// EndReason 会话结束原因（OnSessionEnded 的参数）
type EndReason string

const (
	// ReasonLeft 用户主动离开
	ReasonLeft EndReason = "left"
	// ReasonKicked 被房主踢出
	ReasonKicked EndReason = "kicked"
	// ReasonRoomDeleted 房间被删除
	ReasonRoomDeleted EndReason = "room_deleted"
	// ReasonTransportFailure 传输层故障
	ReasonTransportFailure EndReason = "transport_failure"
	// ReasonDisconnected 本地客户端被断开
	ReasonDisconnected EndReason = "disconnected"
	// ReasonQuit 进程退出
	ReasonQuit EndReason = "quit"

	// 失败类别（工作流中止）

	// ReasonAuthFailed 登录失败
	ReasonAuthFailed EndReason = "auth"
	// ReasonRoomFailed 房间服务失败
	ReasonRoomFailed EndReason = "room"
	// ReasonRelayFailed 中继服务失败
	ReasonRelayFailed EndReason = "relay"
	// ReasonTransportFailed 传输层启动失败
	ReasonTransportFailed EndReason = "transport"
	// ReasonTimeout 连接超时
	ReasonTimeout EndReason = "timeout"
)

// ReasonForError 返回错误对应的失败类别
func ReasonForError(err error) EndReason {
	switch KindOf(err) {
	case KindAuth:
		return ReasonAuthFailed
	case KindRelay:
		return ReasonRelayFailed
	case KindTransport:
		if Is(err, ErrHandshakeTimeout) {
			return ReasonTimeout
		}
		return ReasonTransportFailed
	default:
		return ReasonRoomFailed
	}
}

// ============================================================================
//                              SubscriptionState - 通知订阅状态
// ============================================================================

// SubscriptionState 通知订阅状态
type SubscriptionState int

const (
	// SubUnsubscribed 未订阅
	SubUnsubscribed SubscriptionState = iota
	// SubSubscribing 订阅中
	SubSubscribing
	// SubSubscribed 已订阅
	SubSubscribed
	// SubUnsynced 连接中断，正在重新同步
	SubUnsynced
	// SubError 订阅出错
	SubError
)

// String 返回状态名
func (s SubscriptionState) String() string {
	switch s {
	case SubUnsubscribed:
		return "unsubscribed"
	case SubSubscribing:
		return "subscribing"
	case SubSubscribed:
		return "subscribed"
	case SubUnsynced:
		return "unsynced"
	case SubError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}
