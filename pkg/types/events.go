package types

import "time"

// ============================================================================
//                              对外信号
// ============================================================================
//
// 编排器通过事件总线向游戏/UI 层发布以下信号。
// 订阅方式：bus.Subscribe(new(types.EvtSessionEnded))

// EvtSignedIn 首次登录成功
type EvtSignedIn struct {
	PlayerID    string
	DisplayName string
}

// EvtRoomJoined 已创建或加入房间
type EvtRoomJoined struct {
	RoomID string
	Code   string
	Name   string
	IsHost bool
}

// EvtRoomUpdated 本地房间投影发生变化（成员、锁定、元数据）
type EvtRoomUpdated struct {
	Room *Room
}

// EvtSessionReady 传输层连接完成，可以开始游戏
type EvtSessionReady struct {
	RoomID string
	IsHost bool
}

// EvtSessionEnded 会话结束（每个会话恰好一次）
type EvtSessionEnded struct {
	Reason EndReason

	// Err 失败类中止时的原因
	Err error

	Timestamp time.Time
}

// EvtStateChanged 会话状态变化
type EvtStateChanged struct {
	From SessionState
	To   SessionState
}
