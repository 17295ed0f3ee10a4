// Package types 定义 go-lobby 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 go-lobby 内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - identity.go     - Identity, Player, LocalClientID 派生
//   - room.go         - Room, RoomSummary, RoomChange, RoomPatch, 元数据键
//   - relay.go        - RelayAllocation, JoinAllocation, RelayServerData
//   - transport.go    - TransportConfig, TransportRole, EncryptionMode
//   - session.go      - SessionState, EndReason, SubscriptionState
//   - events.go       - 对外信号（EvtSignedIn, EvtRoomJoined, EvtSessionReady, EvtSessionEnded ...）
//   - errors.go       - 错误分类（Kind）与哨兵错误
//
// # 远端记录与本地投影
//
// Room 既表示目录服务返回的远端记录快照，也表示会话持有的本地投影。
// 两者之间只有单向同步：目录通知 → 本地投影。所有跨模块传递的 Room
// 都应通过 Clone 复制，避免共享可变切片和 map。
package types
