package interfaces

import (
	"context"

	"github.com/dep2p/go-lobby/pkg/types"
)

// CreateRequest 创建房间请求
type CreateRequest struct {
	Name       string
	MaxPlayers int
	IsPrivate  bool

	// Metadata 公开元数据，创建时必须已包含 types.MetaRelayJoinCode
	Metadata map[string]string

	// Player 创建者自身记录，成为房主
	Player types.Player
}

// RoomCallbacks 房间推送回调
//
// 实现方异步投递，且不得在持有内部锁时调用回调；nil 字段表示不关心。
type RoomCallbacks struct {
	// OnChanged 房间属性变化（含删除）
	OnChanged func(change types.RoomChange)

	// OnPlayerJoined 新成员加入
	OnPlayerJoined func(players []types.Player)

	// OnPlayerLeft 成员离开
	OnPlayerLeft func(playerIDs []string)

	// OnKicked 订阅者本人被移出房间
	OnKicked func()

	// OnConnectionStateChanged 订阅连接状态变化
	OnConnectionStateChanged func(state types.SubscriptionState)
}

// SubscriptionHandle 房间推送订阅句柄
type SubscriptionHandle interface {
	// RoomID 订阅的房间
	RoomID() string

	// Unsubscribe 释放订阅；重复释放返回 types.ErrAlreadyUnsubscribed
	Unsubscribe(ctx context.Context) error
}

// DirectoryService 房间目录服务
//
// 调用方身份由实现方绑定（通常来自 IdentityService），
// 房主校验、踢出路由都基于该身份。远端记录是最终一致的。
type DirectoryService interface {
	// Query 查询可加入房间（未锁定、公开、有空位）
	Query(ctx context.Context, opts types.QueryOptions) ([]types.RoomSummary, error)

	// Create 注册房间
	Create(ctx context.Context, req CreateRequest) (*types.Room, error)

	// JoinByCode 通过房间码加入
	JoinByCode(ctx context.Context, code string, self types.Player) (*types.Room, error)

	// JoinByID 通过房间 ID 加入
	JoinByID(ctx context.Context, id string, self types.Player) (*types.Room, error)

	// QuickJoin 加入任一可加入房间，没有时返回 types.ErrRoomNotFound
	QuickJoin(ctx context.Context, self types.Player) (*types.Room, error)

	// Update 更新房间（仅房主）
	Update(ctx context.Context, roomID string, patch types.RoomPatch) (*types.Room, error)

	// RemovePlayer 移除成员：移除自己即离开，移除他人需房主权限（踢出）
	RemovePlayer(ctx context.Context, roomID, playerID string) error

	// Delete 删除房间（仅房主）
	Delete(ctx context.Context, roomID string) error

	// Heartbeat 房间保活（仅房主）
	Heartbeat(ctx context.Context, roomID string) error

	// Subscribe 订阅房间推送；同一调用方重复订阅返回 types.ErrAlreadySubscribed
	Subscribe(ctx context.Context, roomID string, callbacks RoomCallbacks) (SubscriptionHandle, error)
}
