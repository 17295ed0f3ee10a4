package mocks

import (
	"context"
	"sync"

	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

// MockDirectoryService 模拟 DirectoryService 接口实现
//
// 未设置覆盖函数时返回零值与 nil 错误（Subscribe 返回新的 MockSubscriptionHandle）。
type MockDirectoryService struct {
	mu sync.Mutex

	// 可覆盖的方法
	QueryFunc        func(ctx context.Context, opts types.QueryOptions) ([]types.RoomSummary, error)
	CreateFunc       func(ctx context.Context, req interfaces.CreateRequest) (*types.Room, error)
	JoinByCodeFunc   func(ctx context.Context, code string, self types.Player) (*types.Room, error)
	JoinByIDFunc     func(ctx context.Context, id string, self types.Player) (*types.Room, error)
	QuickJoinFunc    func(ctx context.Context, self types.Player) (*types.Room, error)
	UpdateFunc       func(ctx context.Context, roomID string, patch types.RoomPatch) (*types.Room, error)
	RemovePlayerFunc func(ctx context.Context, roomID, playerID string) error
	DeleteFunc       func(ctx context.Context, roomID string) error
	HeartbeatFunc    func(ctx context.Context, roomID string) error
	SubscribeFunc    func(ctx context.Context, roomID string, cb interfaces.RoomCallbacks) (interfaces.SubscriptionHandle, error)

	// 调用记录
	Calls     map[string]int
	Callbacks []interfaces.RoomCallbacks
	Handles   []*MockSubscriptionHandle
	Creates   []interfaces.CreateRequest
	Removed   []string
	Deleted   []string
}

var _ interfaces.DirectoryService = (*MockDirectoryService)(nil)

// NewMockDirectoryService 创建 MockDirectoryService
func NewMockDirectoryService() *MockDirectoryService {
	return &MockDirectoryService{Calls: make(map[string]int)}
}

func (m *MockDirectoryService) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[op]++
}

// CallCount 返回指定操作的调用次数
func (m *MockDirectoryService) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls[op]
}

// Query 查询房间
func (m *MockDirectoryService) Query(ctx context.Context, opts types.QueryOptions) ([]types.RoomSummary, error) {
	m.record("Query")
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, opts)
	}
	return nil, nil
}

// Create 创建房间
func (m *MockDirectoryService) Create(ctx context.Context, req interfaces.CreateRequest) (*types.Room, error) {
	m.record("Create")
	m.mu.Lock()
	m.Creates = append(m.Creates, req)
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return &types.Room{
		ID:            "room-1",
		JoinCode:      "CODE01",
		Name:          req.Name,
		HostID:        req.Player.ID,
		Capacity:      req.MaxPlayers,
		IsPrivate:     req.IsPrivate,
		Metadata:      req.Metadata,
		RelayJoinCode: req.Metadata[types.MetaRelayJoinCode],
		Players:       []types.Player{req.Player},
	}, nil
}

// JoinByCode 通过房间码加入
func (m *MockDirectoryService) JoinByCode(ctx context.Context, code string, self types.Player) (*types.Room, error) {
	m.record("JoinByCode")
	if m.JoinByCodeFunc != nil {
		return m.JoinByCodeFunc(ctx, code, self)
	}
	return nil, types.ErrRoomNotFound
}

// JoinByID 通过房间 ID 加入
func (m *MockDirectoryService) JoinByID(ctx context.Context, id string, self types.Player) (*types.Room, error) {
	m.record("JoinByID")
	if m.JoinByIDFunc != nil {
		return m.JoinByIDFunc(ctx, id, self)
	}
	return nil, types.ErrRoomNotFound
}

// QuickJoin 快速加入
func (m *MockDirectoryService) QuickJoin(ctx context.Context, self types.Player) (*types.Room, error) {
	m.record("QuickJoin")
	if m.QuickJoinFunc != nil {
		return m.QuickJoinFunc(ctx, self)
	}
	return nil, types.ErrRoomNotFound
}

// Update 更新房间
func (m *MockDirectoryService) Update(ctx context.Context, roomID string, patch types.RoomPatch) (*types.Room, error) {
	m.record("Update")
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, roomID, patch)
	}
	room := &types.Room{ID: roomID}
	patch.Apply(room)
	return room, nil
}

// RemovePlayer 移除成员
func (m *MockDirectoryService) RemovePlayer(ctx context.Context, roomID, playerID string) error {
	m.record("RemovePlayer")
	m.mu.Lock()
	m.Removed = append(m.Removed, playerID)
	m.mu.Unlock()
	if m.RemovePlayerFunc != nil {
		return m.RemovePlayerFunc(ctx, roomID, playerID)
	}
	return nil
}

// Delete 删除房间
func (m *MockDirectoryService) Delete(ctx context.Context, roomID string) error {
	m.record("Delete")
	m.mu.Lock()
	m.Deleted = append(m.Deleted, roomID)
	m.mu.Unlock()
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, roomID)
	}
	return nil
}

// Heartbeat 房间保活
func (m *MockDirectoryService) Heartbeat(ctx context.Context, roomID string) error {
	m.record("Heartbeat")
	if m.HeartbeatFunc != nil {
		return m.HeartbeatFunc(ctx, roomID)
	}
	return nil
}

// Subscribe 订阅房间推送
func (m *MockDirectoryService) Subscribe(ctx context.Context, roomID string, cb interfaces.RoomCallbacks) (interfaces.SubscriptionHandle, error) {
	m.record("Subscribe")
	m.mu.Lock()
	m.Callbacks = append(m.Callbacks, cb)
	m.mu.Unlock()
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, roomID, cb)
	}
	h := &MockSubscriptionHandle{Room: roomID}
	m.mu.Lock()
	m.Handles = append(m.Handles, h)
	m.mu.Unlock()
	return h, nil
}

// LastCallbacks 返回最近一次订阅注册的回调
func (m *MockDirectoryService) LastCallbacks() interfaces.RoomCallbacks {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Callbacks) == 0 {
		return interfaces.RoomCallbacks{}
	}
	return m.Callbacks[len(m.Callbacks)-1]
}

// MockSubscriptionHandle 模拟 SubscriptionHandle
type MockSubscriptionHandle struct {
	mu sync.Mutex

	Room   string
	Closed bool

	UnsubscribeFunc  func(ctx context.Context) error
	UnsubscribeCalls int
}

// RoomID 订阅的房间
func (h *MockSubscriptionHandle) RoomID() string {
	return h.Room
}

// Unsubscribe 释放订阅
func (h *MockSubscriptionHandle) Unsubscribe(ctx context.Context) error {
	h.mu.Lock()
	h.UnsubscribeCalls++
	fn := h.UnsubscribeFunc
	h.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Closed {
		return types.ErrAlreadyUnsubscribed
	}
	h.Closed = true
	return nil
}

// IsClosed 是否已释放
func (h *MockSubscriptionHandle) IsClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Closed
}
