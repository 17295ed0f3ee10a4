package types

import (
	"maps"
	"slices"
	"time"
)

// 房间元数据键
const (
	// MetaRelayJoinCode 房间公开元数据中的中继加入码
	//
	// 房间对其他查询方可见时，该键必须已经存在且有效。
	MetaRelayJoinCode = "RelayJoinCode"
)

// ============================================================================
//                              Room - 房间
// ============================================================================

// Room 房间记录
//
// 目录服务返回的快照与会话持有的本地投影使用同一结构，
// 但二者之间只允许单向同步（通知 → 本地）。
type Room struct {
	ID            string            `json:"id"`
	JoinCode      string            `json:"join_code"`
	Name          string            `json:"name"`
	HostID        string            `json:"host_id"`
	Capacity      int               `json:"capacity"`
	IsPrivate     bool              `json:"is_private"`
	IsLocked      bool              `json:"is_locked"`
	RelayJoinCode string            `json:"relay_join_code"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Players       []Player          `json:"players"`
	CreatedAt     time.Time         `json:"created_at"`

	// Version 目录侧每次变更递增，用于丢弃过期通知
	Version uint64 `json:"version"`
}

// Clone 深拷贝
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	c.Metadata = maps.Clone(r.Metadata)
	c.Players = slices.Clone(r.Players)
	return &c
}

// PlayerCount 当前成员数
func (r *Room) PlayerCount() int {
	return len(r.Players)
}

// AvailableSlots 剩余容量
func (r *Room) AvailableSlots() int {
	if n := r.Capacity - len(r.Players); n > 0 {
		return n
	}
	return 0
}

// IsFull 是否已满
func (r *Room) IsFull() bool {
	return r.AvailableSlots() == 0
}

// IsOpen 是否接受新成员（公开、未锁定、未满）
func (r *Room) IsOpen() bool {
	return !r.IsPrivate && !r.IsLocked && !r.IsFull()
}

// IsHost 指定玩家是否为房主
func (r *Room) IsHost(playerID string) bool {
	return r != nil && playerID != "" && r.HostID == playerID
}

// HasPlayer 指定玩家是否在房间中
func (r *Room) HasPlayer(playerID string) bool {
	return slices.ContainsFunc(r.Players, func(p Player) bool { return p.ID == playerID })
}

// AddPlayer 添加成员（已存在时忽略），返回是否新增
func (r *Room) AddPlayer(p Player) bool {
	if r.HasPlayer(p.ID) {
		return false
	}
	r.Players = append(r.Players, p)
	return true
}

// RemovePlayer 移除成员，返回是否移除
func (r *Room) RemovePlayer(playerID string) bool {
	before := len(r.Players)
	r.Players = slices.DeleteFunc(r.Players, func(p Player) bool { return p.ID == playerID })
	return len(r.Players) != before
}

// Summary 返回查询列表使用的摘要
func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		ID:          r.ID,
		Name:        r.Name,
		HostID:      r.HostID,
		Capacity:    r.Capacity,
		PlayerCount: len(r.Players),
		CreatedAt:   r.CreatedAt,
	}
}

// RoomSummary 房间摘要（FindOpenRooms 结果）
type RoomSummary struct {
	ID          string
	Name        string
	HostID      string
	Capacity    int
	PlayerCount int
	CreatedAt   time.Time
}

// ============================================================================
//                              查询 / 更新
// ============================================================================

// QueryOrder 查询排序
type QueryOrder int

const (
	// OrderNewestFirst 按创建时间倒序（默认）
	OrderNewestFirst QueryOrder = iota
	// OrderOldestFirst 按创建时间正序
	OrderOldestFirst
)

// QueryOptions 房间查询参数
type QueryOptions struct {
	// MinAvailableSlots 至少剩余的空位数
	MinAvailableSlots int

	// Order 排序
	Order QueryOrder

	// Limit 最大返回数
	Limit int
}

// RoomPatch 房间更新内容，nil 字段表示不修改
type RoomPatch struct {
	Name      *string
	IsPrivate *bool
	IsLocked  *bool

	// Metadata 合并写入；值为空字符串表示删除该键
	Metadata map[string]string
}

// Apply 将更新应用到房间
func (p RoomPatch) Apply(r *Room) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.IsPrivate != nil {
		r.IsPrivate = *p.IsPrivate
	}
	if p.IsLocked != nil {
		r.IsLocked = *p.IsLocked
	}
	applyMetadata(r, p.Metadata)
}

// ============================================================================
//                              RoomChange - 房间变更通知
// ============================================================================

// RoomChange 目录推送的房间变更
type RoomChange struct {
	RoomID  string
	Version uint64

	// Deleted 房间已被删除
	Deleted bool

	Name      *string
	HostID    *string
	IsPrivate *bool
	IsLocked  *bool

	// Metadata 变更的键；值为空字符串表示删除
	Metadata map[string]string
}

// RoomDiff 应用变更后观察到的差异
type RoomDiff struct {
	LockChanged     bool
	HostChanged     bool
	MetadataChanged []string
}

// Apply 将变更应用到本地投影
//
// Version 不大于本地版本的变更被视为过期并忽略，返回 false。
func (c RoomChange) Apply(r *Room) (RoomDiff, bool) {
	var diff RoomDiff
	if c.Version != 0 && c.Version <= r.Version {
		return diff, false
	}
	if c.Version != 0 {
		r.Version = c.Version
	}
	if c.Name != nil {
		r.Name = *c.Name
	}
	if c.HostID != nil && *c.HostID != r.HostID {
		r.HostID = *c.HostID
		diff.HostChanged = true
	}
	if c.IsPrivate != nil {
		r.IsPrivate = *c.IsPrivate
	}
	if c.IsLocked != nil && *c.IsLocked != r.IsLocked {
		r.IsLocked = *c.IsLocked
		diff.LockChanged = true
	}
	for k, v := range c.Metadata {
		if r.Metadata[k] != v {
			diff.MetadataChanged = append(diff.MetadataChanged, k)
		}
	}
	slices.Sort(diff.MetadataChanged)
	applyMetadata(r, c.Metadata)
	return diff, true
}

// applyMetadata 合并元数据并同步 RelayJoinCode
func applyMetadata(r *Room, md map[string]string) {
	if len(md) == 0 {
		return
	}
	if r.Metadata == nil {
		r.Metadata = make(map[string]string, len(md))
	}
	for k, v := range md {
		if v == "" {
			delete(r.Metadata, k)
			continue
		}
		r.Metadata[k] = v
	}
	r.RelayJoinCode = r.Metadata[MetaRelayJoinCode]
}
