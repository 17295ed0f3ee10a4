package memory

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

var log = logger.Logger("backend/memory")

// RoomCodeLength 房间码长度
const RoomCodeLength = 6

// ErrInvalidCapacity 房间容量无效
var ErrInvalidCapacity = errors.New("memory: invalid room capacity")

// ============================================================================
//                              Directory - 共享房间目录
// ============================================================================

// Directory 进程内房间目录
//
// 多个玩家共享同一个 Directory，通过 Client 取得绑定调用者身份的 DirectoryService。
type Directory struct {
	clk clock.Clock

	mu    sync.Mutex
	rooms map[string]*roomEntry
	codes map[string]string
	seq   uint64

	faults faults
}

type roomEntry struct {
	room     *types.Room
	seq      uint64
	lastBeat time.Time
	subs     map[*subscription]struct{}
}

// NewDirectory 创建房间目录，clk 为 nil 时使用系统时钟
func NewDirectory(clk clock.Clock) *Directory {
	if clk == nil {
		clk = clock.New()
	}
	return &Directory{
		clk:   clk,
		rooms: make(map[string]*roomEntry),
		codes: make(map[string]string),
	}
}

// Client 返回以 ids 当前玩家为调用者的目录服务
func (d *Directory) Client(ids interfaces.IdentityService) interfaces.DirectoryService {
	return &directoryClient{dir: d, ids: ids}
}

// FailNext 让下一次指定操作返回 err
//
// op 取值：query, create, join, quick_join, update, remove_player, delete, heartbeat, subscribe。
func (d *Directory) FailNext(op string, err error) {
	d.faults.add(op, err)
}

// Len 房间数
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rooms)
}

// Room 返回房间记录的副本
func (d *Directory) Room(id string) (*types.Room, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.rooms[id]
	if !ok {
		return nil, false
	}
	return e.room.Clone(), true
}

// Subscribers 房间当前的订阅数
func (d *Directory) Subscribers(roomID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.rooms[roomID]; ok {
		return len(e.subs)
	}
	return 0
}

// ReapStale 删除超过 ttl 未收到心跳的房间，返回被删除的房间 ID
func (d *Directory) ReapStale(ttl time.Duration) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.clk.Now()
	var reaped []string
	for id, e := range d.rooms {
		if now.Sub(e.lastBeat) > ttl {
			d.deleteLocked(e)
			reaped = append(reaped, id)
		}
	}
	if len(reaped) > 0 {
		log.Info("回收失去心跳的房间", "count", len(reaped))
	}
	slices.Sort(reaped)
	return reaped
}

// Disrupt 模拟通知连接抖动：向房间所有订阅者投递 Unsynced 后恢复 Subscribed
func (d *Directory) Disrupt(roomID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.rooms[roomID]
	if !ok {
		return
	}
	e.broadcast(func(cb interfaces.RoomCallbacks) {
		if cb.OnConnectionStateChanged != nil {
			cb.OnConnectionStateChanged(types.SubUnsynced)
			cb.OnConnectionStateChanged(types.SubSubscribed)
		}
	})
}

func (d *Directory) newCodeLocked() string {
	for {
		id := uuid.New()
		code := base58.Encode(id[:])[:RoomCodeLength]
		if _, taken := d.codes[code]; !taken {
			return code
		}
	}
}

func (d *Directory) entryLocked(roomID string) (*roomEntry, error) {
	e, ok := d.rooms[roomID]
	if !ok {
		return nil, types.ErrRoomNotFound
	}
	return e, nil
}

// deleteLocked 删除房间并通知全部订阅者
func (d *Directory) deleteLocked(e *roomEntry) {
	delete(d.rooms, e.room.ID)
	delete(d.codes, e.room.JoinCode)
	change := types.RoomChange{RoomID: e.room.ID, Version: e.room.Version + 1, Deleted: true}
	for s := range e.subs {
		s.deliver(func(cb interfaces.RoomCallbacks) {
			if cb.OnChanged != nil {
				cb.OnChanged(change)
			}
		})
		e.detach(s)
	}
}

// openLocked 按创建顺序返回可加入房间，newest 为 true 时最新的在前
func (d *Directory) openLocked(minSlots int, newest bool) []*roomEntry {
	var out []*roomEntry
	for _, e := range d.rooms {
		if e.room.IsOpen() && e.room.AvailableSlots() >= minSlots {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *roomEntry) int {
		if newest {
			return cmp.Compare(b.seq, a.seq)
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

func (e *roomEntry) broadcast(fn func(cb interfaces.RoomCallbacks)) {
	for s := range e.subs {
		s.deliver(fn)
	}
}

// detach 投递完已排队的事件后关闭订阅
func (e *roomEntry) detach(s *subscription) {
	delete(e.subs, s)
	s.closed = true
	s.d.post(s.d.close)
}

// ============================================================================
//                              subscription
// ============================================================================

type subscription struct {
	dir      *Directory
	roomID   string
	playerID string
	cb       interfaces.RoomCallbacks
	d        *dispatcher

	// closed 受 dir.mu 保护
	closed bool
}

var _ interfaces.SubscriptionHandle = (*subscription)(nil)

func (s *subscription) deliver(fn func(cb interfaces.RoomCallbacks)) {
	cb := s.cb
	s.d.post(func() { fn(cb) })
}

// RoomID 订阅的房间
func (s *subscription) RoomID() string {
	return s.roomID
}

// Unsubscribe 释放订阅，不等待正在执行的回调
func (s *subscription) Unsubscribe(_ context.Context) error {
	s.dir.mu.Lock()
	defer s.dir.mu.Unlock()
	if s.closed {
		return types.ErrAlreadyUnsubscribed
	}
	s.closed = true
	if e, ok := s.dir.rooms[s.roomID]; ok {
		delete(e.subs, s)
	}
	s.d.close()
	return nil
}

// ============================================================================
//                              directoryClient
// ============================================================================

type directoryClient struct {
	dir *Directory
	ids interfaces.IdentityService
}

var _ interfaces.DirectoryService = (*directoryClient)(nil)

func (c *directoryClient) begin(ctx context.Context, op string) (string, error) {
	if err := c.dir.faults.take(op); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	caller := c.ids.PlayerID()
	if caller == "" {
		return "", types.ErrNotAuthenticated
	}
	return caller, nil
}

// Query 查询可加入房间
func (c *directoryClient) Query(ctx context.Context, opts types.QueryOptions) ([]types.RoomSummary, error) {
	if _, err := c.begin(ctx, "query"); err != nil {
		return nil, err
	}
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	open := d.openLocked(opts.MinAvailableSlots, opts.Order == types.OrderNewestFirst)
	if opts.Limit > 0 && len(open) > opts.Limit {
		open = open[:opts.Limit]
	}
	out := make([]types.RoomSummary, 0, len(open))
	for _, e := range open {
		out = append(out, e.room.Summary())
	}
	return out, nil
}

// Create 创建房间，调用者成为房主
func (c *directoryClient) Create(ctx context.Context, req interfaces.CreateRequest) (*types.Room, error) {
	caller, err := c.begin(ctx, "create")
	if err != nil {
		return nil, err
	}
	if req.MaxPlayers < 1 {
		return nil, ErrInvalidCapacity
	}
	player := req.Player
	player.ID = caller

	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	now := d.clk.Now()
	room := &types.Room{
		ID:        uuid.NewString(),
		JoinCode:  d.newCodeLocked(),
		Name:      req.Name,
		HostID:    caller,
		Capacity:  req.MaxPlayers,
		IsPrivate: req.IsPrivate,
		Metadata:  maps.Clone(req.Metadata),
		Players:   []types.Player{player},
		CreatedAt: now,
		Version:   1,
	}
	room.RelayJoinCode = room.Metadata[types.MetaRelayJoinCode]

	d.rooms[room.ID] = &roomEntry{
		room:     room,
		seq:      d.seq,
		lastBeat: now,
		subs:     make(map[*subscription]struct{}),
	}
	d.codes[room.JoinCode] = room.ID

	log.Debug("房间已注册", "room", logger.TruncateID(room.ID, 8), "code", room.JoinCode)
	return room.Clone(), nil
}

// JoinByCode 通过房间码加入
func (c *directoryClient) JoinByCode(ctx context.Context, code string, self types.Player) (*types.Room, error) {
	caller, err := c.begin(ctx, "join")
	if err != nil {
		return nil, err
	}
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.codes[code]
	if !ok {
		return nil, types.ErrRoomNotFound
	}
	return d.joinLocked(d.rooms[id], caller, self)
}

// JoinByID 通过房间 ID 加入，私有房间只能通过房间码加入
func (c *directoryClient) JoinByID(ctx context.Context, id string, self types.Player) (*types.Room, error) {
	caller, err := c.begin(ctx, "join")
	if err != nil {
		return nil, err
	}
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	e, err := d.entryLocked(id)
	if err != nil {
		return nil, err
	}
	if e.room.IsPrivate {
		return nil, types.ErrRoomNotFound
	}
	return d.joinLocked(e, caller, self)
}

// QuickJoin 加入最新创建的可加入房间
func (c *directoryClient) QuickJoin(ctx context.Context, self types.Player) (*types.Room, error) {
	caller, err := c.begin(ctx, "quick_join")
	if err != nil {
		return nil, err
	}
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, e := range d.openLocked(1, true) {
		if !e.room.HasPlayer(caller) {
			return d.joinLocked(e, caller, self)
		}
	}
	return nil, types.ErrRoomNotFound
}

func (d *Directory) joinLocked(e *roomEntry, caller string, self types.Player) (*types.Room, error) {
	if e.room.HasPlayer(caller) {
		return e.room.Clone(), nil
	}
	if e.room.IsLocked {
		return nil, types.ErrRoomLocked
	}
	if e.room.IsFull() {
		return nil, types.ErrRoomFull
	}
	self.ID = caller
	e.room.AddPlayer(self)
	e.room.Version++

	joined := []types.Player{self}
	e.broadcast(func(cb interfaces.RoomCallbacks) {
		if cb.OnPlayerJoined != nil {
			cb.OnPlayerJoined(joined)
		}
	})
	return e.room.Clone(), nil
}

// Update 更新房间（仅房主）
func (c *directoryClient) Update(ctx context.Context, roomID string, patch types.RoomPatch) (*types.Room, error) {
	caller, err := c.begin(ctx, "update")
	if err != nil {
		return nil, err
	}
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	e, err := d.entryLocked(roomID)
	if err != nil {
		return nil, err
	}
	if e.room.HostID != caller {
		return nil, types.ErrNotHost
	}
	patch.Apply(e.room)
	e.room.Version++

	change := types.RoomChange{
		RoomID:    roomID,
		Version:   e.room.Version,
		Name:      patch.Name,
		IsPrivate: patch.IsPrivate,
		IsLocked:  patch.IsLocked,
		Metadata:  maps.Clone(patch.Metadata),
	}
	e.broadcast(func(cb interfaces.RoomCallbacks) {
		if cb.OnChanged != nil {
			cb.OnChanged(change)
		}
	})
	return e.room.Clone(), nil
}

// RemovePlayer 移除成员：成员可以移除自己，房主可以移除任何人
//
// 房主移除自己等同于删除房间。
func (c *directoryClient) RemovePlayer(ctx context.Context, roomID, playerID string) error {
	caller, err := c.begin(ctx, "remove_player")
	if err != nil {
		return err
	}
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	e, err := d.entryLocked(roomID)
	if err != nil {
		return err
	}
	if caller != playerID && caller != e.room.HostID {
		return types.ErrNotHost
	}
	if !e.room.HasPlayer(playerID) {
		return types.ErrNotMember
	}
	if playerID == e.room.HostID {
		d.deleteLocked(e)
		return nil
	}

	e.room.RemovePlayer(playerID)
	e.room.Version++
	kicked := caller != playerID

	for s := range e.subs {
		if s.playerID != playerID {
			continue
		}
		if kicked {
			s.deliver(func(cb interfaces.RoomCallbacks) {
				if cb.OnKicked != nil {
					cb.OnKicked()
				}
			})
		}
		e.detach(s)
	}
	left := []string{playerID}
	e.broadcast(func(cb interfaces.RoomCallbacks) {
		if cb.OnPlayerLeft != nil {
			cb.OnPlayerLeft(left)
		}
	})
	return nil
}

// Delete 删除房间（仅房主）
func (c *directoryClient) Delete(ctx context.Context, roomID string) error {
	caller, err := c.begin(ctx, "delete")
	if err != nil {
		return err
	}
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	e, err := d.entryLocked(roomID)
	if err != nil {
		return err
	}
	if e.room.HostID != caller {
		return types.ErrNotHost
	}
	d.deleteLocked(e)
	return nil
}

// Heartbeat 刷新房间心跳（仅房主）
func (c *directoryClient) Heartbeat(ctx context.Context, roomID string) error {
	caller, err := c.begin(ctx, "heartbeat")
	if err != nil {
		return err
	}
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	e, err := d.entryLocked(roomID)
	if err != nil {
		return err
	}
	if e.room.HostID != caller {
		return types.ErrNotHost
	}
	e.lastBeat = d.clk.Now()
	return nil
}

// Subscribe 订阅房间推送，同一玩家对同一房间只能持有一个订阅
func (c *directoryClient) Subscribe(ctx context.Context, roomID string, cb interfaces.RoomCallbacks) (interfaces.SubscriptionHandle, error) {
	caller, err := c.begin(ctx, "subscribe")
	if err != nil {
		return nil, err
	}
	d := c.dir
	d.mu.Lock()
	defer d.mu.Unlock()

	e, err := d.entryLocked(roomID)
	if err != nil {
		return nil, err
	}
	if !e.room.HasPlayer(caller) {
		return nil, types.ErrNotMember
	}
	for s := range e.subs {
		if s.playerID == caller {
			return nil, types.ErrAlreadySubscribed
		}
	}
	s := &subscription{
		dir:      d,
		roomID:   roomID,
		playerID: caller,
		cb:       cb,
		d:        newDispatcher(),
	}
	e.subs[s] = struct{}{}
	return s, nil
}
