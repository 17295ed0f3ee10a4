package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/core/heartbeat"
	"github.com/dep2p/go-lobby/internal/core/metrics"
	"github.com/dep2p/go-lobby/internal/core/relay"
	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

var log = logger.Logger("directory")

// Sentinel errors
var (
	// ErrMissingRelayCode 房间没有公布中继加入码
	ErrMissingRelayCode = errors.New("directory: room has no relay join code")
	// ErrKickSelf 不能踢出自己
	ErrKickSelf = errors.New("directory: cannot kick yourself")
)

// Lease 已获取但尚未提交到会话的房间
type Lease struct {
	Room       *types.Room
	Allocation session.Allocation
	Host       bool
}

// Directory 房间目录
type Directory struct {
	svc       interfaces.DirectoryService
	relay     *relay.Coordinator
	heartbeat *heartbeat.Keeper
	sess      *session.Session
	metrics   *metrics.Collector

	cfg        config.RoomConfig
	hbInterval time.Duration
	limiter    *rate.Limiter
}

// New 创建房间目录
func New(
	svc interfaces.DirectoryService,
	rc *relay.Coordinator,
	hb *heartbeat.Keeper,
	sess *session.Session,
	cfg *config.Config,
	m *metrics.Collector,
) *Directory {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Directory{
		svc:        svc,
		relay:      rc,
		heartbeat:  hb,
		sess:       sess,
		metrics:    m,
		cfg:        cfg.Room,
		hbInterval: cfg.Heartbeat.Interval.Duration(),
		limiter:    rate.NewLimiter(rate.Limit(cfg.Room.QueryRate), cfg.Room.QueryBurst),
	}
}

// self 返回已登录身份
func (d *Directory) self(op string) (types.Identity, error) {
	id := d.sess.Identity()
	if id.IsZero() {
		return id, types.PreconditionError(op, types.ErrNotAuthenticated)
	}
	return id, nil
}

// ============================================================================
//                              查询
// ============================================================================

// FindOpenRooms 查询可加入房间，最新创建的在前
//
// max <= 0 时使用配置的 QueryLimit。没有房间时返回空列表。
func (d *Directory) FindOpenRooms(ctx context.Context, max int) ([]types.RoomSummary, error) {
	if max <= 0 {
		max = d.cfg.QueryLimit
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, types.RoomError("query", fmt.Errorf("%w: %v", types.ErrRateLimited, err))
	}

	rooms, err := d.svc.Query(ctx, types.QueryOptions{
		MinAvailableSlots: 1,
		Order:             types.OrderNewestFirst,
		Limit:             max,
	})
	d.metrics.DirectoryCall("query", err)
	if err != nil {
		return nil, types.RoomError("query", err)
	}
	if rooms == nil {
		rooms = []types.RoomSummary{}
	}
	return rooms, nil
}

// ============================================================================
//                              创建 / 加入
// ============================================================================

// CreateRoom 创建房间并成为房主
//
// size 被钳制到 [2, MaxCapacity]；name 为空时使用默认名称。
func (d *Directory) CreateRoom(ctx context.Context, name string, size int) (*Lease, error) {
	self, err := d.self("create")
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = d.cfg.DefaultName
	}
	size = d.cfg.ClampSize(size)

	alloc, err := d.relay.Allocate(ctx, size)
	if err != nil {
		return nil, err
	}
	code, err := d.relay.GetJoinCode(ctx, alloc)
	if err != nil {
		return nil, err
	}

	room, err := d.svc.Create(ctx, interfaces.CreateRequest{
		Name:       name,
		MaxPlayers: size,
		Metadata:   map[string]string{types.MetaRelayJoinCode: code},
		Player:     types.PlayerOf(self),
	})
	d.metrics.DirectoryCall("create", err)
	if err != nil {
		log.Warn("创建房间失败", "name", name, "error", err)
		return nil, types.RoomError("create", err)
	}
	if room.RelayJoinCode == "" {
		room.RelayJoinCode = code
	}

	if err := d.heartbeat.Start(room.ID, d.hbInterval); err != nil {
		d.deleteQuietly(room.ID)
		return nil, types.RoomError("create", err)
	}

	log.Info("房间已创建",
		"room", logger.TruncateID(room.ID, 8),
		"code", room.JoinCode,
		"name", room.Name,
		"capacity", room.Capacity)

	return &Lease{
		Room: room,
		Allocation: session.Allocation{
			AllocationID: alloc.AllocationID,
			JoinCode:     code,
			ServerData:   alloc.ServerData,
		},
		Host: true,
	}, nil
}

// JoinRoomByCode 通过房间码加入
func (d *Directory) JoinRoomByCode(ctx context.Context, code string) (*Lease, error) {
	self, err := d.self("join_by_code")
	if err != nil {
		return nil, err
	}
	room, err := d.svc.JoinByCode(ctx, code, types.PlayerOf(self))
	d.metrics.DirectoryCall("join_by_code", err)
	if err != nil {
		log.Warn("通过房间码加入失败", "code", code, "error", err)
		return nil, types.RoomError("join_by_code", err)
	}
	return d.attachRelay(ctx, self, room)
}

// JoinRoomByID 通过房间 ID 加入
func (d *Directory) JoinRoomByID(ctx context.Context, id string) (*Lease, error) {
	self, err := d.self("join_by_id")
	if err != nil {
		return nil, err
	}
	room, err := d.svc.JoinByID(ctx, id, types.PlayerOf(self))
	d.metrics.DirectoryCall("join_by_id", err)
	if err != nil {
		log.Warn("通过房间 ID 加入失败", "room", id, "error", err)
		return nil, types.RoomError("join_by_id", err)
	}
	return d.attachRelay(ctx, self, room)
}

// QuickJoin 加入任一可加入房间
//
// 没有可加入房间时返回 (nil, nil)。
func (d *Directory) QuickJoin(ctx context.Context) (*Lease, error) {
	self, err := d.self("quick_join")
	if err != nil {
		return nil, err
	}
	room, err := d.svc.QuickJoin(ctx, types.PlayerOf(self))
	if errors.Is(err, types.ErrRoomNotFound) {
		d.metrics.DirectoryCall("quick_join", nil)
		log.Debug("没有可快速加入的房间")
		return nil, nil
	}
	d.metrics.DirectoryCall("quick_join", err)
	if err != nil {
		return nil, types.RoomError("quick_join", err)
	}
	return d.attachRelay(ctx, self, room)
}

// attachRelay 用房间公布的加入码加入中继，失败时离开房间
func (d *Directory) attachRelay(ctx context.Context, self types.Identity, room *types.Room) (*Lease, error) {
	code := room.RelayJoinCode
	if code == "" {
		code = room.Metadata[types.MetaRelayJoinCode]
	}
	if code == "" {
		d.leaveQuietly(room.ID, self.PlayerID)
		return nil, types.RoomError("join", ErrMissingRelayCode)
	}

	join, err := d.relay.JoinAsClient(ctx, code)
	if err != nil {
		d.leaveQuietly(room.ID, self.PlayerID)
		return nil, err
	}
	room.RelayJoinCode = code

	log.Info("已加入房间",
		"room", logger.TruncateID(room.ID, 8),
		"code", room.JoinCode,
		"players", room.PlayerCount())

	return &Lease{
		Room: room,
		Allocation: session.Allocation{
			AllocationID: join.AllocationID,
			JoinCode:     code,
			ServerData:   join.ServerData,
		},
		Host: room.IsHost(self.PlayerID),
	}, nil
}

// ============================================================================
//                              离开 / 删除 / 锁定 / 踢出
// ============================================================================

// LeaveRoom 以成员身份离开当前房间，没有房间时为空操作
func (d *Directory) LeaveRoom(ctx context.Context) error {
	room := d.sess.Room()
	if room == nil {
		return nil
	}
	self := d.sess.Identity()
	err := d.svc.RemovePlayer(ctx, room.ID, self.PlayerID)
	d.metrics.DirectoryCall("leave", err)
	if err != nil {
		return types.RoomError("leave", err)
	}
	return nil
}

// DeleteRoom 删除当前房间（仅房主）
func (d *Directory) DeleteRoom(ctx context.Context) error {
	room, err := d.hostRoom("delete")
	if err != nil {
		return err
	}
	err = d.svc.Delete(ctx, room.ID)
	d.metrics.DirectoryCall("delete", err)
	if err != nil {
		return types.RoomError("delete", err)
	}
	return nil
}

// LockRoom 将当前房间设为私有并锁定（仅房主）
//
// 返回目录确认后的房间记录，并同步到本地投影。
func (d *Directory) LockRoom(ctx context.Context) (*types.Room, error) {
	room, err := d.hostRoom("lock")
	if err != nil {
		return nil, err
	}
	yes := true
	updated, err := d.svc.Update(ctx, room.ID, types.RoomPatch{IsPrivate: &yes, IsLocked: &yes})
	d.metrics.DirectoryCall("lock", err)
	if err != nil {
		return nil, types.RoomError("lock", err)
	}

	local, _ := d.sess.UpdateRoom(room.ID, func(r *types.Room) bool {
		changed := !r.IsLocked || !r.IsPrivate
		r.IsLocked, r.IsPrivate = true, true
		if updated != nil && updated.Version > r.Version {
			r.Version = updated.Version
		}
		return changed
	})
	if local == nil {
		local = d.sess.Room()
	}

	log.Info("房间已锁定", "room", logger.TruncateID(room.ID, 8))
	return local, nil
}

// KickPlayer 将其他成员移出当前房间（仅房主）
func (d *Directory) KickPlayer(ctx context.Context, playerID string) error {
	room, err := d.hostRoom("kick")
	if err != nil {
		return err
	}
	if playerID == d.sess.Identity().PlayerID {
		return types.PreconditionError("kick", ErrKickSelf)
	}
	if !room.HasPlayer(playerID) {
		return types.PreconditionError("kick", types.ErrNotMember)
	}
	err = d.svc.RemovePlayer(ctx, room.ID, playerID)
	d.metrics.DirectoryCall("kick", err)
	if err != nil {
		return types.RoomError("kick", err)
	}
	log.Info("已踢出成员",
		"room", logger.TruncateID(room.ID, 8),
		"player", logger.TruncateID(playerID, 8))
	return nil
}

// hostRoom 返回当前房间，要求本进程为房主
func (d *Directory) hostRoom(op string) (*types.Room, error) {
	room := d.sess.Room()
	if room == nil {
		return nil, types.PreconditionError(op, types.ErrNoRoom)
	}
	if !room.IsHost(d.sess.Identity().PlayerID) {
		return nil, types.PreconditionError(op, types.ErrNotHost)
	}
	return room, nil
}

// ============================================================================
//                              释放未提交的租约
// ============================================================================

// Release 释放未能提交到会话的租约：房主删除房间，成员离开房间
func (d *Directory) Release(ctx context.Context, lease *Lease) error {
	if lease == nil || lease.Room == nil {
		return nil
	}
	if lease.Host {
		if d.heartbeat.RoomID() == lease.Room.ID {
			d.heartbeat.Stop()
		}
		err := d.svc.Delete(ctx, lease.Room.ID)
		d.metrics.DirectoryCall("delete", err)
		if err != nil {
			return types.RoomError("release", err)
		}
		return nil
	}
	err := d.svc.RemovePlayer(ctx, lease.Room.ID, d.sess.Identity().PlayerID)
	d.metrics.DirectoryCall("leave", err)
	if err != nil {
		return types.RoomError("release", err)
	}
	return nil
}

// cleanupTimeout 回滚操作的超时
const cleanupTimeout = 5 * time.Second

// deleteQuietly 回滚创建：删除房间，失败只记录
func (d *Directory) deleteQuietly(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	err := d.svc.Delete(ctx, roomID)
	d.metrics.DirectoryCall("delete", err)
	if err != nil {
		log.Warn("回滚删除房间失败", "room", logger.TruncateID(roomID, 8), "error", err)
	}
}

// leaveQuietly 回滚加入：离开房间，失败只记录
func (d *Directory) leaveQuietly(roomID, playerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	err := d.svc.RemovePlayer(ctx, roomID, playerID)
	d.metrics.DirectoryCall("leave", err)
	if err != nil {
		log.Warn("回滚离开房间失败", "room", logger.TruncateID(roomID, 8), "error", err)
	}
}
