package redisdir

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

// directoryClient 绑定调用者身份的目录服务
type directoryClient struct {
	dir *Directory
	ids interfaces.IdentityService
}

var _ interfaces.DirectoryService = (*directoryClient)(nil)

func (c *directoryClient) caller() (string, error) {
	id := c.ids.PlayerID()
	if id == "" {
		return "", types.ErrNotAuthenticated
	}
	return id, nil
}

// Query 查询可加入房间
func (c *directoryClient) Query(ctx context.Context, opts types.QueryOptions) ([]types.RoomSummary, error) {
	if _, err := c.caller(); err != nil {
		return nil, err
	}
	return c.dir.List(ctx, opts)
}

// Create 创建房间，调用者成为房主
func (c *directoryClient) Create(ctx context.Context, req interfaces.CreateRequest) (*types.Room, error) {
	caller, err := c.caller()
	if err != nil {
		return nil, err
	}
	if req.MaxPlayers < 1 {
		return nil, ErrInvalidCapacity
	}
	d := c.dir

	seq, err := d.rdb.Incr(ctx, d.keys.seq()).Result()
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	code, err := d.reserveCode(ctx, id)
	if err != nil {
		return nil, err
	}

	player := req.Player
	player.ID = caller
	room := &types.Room{
		ID:        id,
		JoinCode:  code,
		Name:      req.Name,
		HostID:    caller,
		Capacity:  req.MaxPlayers,
		IsPrivate: req.IsPrivate,
		Metadata:  maps.Clone(req.Metadata),
		Players:   []types.Player{player},
		CreatedAt: time.Now().UTC(),
		Version:   1,
	}
	room.RelayJoinCode = room.Metadata[types.MetaRelayJoinCode]

	data, err := (&record{Room: room, Seq: seq}).encode()
	if err != nil {
		return nil, err
	}
	_, err = d.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, d.keys.room(id), data, 0)
		pipe.Set(ctx, d.keys.beat(id), caller, d.roomTTL)
		pipe.ZAdd(ctx, d.keys.rooms(), redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		d.rdb.Del(context.WithoutCancel(ctx), d.keys.code(code))
		return nil, err
	}

	log.Debug("房间已注册", "room", logger.TruncateID(id, 8), "code", code)
	return room.Clone(), nil
}

// JoinByCode 通过房间码加入
func (c *directoryClient) JoinByCode(ctx context.Context, code string, self types.Player) (*types.Room, error) {
	caller, err := c.caller()
	if err != nil {
		return nil, err
	}
	id, err := c.dir.rdb.Get(ctx, c.dir.keys.code(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, types.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return c.join(ctx, id, caller, self, false)
}

// JoinByID 通过房间 ID 加入，私有房间只能通过房间码加入
func (c *directoryClient) JoinByID(ctx context.Context, id string, self types.Player) (*types.Room, error) {
	caller, err := c.caller()
	if err != nil {
		return nil, err
	}
	return c.join(ctx, id, caller, self, true)
}

// QuickJoin 加入最新创建的可加入房间
func (c *directoryClient) QuickJoin(ctx context.Context, self types.Player) (*types.Room, error) {
	caller, err := c.caller()
	if err != nil {
		return nil, err
	}
	recs, err := c.dir.scan(ctx, false, 0, func(r *types.Room) bool {
		return r.IsOpen() && !r.HasPlayer(caller)
	})
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		room, err := c.join(ctx, rec.Room.ID, caller, self, true)
		switch {
		case err == nil:
			return room, nil
		case errors.Is(err, types.ErrRoomFull), errors.Is(err, types.ErrRoomLocked), errors.Is(err, types.ErrRoomNotFound):
			// 查询之后被占满、锁定或删除，尝试下一个
			continue
		default:
			return nil, err
		}
	}
	return nil, types.ErrRoomNotFound
}

func (c *directoryClient) join(ctx context.Context, id, caller string, self types.Player, public bool) (*types.Room, error) {
	self.ID = caller
	return c.dir.mutate(ctx, id, func(rec *record) (*mutation, error) {
		r := rec.Room
		if r.HasPlayer(caller) {
			return nil, nil
		}
		if public && r.IsPrivate {
			return nil, types.ErrRoomNotFound
		}
		if r.IsLocked {
			return nil, types.ErrRoomLocked
		}
		if r.IsFull() {
			return nil, types.ErrRoomFull
		}
		r.AddPlayer(self)
		r.Version++
		return &mutation{events: []envelope{{Type: evtJoined, Players: []types.Player{self}}}}, nil
	})
}

// Update 更新房间（仅房主）
func (c *directoryClient) Update(ctx context.Context, roomID string, patch types.RoomPatch) (*types.Room, error) {
	caller, err := c.caller()
	if err != nil {
		return nil, err
	}
	return c.dir.mutate(ctx, roomID, func(rec *record) (*mutation, error) {
		r := rec.Room
		if r.HostID != caller {
			return nil, types.ErrNotHost
		}
		patch.Apply(r)
		r.Version++
		change := &types.RoomChange{
			RoomID:    roomID,
			Version:   r.Version,
			Name:      patch.Name,
			IsPrivate: patch.IsPrivate,
			IsLocked:  patch.IsLocked,
			Metadata:  maps.Clone(patch.Metadata),
		}
		return &mutation{events: []envelope{{Type: evtChanged, Change: change}}}, nil
	})
}

// RemovePlayer 移除成员：成员可以移除自己，房主可以移除任何人
//
// 房主移除自己等同于删除房间。
func (c *directoryClient) RemovePlayer(ctx context.Context, roomID, playerID string) error {
	caller, err := c.caller()
	if err != nil {
		return err
	}
	_, err = c.dir.mutate(ctx, roomID, func(rec *record) (*mutation, error) {
		r := rec.Room
		if caller != playerID && caller != r.HostID {
			return nil, types.ErrNotHost
		}
		if !r.HasPlayer(playerID) {
			return nil, types.ErrNotMember
		}
		if playerID == r.HostID {
			return deletion(rec), nil
		}
		r.RemovePlayer(playerID)
		r.Version++
		return &mutation{events: []envelope{{
			Type:      evtLeft,
			PlayerIDs: []string{playerID},
			Kicked:    caller != playerID,
		}}}, nil
	})
	return err
}

// Delete 删除房间（仅房主）
func (c *directoryClient) Delete(ctx context.Context, roomID string) error {
	caller, err := c.caller()
	if err != nil {
		return err
	}
	_, err = c.dir.mutate(ctx, roomID, func(rec *record) (*mutation, error) {
		if rec.Room.HostID != caller {
			return nil, types.ErrNotHost
		}
		return deletion(rec), nil
	})
	return err
}

// Heartbeat 刷新房间心跳（仅房主）
func (c *directoryClient) Heartbeat(ctx context.Context, roomID string) error {
	caller, err := c.caller()
	if err != nil {
		return err
	}
	d := c.dir
	rec, err := d.load(ctx, roomID)
	if err != nil {
		return err
	}
	if rec.Room.HostID != caller {
		return types.ErrNotHost
	}
	return d.rdb.Set(ctx, d.keys.beat(roomID), caller, d.roomTTL).Err()
}

// Subscribe 订阅房间推送，同一玩家对同一房间只能持有一个订阅
func (c *directoryClient) Subscribe(ctx context.Context, roomID string, cb interfaces.RoomCallbacks) (interfaces.SubscriptionHandle, error) {
	caller, err := c.caller()
	if err != nil {
		return nil, err
	}
	d := c.dir
	rec, err := d.load(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !rec.Room.HasPlayer(caller) {
		return nil, types.ErrNotMember
	}

	key := subKey{roomID: roomID, playerID: caller}
	s := &subscription{dir: d, key: key, cb: cb}
	d.mu.Lock()
	if _, ok := d.subs[key]; ok {
		d.mu.Unlock()
		return nil, types.ErrAlreadySubscribed
	}
	d.subs[key] = s
	d.mu.Unlock()

	ps := d.rdb.Subscribe(ctx, d.keys.events(roomID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		d.forget(s)
		return nil, err
	}
	if !s.attach(ps) {
		_ = ps.Close()
		return nil, types.ErrAlreadyUnsubscribed
	}
	go s.run(ps.Channel())
	return s, nil
}
