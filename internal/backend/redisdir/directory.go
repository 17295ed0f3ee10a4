package redisdir

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/redis/go-redis/v9"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

var log = logger.Logger("backend/redisdir")

const (
	// RoomCodeLength 房间码长度
	RoomCodeLength = 6

	// maxTxRetries WATCH 事务冲突时的最大重试次数
	maxTxRetries = 16

	// maxCodeAttempts 生成不冲突房间码的最大尝试次数
	maxCodeAttempts = 8

	// queryPage 查询时每页读取的房间数
	queryPage = 64
)

// Sentinel errors
var (
	// ErrConflict 并发修改过多，事务重试耗尽
	ErrConflict = errors.New("redisdir: too many concurrent updates")

	// ErrCorruptRecord 房间记录无法解析
	ErrCorruptRecord = errors.New("redisdir: corrupt room record")

	// ErrInvalidCapacity 房间容量无效
	ErrInvalidCapacity = errors.New("redisdir: invalid room capacity")

	// ErrCodeExhausted 无法生成唯一房间码
	ErrCodeExhausted = errors.New("redisdir: could not allocate a unique room code")
)

// ============================================================================
//                              Directory
// ============================================================================

// Directory Redis 房间目录
//
// 多个进程共享同一 Redis 实例即共享同一目录。
// 通过 Client 取得绑定调用者身份的 DirectoryService。
type Directory struct {
	rdb     redis.UniversalClient
	keys    keyspace
	roomTTL time.Duration
	owned   bool

	mu   sync.Mutex
	subs map[subKey]*subscription
}

type subKey struct {
	roomID   string
	playerID string
}

// New 在已有的 Redis 客户端上创建目录
func New(rdb redis.UniversalClient, cfg config.RedisConfig) *Directory {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = config.DefaultRedisConfig().KeyPrefix
	}
	ttl := cfg.RoomTTL.Duration()
	if ttl <= 0 {
		ttl = config.DefaultRedisConfig().RoomTTL.Duration()
	}
	return &Directory{
		rdb:     rdb,
		keys:    keyspace(prefix),
		roomTTL: ttl,
		subs:    make(map[subKey]*subscription),
	}
}

// Open 按配置连接 Redis 并创建目录
func Open(ctx context.Context, cfg config.RedisConfig) (*Directory, error) {
	if !cfg.Enabled() {
		return nil, errors.New("redisdir: redis address not configured")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisdir: ping %s: %w", cfg.Addr, err)
	}
	d := New(rdb, cfg)
	d.owned = true
	log.Info("已连接 Redis 房间目录", "addr", cfg.Addr, "prefix", string(d.keys))
	return d, nil
}

// Close 关闭本目录创建的订阅与连接
//
// 通过 New 传入的客户端由调用方负责关闭。
func (d *Directory) Close() error {
	d.mu.Lock()
	subs := make([]*subscription, 0, len(d.subs))
	for _, s := range d.subs {
		subs = append(subs, s)
	}
	d.mu.Unlock()
	for _, s := range subs {
		_ = s.Unsubscribe(context.Background())
	}
	if d.owned {
		return d.rdb.Close()
	}
	return nil
}

// Client 返回以 ids 当前玩家为调用者的目录服务
func (d *Directory) Client(ids interfaces.IdentityService) interfaces.DirectoryService {
	return &directoryClient{dir: d, ids: ids}
}

// List 列出可加入房间（不需要身份，用于运维查看）
func (d *Directory) List(ctx context.Context, opts types.QueryOptions) ([]types.RoomSummary, error) {
	recs, err := d.scan(ctx, opts.Order == types.OrderOldestFirst, opts.Limit, func(r *types.Room) bool {
		return r.IsOpen() && r.AvailableSlots() >= opts.MinAvailableSlots
	})
	if err != nil {
		return nil, err
	}
	out := make([]types.RoomSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Room.Summary())
	}
	return out, nil
}

// ReapStale 删除心跳已过期的房间，返回被删除的房间 ID
func (d *Directory) ReapStale(ctx context.Context) ([]string, error) {
	ids, err := d.rdb.ZRange(ctx, d.keys.rooms(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	alive, err := d.beating(ctx, ids)
	if err != nil {
		return nil, err
	}
	var reaped []string
	for i, id := range ids {
		if alive[i] {
			continue
		}
		if err := d.remove(ctx, id); err != nil && !errors.Is(err, types.ErrRoomNotFound) {
			return reaped, err
		}
		reaped = append(reaped, id)
	}
	if len(reaped) > 0 {
		log.Info("回收失去心跳的房间", "count", len(reaped))
	}
	return reaped, nil
}

// ============================================================================
//                              读取
// ============================================================================

func (d *Directory) load(ctx context.Context, id string) (*record, error) {
	b, err := d.rdb.Get(ctx, d.keys.room(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(b)
}

// beating 批量检查心跳键是否存在
func (d *Directory) beating(ctx context.Context, ids []string) ([]bool, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.IntCmd, len(ids))
	_, err := d.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.Exists(ctx, d.keys.beat(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(ids))
	for i, c := range cmds {
		out[i] = c.Val() > 0
	}
	return out, nil
}

// scan 按创建序分页读取满足 keep 且仍有心跳的房间，limit <= 0 表示不限
func (d *Directory) scan(ctx context.Context, oldest bool, limit int, keep func(*types.Room) bool) ([]*record, error) {
	var out []*record
	for start := int64(0); ; start += queryPage {
		stop := start + queryPage - 1
		var ids []string
		var err error
		if oldest {
			ids, err = d.rdb.ZRange(ctx, d.keys.rooms(), start, stop).Result()
		} else {
			ids, err = d.rdb.ZRevRange(ctx, d.keys.rooms(), start, stop).Result()
		}
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return out, nil
		}

		recs, err := d.page(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			if rec != nil && keep(rec.Room) {
				out = append(out, rec)
				if limit > 0 && len(out) >= limit {
					return out, nil
				}
			}
		}
		if len(ids) < queryPage {
			return out, nil
		}
	}
}

// page 读取一页房间记录，失去心跳或缺失的位置为 nil
func (d *Directory) page(ctx context.Context, ids []string) ([]*record, error) {
	gets := make([]*redis.StringCmd, len(ids))
	beats := make([]*redis.IntCmd, len(ids))
	_, err := d.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			gets[i] = pipe.Get(ctx, d.keys.room(id))
			beats[i] = pipe.Exists(ctx, d.keys.beat(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	out := make([]*record, len(ids))
	for i := range ids {
		if beats[i].Val() == 0 {
			continue
		}
		b, err := gets[i].Bytes()
		if err != nil {
			continue
		}
		rec, err := decodeRecord(b)
		if err != nil {
			log.Warn("跳过无法解析的房间记录", "room", logger.TruncateID(ids[i], 8), "error", err)
			continue
		}
		out[i] = rec
	}
	return out, nil
}

// ============================================================================
//                              写入
// ============================================================================

// mutation 一次房间修改的结果
type mutation struct {
	del    bool
	events []envelope
}

// mutate 在 WATCH 事务中读取、修改并写回房间记录
//
// fn 返回 nil mutation 表示无需写入。冲突时重试。
func (d *Directory) mutate(ctx context.Context, id string, fn func(rec *record) (*mutation, error)) (*types.Room, error) {
	key := d.keys.room(id)
	var out *types.Room

	txf := func(tx *redis.Tx) error {
		b, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return types.ErrRoomNotFound
		}
		if err != nil {
			return err
		}
		rec, err := decodeRecord(b)
		if err != nil {
			return err
		}
		m, err := fn(rec)
		if err != nil {
			return err
		}
		out = rec.Room.Clone()
		if m == nil {
			return nil
		}

		payloads := make([]string, 0, len(m.events))
		for _, e := range m.events {
			p, err := e.encode()
			if err != nil {
				return err
			}
			payloads = append(payloads, p)
		}
		var data []byte
		if !m.del {
			if data, err = rec.encode(); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if m.del {
				pipe.Del(ctx, key, d.keys.code(rec.Room.JoinCode), d.keys.beat(id))
				pipe.ZRem(ctx, d.keys.rooms(), id)
			} else {
				pipe.Set(ctx, key, data, 0)
			}
			for _, p := range payloads {
				pipe.Publish(ctx, d.keys.events(id), p)
			}
			return nil
		})
		return err
	}

	for range maxTxRetries {
		err := d.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	log.Warn("房间事务重试耗尽", "room", logger.TruncateID(id, 8))
	return nil, ErrConflict
}

// remove 删除房间并通知订阅者
func (d *Directory) remove(ctx context.Context, id string) error {
	_, err := d.mutate(ctx, id, func(rec *record) (*mutation, error) {
		return deletion(rec), nil
	})
	return err
}

func deletion(rec *record) *mutation {
	return &mutation{
		del: true,
		events: []envelope{{
			Type:   evtChanged,
			Change: &types.RoomChange{RoomID: rec.Room.ID, Version: rec.Room.Version + 1, Deleted: true},
		}},
	}
}

// reserveCode 为房间占用一个唯一房间码
func (d *Directory) reserveCode(ctx context.Context, roomID string) (string, error) {
	for range maxCodeAttempts {
		id := uuid.New()
		code := base58.Encode(id[:])[:RoomCodeLength]
		ok, err := d.rdb.SetNX(ctx, d.keys.code(code), roomID, 0).Result()
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}
