package redisdir

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/internal/backend/memory"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
	"github.com/dep2p/go-lobby/tests/testutil"
)

// startRedis 启动 Redis 测试容器
func startRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	if testing.Short() {
		t.Skip("跳过 Redis 集成测试 (-short)")
	}

	ctx := context.Background()
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func newDirectory(t *testing.T, ttl time.Duration) *Directory {
	t.Helper()
	cfg := config.DefaultRedisConfig()
	if ttl > 0 {
		cfg.RoomTTL = config.Duration(ttl)
	}
	d := New(startRedis(t), cfg)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func player(t *testing.T, profile string) *memory.Identity {
	t.Helper()
	ids := memory.NewIdentity()
	ctx := context.Background()
	require.NoError(t, ids.Initialize(ctx, interfaces.InitOptions{Profile: profile}))
	require.NoError(t, ids.SignInAnonymously(ctx))
	return ids
}

func create(t *testing.T, d *Directory, host *memory.Identity, size int, private bool) *types.Room {
	t.Helper()
	room, err := d.Client(host).Create(context.Background(), interfaces.CreateRequest{
		Name:       "room",
		MaxPlayers: size,
		IsPrivate:  private,
		Metadata:   map[string]string{types.MetaRelayJoinCode: "RJC"},
		Player:     types.Player{DisplayName: host.DisplayName()},
	})
	require.NoError(t, err)
	return room
}

func TestRedisDirectory_CreateJoinQuery(t *testing.T) {
	d := newDirectory(t, 0)
	host, a, b := player(t, "host"), player(t, "a"), player(t, "b")
	ctx := context.Background()

	older := create(t, d, host, 2, false)
	newer := create(t, d, host, 3, false)
	create(t, d, host, 3, true)
	assert.Len(t, older.JoinCode, RoomCodeLength)
	assert.Equal(t, "RJC", older.RelayJoinCode)

	rooms, err := d.Client(a).Query(ctx, types.QueryOptions{MinAvailableSlots: 1})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, newer.ID, rooms[0].ID)
	assert.Equal(t, older.ID, rooms[1].ID)

	joined, err := d.Client(a).JoinByCode(ctx, older.JoinCode, types.Player{DisplayName: "a"})
	require.NoError(t, err)
	assert.True(t, joined.HasPlayer(a.PlayerID()))
	assert.Greater(t, joined.Version, older.Version)

	_, err = d.Client(b).JoinByID(ctx, older.ID, types.Player{})
	assert.ErrorIs(t, err, types.ErrRoomFull)

	// 满员房间不再出现在查询中
	rooms, err = d.Client(a).Query(ctx, types.QueryOptions{MinAvailableSlots: 1})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, newer.ID, rooms[0].ID)

	quick, err := d.Client(b).QuickJoin(ctx, types.Player{})
	require.NoError(t, err)
	assert.Equal(t, newer.ID, quick.ID)
}

func TestRedisDirectory_HostOnlyAndLock(t *testing.T) {
	d := newDirectory(t, 0)
	host, a, b := player(t, "host"), player(t, "a"), player(t, "b")
	ctx := context.Background()
	room := create(t, d, host, 4, false)

	_, err := d.Client(a).JoinByCode(ctx, room.JoinCode, types.Player{})
	require.NoError(t, err)

	yes := true
	_, err = d.Client(a).Update(ctx, room.ID, types.RoomPatch{IsLocked: &yes})
	assert.ErrorIs(t, err, types.ErrNotHost)
	assert.ErrorIs(t, d.Client(a).Delete(ctx, room.ID), types.ErrNotHost)
	assert.ErrorIs(t, d.Client(a).Heartbeat(ctx, room.ID), types.ErrNotHost)

	locked, err := d.Client(host).Update(ctx, room.ID, types.RoomPatch{IsLocked: &yes})
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)

	_, err = d.Client(b).JoinByCode(ctx, room.JoinCode, types.Player{})
	assert.ErrorIs(t, err, types.ErrRoomLocked)
}

type pushes struct {
	mu      sync.Mutex
	changes []types.RoomChange
	joined  int
	left    []string
	kicked  atomic.Int32
}

func (p *pushes) callbacks() interfaces.RoomCallbacks {
	return interfaces.RoomCallbacks{
		OnChanged: func(c types.RoomChange) {
			p.mu.Lock()
			p.changes = append(p.changes, c)
			p.mu.Unlock()
		},
		OnPlayerJoined: func(ps []types.Player) {
			p.mu.Lock()
			p.joined += len(ps)
			p.mu.Unlock()
		},
		OnPlayerLeft: func(ids []string) {
			p.mu.Lock()
			p.left = append(p.left, ids...)
			p.mu.Unlock()
		},
		OnKicked: func() { p.kicked.Add(1) },
	}
}

func (p *pushes) counts() (changes, joined, left int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.changes), p.joined, len(p.left)
}

func TestRedisDirectory_PushNotifications(t *testing.T) {
	d := newDirectory(t, 0)
	host, a := player(t, "host"), player(t, "a")
	ctx := context.Background()
	room := create(t, d, host, 4, false)

	var hostPush, aPush pushes
	_, err := d.Client(host).Subscribe(ctx, room.ID, hostPush.callbacks())
	require.NoError(t, err)
	_, err = d.Client(host).Subscribe(ctx, room.ID, hostPush.callbacks())
	assert.ErrorIs(t, err, types.ErrAlreadySubscribed)
	_, err = d.Client(a).Subscribe(ctx, room.ID, aPush.callbacks())
	assert.ErrorIs(t, err, types.ErrNotMember)

	_, err = d.Client(a).JoinByCode(ctx, room.JoinCode, types.Player{})
	require.NoError(t, err)
	ah, err := d.Client(a).Subscribe(ctx, room.ID, aPush.callbacks())
	require.NoError(t, err)
	testutil.Eventually(t, 5*time.Second, func() bool {
		_, joined, _ := hostPush.counts()
		return joined == 1
	}, "房主应收到加入通知")

	require.NoError(t, d.Client(host).RemovePlayer(ctx, room.ID, a.PlayerID()))
	testutil.Eventually(t, 5*time.Second, func() bool { return aPush.kicked.Load() == 1 }, "被踢者应收到通知")
	testutil.Eventually(t, 5*time.Second, func() bool {
		_, _, left := hostPush.counts()
		return left == 1
	}, "房主应收到离开通知")

	// 被踢后订阅已释放
	testutil.Eventually(t, 5*time.Second, func() bool {
		return ah.Unsubscribe(ctx) != nil
	}, "被踢者订阅应已释放")

	require.NoError(t, d.Client(host).Delete(ctx, room.ID))
	testutil.Eventually(t, 5*time.Second, func() bool {
		hostPush.mu.Lock()
		defer hostPush.mu.Unlock()
		n := len(hostPush.changes)
		return n > 0 && hostPush.changes[n-1].Deleted
	}, "房主应收到删除通知")

	_, err = d.Client(a).JoinByCode(ctx, room.JoinCode, types.Player{})
	assert.ErrorIs(t, err, types.ErrRoomNotFound)
}

func TestRedisDirectory_ConcurrentJoinsRespectCapacity(t *testing.T) {
	d := newDirectory(t, 0)
	host := player(t, "host")
	room := create(t, d, host, 3, false)

	const n = 8
	var wg sync.WaitGroup
	var ok atomic.Int32
	for range n {
		p := player(t, "p")
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := d.Client(p).JoinByCode(context.Background(), room.JoinCode, types.Player{}); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), ok.Load())
	rec, err := d.load(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Room.PlayerCount())
}

func TestRedisDirectory_StaleRoomsDisappear(t *testing.T) {
	d := newDirectory(t, time.Second)
	host, a := player(t, "host"), player(t, "a")
	ctx := context.Background()

	kept := create(t, d, host, 4, false)
	stale := create(t, d, host, 4, false)

	deadline := time.Now().Add(1500 * time.Millisecond)
	for time.Now().Before(deadline) {
		require.NoError(t, d.Client(host).Heartbeat(ctx, kept.ID))
		time.Sleep(200 * time.Millisecond)
	}

	rooms, err := d.Client(a).Query(ctx, types.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, kept.ID, rooms[0].ID)

	reaped, err := d.ReapStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{stale.ID}, reaped)

	_, err = d.load(ctx, stale.ID)
	assert.ErrorIs(t, err, types.ErrRoomNotFound)
}
