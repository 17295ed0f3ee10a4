package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
	"github.com/dep2p/go-lobby/tests/testutil"
)

// signedIn 创建已登录的身份
func signedIn(t *testing.T, profile string) *Identity {
	t.Helper()
	ids := NewIdentity()
	ctx := context.Background()
	require.NoError(t, ids.Initialize(ctx, interfaces.InitOptions{Profile: profile}))
	require.NoError(t, ids.SignInAnonymously(ctx))
	return ids
}

func self(ids *Identity) types.Player {
	return types.Player{ID: ids.PlayerID(), DisplayName: ids.DisplayName()}
}

// recorder 线程安全地记录推送
type recorder struct {
	mu      sync.Mutex
	changes []types.RoomChange
	joined  []string
	left    []string
	kicked  int
	states  []types.SubscriptionState
}

func (r *recorder) callbacks() interfaces.RoomCallbacks {
	return interfaces.RoomCallbacks{
		OnChanged: func(c types.RoomChange) {
			r.mu.Lock()
			r.changes = append(r.changes, c)
			r.mu.Unlock()
		},
		OnPlayerJoined: func(ps []types.Player) {
			r.mu.Lock()
			for _, p := range ps {
				r.joined = append(r.joined, p.ID)
			}
			r.mu.Unlock()
		},
		OnPlayerLeft: func(ids []string) {
			r.mu.Lock()
			r.left = append(r.left, ids...)
			r.mu.Unlock()
		},
		OnKicked: func() {
			r.mu.Lock()
			r.kicked++
			r.mu.Unlock()
		},
		OnConnectionStateChanged: func(s types.SubscriptionState) {
			r.mu.Lock()
			r.states = append(r.states, s)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return recorder{
		changes: append([]types.RoomChange(nil), r.changes...),
		joined:  append([]string(nil), r.joined...),
		left:    append([]string(nil), r.left...),
		kicked:  r.kicked,
		states:  append([]types.SubscriptionState(nil), r.states...),
	}
}

func createRoom(t *testing.T, svc interfaces.DirectoryService, host *Identity, name string, size int) *types.Room {
	t.Helper()
	room, err := svc.Create(context.Background(), interfaces.CreateRequest{
		Name:       name,
		MaxPlayers: size,
		Metadata:   map[string]string{types.MetaRelayJoinCode: "RJC"},
		Player:     self(host),
	})
	require.NoError(t, err)
	return room
}

func TestDirectory_CreateAndQueryNewestFirst(t *testing.T) {
	d := NewDirectory(nil)
	host := signedIn(t, "host")
	svc := d.Client(host)

	first := createRoom(t, svc, host, "first", 4)
	second := createRoom(t, svc, host, "second", 4)
	assert.Len(t, first.JoinCode, RoomCodeLength)
	assert.Equal(t, "RJC", first.RelayJoinCode)
	assert.Equal(t, host.PlayerID(), first.HostID)

	rooms, err := svc.Query(context.Background(), types.QueryOptions{MinAvailableSlots: 1, Order: types.OrderNewestFirst, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, second.ID, rooms[0].ID)
	assert.Equal(t, first.ID, rooms[1].ID)

	rooms, err = svc.Query(context.Background(), types.QueryOptions{Order: types.OrderOldestFirst, Limit: 1})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, first.ID, rooms[0].ID)
}

func TestDirectory_JoinRules(t *testing.T) {
	d := NewDirectory(nil)
	host, a, b := signedIn(t, "host"), signedIn(t, "a"), signedIn(t, "b")
	ctx := context.Background()
	room := createRoom(t, d.Client(host), host, "r", 2)

	_, err := d.Client(a).JoinByCode(ctx, "nope", self(a))
	assert.ErrorIs(t, err, types.ErrRoomNotFound)

	joined, err := d.Client(a).JoinByCode(ctx, room.JoinCode, self(a))
	require.NoError(t, err)
	assert.Equal(t, 2, joined.PlayerCount())

	_, err = d.Client(b).JoinByID(ctx, room.ID, self(b))
	assert.ErrorIs(t, err, types.ErrRoomFull)

	yes := true
	_, err = d.Client(a).Update(ctx, room.ID, types.RoomPatch{IsLocked: &yes})
	assert.ErrorIs(t, err, types.ErrNotHost)

	require.NoError(t, d.Client(a).RemovePlayer(ctx, room.ID, a.PlayerID()))
	_, err = d.Client(host).Update(ctx, room.ID, types.RoomPatch{IsLocked: &yes})
	require.NoError(t, err)
	_, err = d.Client(b).JoinByCode(ctx, room.JoinCode, self(b))
	assert.ErrorIs(t, err, types.ErrRoomLocked)
}

func TestDirectory_QuickJoin(t *testing.T) {
	d := NewDirectory(nil)
	host, a := signedIn(t, "host"), signedIn(t, "a")
	ctx := context.Background()

	_, err := d.Client(a).QuickJoin(ctx, self(a))
	assert.ErrorIs(t, err, types.ErrRoomNotFound)

	room := createRoom(t, d.Client(host), host, "r", 4)
	joined, err := d.Client(a).QuickJoin(ctx, self(a))
	require.NoError(t, err)
	assert.Equal(t, room.ID, joined.ID)
}

func TestDirectory_SubscriptionLifecycle(t *testing.T) {
	d := NewDirectory(nil)
	host, a := signedIn(t, "host"), signedIn(t, "a")
	ctx := context.Background()
	room := createRoom(t, d.Client(host), host, "r", 4)

	var rec recorder
	h, err := d.Client(host).Subscribe(ctx, room.ID, rec.callbacks())
	require.NoError(t, err)
	_, err = d.Client(host).Subscribe(ctx, room.ID, rec.callbacks())
	assert.ErrorIs(t, err, types.ErrAlreadySubscribed)

	_, err = d.Client(a).Subscribe(ctx, room.ID, rec.callbacks())
	assert.ErrorIs(t, err, types.ErrNotMember)

	_, err = d.Client(a).JoinByCode(ctx, room.JoinCode, self(a))
	require.NoError(t, err)
	testutil.Eventually(t, time.Second, func() bool { return len(rec.snapshot().joined) == 1 }, "等待加入通知")
	assert.Equal(t, []string{a.PlayerID()}, rec.snapshot().joined)

	yes := true
	_, err = d.Client(host).Update(ctx, room.ID, types.RoomPatch{IsLocked: &yes})
	require.NoError(t, err)
	testutil.Eventually(t, time.Second, func() bool { return len(rec.snapshot().changes) == 1 }, "等待变更通知")
	change := rec.snapshot().changes[0]
	assert.True(t, *change.IsLocked)
	assert.Greater(t, change.Version, room.Version)

	require.NoError(t, h.Unsubscribe(ctx))
	assert.ErrorIs(t, h.Unsubscribe(ctx), types.ErrAlreadyUnsubscribed)
	assert.Zero(t, d.Subscribers(room.ID))
}

func TestDirectory_KickNotifiesTarget(t *testing.T) {
	d := NewDirectory(nil)
	host, a := signedIn(t, "host"), signedIn(t, "a")
	ctx := context.Background()
	room := createRoom(t, d.Client(host), host, "r", 4)
	_, err := d.Client(a).JoinByCode(ctx, room.JoinCode, self(a))
	require.NoError(t, err)

	var hostRec, aRec recorder
	_, err = d.Client(host).Subscribe(ctx, room.ID, hostRec.callbacks())
	require.NoError(t, err)
	ah, err := d.Client(a).Subscribe(ctx, room.ID, aRec.callbacks())
	require.NoError(t, err)

	// 成员不能踢人
	assert.ErrorIs(t, d.Client(a).RemovePlayer(ctx, room.ID, host.PlayerID()), types.ErrNotHost)

	require.NoError(t, d.Client(host).RemovePlayer(ctx, room.ID, a.PlayerID()))
	testutil.Eventually(t, time.Second, func() bool { return aRec.snapshot().kicked == 1 }, "等待踢出通知")
	testutil.Eventually(t, time.Second, func() bool { return len(hostRec.snapshot().left) == 1 }, "等待离开通知")

	// 被踢者的订阅已被服务端释放
	assert.ErrorIs(t, ah.Unsubscribe(ctx), types.ErrAlreadyUnsubscribed)
	assert.Equal(t, 1, d.Subscribers(room.ID))
}

func TestDirectory_DeleteNotifiesSubscribers(t *testing.T) {
	d := NewDirectory(nil)
	host, a := signedIn(t, "host"), signedIn(t, "a")
	ctx := context.Background()
	room := createRoom(t, d.Client(host), host, "r", 4)
	_, err := d.Client(a).JoinByCode(ctx, room.JoinCode, self(a))
	require.NoError(t, err)

	var rec recorder
	_, err = d.Client(a).Subscribe(ctx, room.ID, rec.callbacks())
	require.NoError(t, err)

	assert.ErrorIs(t, d.Client(a).Delete(ctx, room.ID), types.ErrNotHost)
	require.NoError(t, d.Client(host).Delete(ctx, room.ID))

	testutil.Eventually(t, time.Second, func() bool {
		s := rec.snapshot()
		return len(s.changes) == 1 && s.changes[0].Deleted
	}, "等待删除通知")
	assert.Zero(t, d.Len())
	_, err = d.Client(a).JoinByCode(ctx, room.JoinCode, self(a))
	assert.ErrorIs(t, err, types.ErrRoomNotFound)
}

func TestDirectory_ReapStale(t *testing.T) {
	clk := clock.NewMock()
	d := NewDirectory(clk)
	host := signedIn(t, "host")
	ctx := context.Background()
	svc := d.Client(host)

	kept := createRoom(t, svc, host, "kept", 4)
	stale := createRoom(t, svc, host, "stale", 4)

	clk.Add(30 * time.Second)
	require.NoError(t, svc.Heartbeat(ctx, kept.ID))
	clk.Add(30 * time.Second)

	assert.Equal(t, []string{stale.ID}, d.ReapStale(45*time.Second))
	_, ok := d.Room(kept.ID)
	assert.True(t, ok)
	_, ok = d.Room(stale.ID)
	assert.False(t, ok)
}

func TestDirectory_FaultInjection(t *testing.T) {
	d := NewDirectory(nil)
	host := signedIn(t, "host")
	svc := d.Client(host)

	d.FailNext("create", types.ErrServiceUnavailable)
	_, err := svc.Create(context.Background(), interfaces.CreateRequest{Name: "r", MaxPlayers: 2, Player: self(host)})
	assert.ErrorIs(t, err, types.ErrServiceUnavailable)

	// 一次性
	createRoom(t, svc, host, "r", 2)
}

func TestDirectory_RequiresSignIn(t *testing.T) {
	d := NewDirectory(nil)
	_, err := d.Client(NewIdentity()).Query(context.Background(), types.QueryOptions{})
	assert.ErrorIs(t, err, types.ErrNotAuthenticated)
}

func TestDirectory_Disrupt(t *testing.T) {
	d := NewDirectory(nil)
	host := signedIn(t, "host")
	room := createRoom(t, d.Client(host), host, "r", 2)

	var rec recorder
	_, err := d.Client(host).Subscribe(context.Background(), room.ID, rec.callbacks())
	require.NoError(t, err)

	d.Disrupt(room.ID)
	testutil.Eventually(t, time.Second, func() bool { return len(rec.snapshot().states) == 2 }, "等待连接状态通知")
	assert.Equal(t, []types.SubscriptionState{types.SubUnsynced, types.SubSubscribed}, rec.snapshot().states)
}
