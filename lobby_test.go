package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-lobby/internal/backend/memory"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
	"github.com/dep2p/go-lobby/tests/testutil"
)

const eventTimeout = 5 * time.Second

// startPlayer 在共享的进程内世界中启动一个玩家
func startPlayer(t *testing.T, w *memory.World, profile string) *Lobby {
	t.Helper()
	p := w.NewPlayer()
	lb, err := Start(context.Background(),
		WithBackends(p.Backends),
		WithProfile(profile),
		WithPreset(PresetTest),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lb.Close() })
	return lb
}

func newWorld(t *testing.T) *memory.World {
	t.Helper()
	w := memory.NewWorld(memory.WithHandshake(2 * time.Millisecond))
	t.Cleanup(w.Close)
	return w
}

func subscribe(t *testing.T, lb *Lobby, evt any) interfaces.Subscription {
	t.Helper()
	sub, err := lb.Subscribe(evt)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })
	return sub
}

func TestLobby_OptionsValidation(t *testing.T) {
	_, err := New(context.Background())
	assert.ErrorIs(t, err, ErrMissingBackends)

	_, err = New(context.Background(), WithProfile("has space"))
	assert.Error(t, err)

	_, err = New(context.Background(), WithBackends(interfaces.Backends{}))
	assert.ErrorIs(t, err, ErrMissingBackends)
}

func TestLobby_CommandsRequireStart(t *testing.T) {
	w := newWorld(t)
	lb, err := New(context.Background(), WithBackends(w.NewPlayer().Backends), WithPreset(PresetTest))
	require.NoError(t, err)

	assert.ErrorIs(t, lb.PlayNow(context.Background()), ErrNotStarted)
	assert.Equal(t, types.StateDisconnected, lb.State())

	require.NoError(t, lb.Start(context.Background()))
	assert.ErrorIs(t, lb.Start(context.Background()), ErrAlreadyStarted)

	require.NoError(t, lb.Close())
	require.NoError(t, lb.Close())
	assert.ErrorIs(t, lb.PlayNow(context.Background()), ErrClosed)
}

// 创建房间、两名玩家通过房间码加入、房主锁定房间
func TestLobby_CreateTwoJoinsAndLock(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	host := startPlayer(t, w, "host")
	alice := startPlayer(t, w, "alice")
	bob := startPlayer(t, w, "bob")
	late := startPlayer(t, w, "late")

	ready := subscribe(t, host, new(types.EvtSessionReady))
	require.NoError(t, host.CreateRoom(ctx, "arena", 4))
	assert.True(t, testutil.WaitForEvent[types.EvtSessionReady](t, ready, eventTimeout).IsHost)
	assert.Equal(t, types.StateInGame, host.State())

	room := host.Room()
	require.NotNil(t, room)
	assert.NotEmpty(t, room.RelayJoinCode)

	require.NoError(t, alice.JoinByCode(ctx, room.JoinCode))
	require.NoError(t, bob.JoinByCode(ctx, room.JoinCode))
	assert.Equal(t, types.StateInGame, alice.State())
	assert.Equal(t, types.StateInGame, bob.State())
	assert.False(t, alice.Room().IsHost(alice.Identity().PlayerID))

	testutil.Eventually(t, eventTimeout, func() bool {
		return host.Room().PlayerCount() == 3
	}, "房主投影应包含三名成员")

	locked, err := host.LockRoom(ctx)
	require.NoError(t, err)
	assert.True(t, locked.IsLocked)
	testutil.Eventually(t, eventTimeout, func() bool {
		r := alice.Room()
		return r != nil && r.IsLocked
	}, "成员投影应看到锁定")

	err = late.JoinByCode(ctx, room.JoinCode)
	require.Error(t, err)
	assert.Equal(t, types.KindRoom, types.KindOf(err))
	assert.ErrorIs(t, err, types.ErrRoomLocked)
	assert.Equal(t, types.StateDisconnected, late.State())

	// 锁定的房间不出现在房间列表中
	rooms, err := late.Rooms(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

// 被房主踢出的成员走拆除路径回到 Disconnected
func TestLobby_KickedPlayerTearsDown(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	host := startPlayer(t, w, "host")
	guest := startPlayer(t, w, "guest")

	require.NoError(t, host.CreateRoom(ctx, "arena", 4))
	require.NoError(t, guest.JoinByCode(ctx, host.Room().JoinCode))

	ended := subscribe(t, guest, new(types.EvtSessionEnded))
	hostEnded := subscribe(t, host, new(types.EvtSessionEnded))

	require.NoError(t, host.Kick(ctx, guest.Identity().PlayerID))

	evt := testutil.WaitForEvent[types.EvtSessionEnded](t, ended, eventTimeout)
	assert.Equal(t, types.ReasonKicked, evt.Reason)
	assert.Equal(t, types.StateDisconnected, guest.State())
	assert.Nil(t, guest.Room())

	testutil.NoEvent(t, ended, 100*time.Millisecond)
	testutil.NoEvent(t, hostEnded, 100*time.Millisecond)
	assert.Equal(t, types.StateInGame, host.State())
	testutil.Eventually(t, eventTimeout, func() bool {
		return host.Room().PlayerCount() == 1
	}, "房主投影应移除被踢成员")

	// 被踢后可以重新加入
	require.NoError(t, guest.JoinByCode(ctx, host.Room().JoinCode))
	assert.Equal(t, types.StateInGame, guest.State())
}

// 房主离开删除房间，成员随之结束会话
func TestLobby_HostLeaveEndsClients(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	host := startPlayer(t, w, "host")
	guest := startPlayer(t, w, "guest")

	require.NoError(t, host.CreateRoom(ctx, "arena", 2))
	require.NoError(t, guest.JoinByCode(ctx, host.Room().JoinCode))

	hostEnded := subscribe(t, host, new(types.EvtSessionEnded))
	guestEnded := subscribe(t, guest, new(types.EvtSessionEnded))

	require.NoError(t, host.Leave(ctx))
	assert.Equal(t, types.ReasonLeft, testutil.WaitForEvent[types.EvtSessionEnded](t, hostEnded, eventTimeout).Reason)
	assert.Zero(t, w.Directory.Len())

	evt := testutil.WaitForEvent[types.EvtSessionEnded](t, guestEnded, eventTimeout)
	assert.Contains(t, []types.EndReason{types.ReasonRoomDeleted, types.ReasonDisconnected}, evt.Reason)
	assert.Equal(t, types.StateDisconnected, guest.State())
	testutil.NoEvent(t, guestEnded, 100*time.Millisecond)
}

func TestLobby_PlayNowFallsBackToCreate(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	first := startPlayer(t, w, "first")
	second := startPlayer(t, w, "second")

	require.NoError(t, first.PlayNow(ctx))
	room := first.Room()
	require.NotNil(t, room)
	assert.True(t, room.IsHost(first.Identity().PlayerID))
	assert.Equal(t, first.Config().Room.DefaultName, room.Name)

	require.NoError(t, second.PlayNow(ctx))
	assert.Equal(t, room.ID, second.Room().ID)
	assert.False(t, second.Room().IsHost(second.Identity().PlayerID))
}
