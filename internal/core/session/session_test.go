package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-lobby/pkg/types"
)

func TestSession_BeginOnlyFromDisconnected(t *testing.T) {
	s := New()
	token, err := s.Begin()
	require.NoError(t, err)
	assert.Equal(t, types.StateAuthenticating, s.State())

	_, err = s.Begin()
	assert.ErrorIs(t, err, types.ErrSessionBusy)
	assert.Equal(t, types.KindPrecondition, types.KindOf(err))

	s.Reset()
	next, err := s.Begin()
	require.NoError(t, err)
	assert.NotEqual(t, token, next)
}

func TestSession_TransitionTable(t *testing.T) {
	s := New()
	token, err := s.Begin()
	require.NoError(t, err)

	// 跳过 RoomPending 不合法
	assert.Error(t, s.Transition(token, types.StateConnecting))

	require.NoError(t, s.Transition(token, types.StateRoomPending))
	require.NoError(t, s.CommitRoom(token, &types.Room{ID: "r1"}, nil))
	require.NoError(t, s.Transition(token, types.StateConnecting))
	require.NoError(t, s.Transition(token, types.StateInGame))
	assert.Equal(t, types.StateInGame, s.State())
}

func TestSession_InvalidateAbortsWorkflow(t *testing.T) {
	s := New()
	token, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, s.Transition(token, types.StateRoomPending))

	snap := s.Invalidate()
	assert.Equal(t, types.StateRoomPending, snap.State)
	assert.False(t, s.Valid(token))

	// 被拆除后提交房间失败，会话不持有房间
	err = s.CommitRoom(token, &types.Room{ID: "r1"}, &Allocation{AllocationID: "a1"})
	assert.ErrorIs(t, err, types.ErrSessionAborted)
	assert.Nil(t, s.Room())
	assert.Nil(t, s.Allocation())
}

func TestSession_ResetClearsRoomKeepsIdentity(t *testing.T) {
	s := New()
	s.SetIdentity(types.Identity{PlayerID: "p1", DisplayName: "alice", LocalClientID: 7})

	token, err := s.Begin()
	require.NoError(t, err)
	require.NoError(t, s.Transition(token, types.StateRoomPending))
	require.NoError(t, s.CommitRoom(token, &types.Room{ID: "r1", HostID: "p1"}, &Allocation{JoinCode: "JC"}))
	assert.True(t, s.IsHost())
	assert.True(t, s.ValidRoom(token))

	from := s.Reset()
	assert.Equal(t, types.StateRoomActive, from)
	assert.Equal(t, types.StateDisconnected, s.State())
	assert.Nil(t, s.Room())
	assert.Nil(t, s.Allocation())
	assert.False(t, s.ValidRoom(token))
	assert.Equal(t, "p1", s.Identity().PlayerID)
}

func TestSession_IdentityIsImmutable(t *testing.T) {
	s := New()
	s.SetIdentity(types.Identity{PlayerID: "p1"})
	got := s.SetIdentity(types.Identity{PlayerID: "p2"})
	assert.Equal(t, "p1", got.PlayerID)
}

func TestSession_RoomIsCopied(t *testing.T) {
	s := New()
	token, _ := s.Begin()
	require.NoError(t, s.Transition(token, types.StateRoomPending))
	room := &types.Room{ID: "r1", Players: []types.Player{{ID: "a"}}}
	require.NoError(t, s.CommitRoom(token, room, nil))

	room.Players[0].ID = "mutated"
	assert.Equal(t, "a", s.Room().Players[0].ID)

	updated, changed := s.UpdateRoom("r1", func(r *types.Room) bool {
		return r.AddPlayer(types.Player{ID: "b"})
	})
	require.True(t, changed)
	assert.Equal(t, 2, updated.PlayerCount())

	_, changed = s.UpdateRoom("other", func(r *types.Room) bool { return true })
	assert.False(t, changed)
}

func TestSession_StateChangeCallbacks(t *testing.T) {
	s := New()
	var got []types.SessionState
	s.OnStateChange(func(_, to types.SessionState) {
		got = append(got, to)
	})

	token, _ := s.Begin()
	_ = s.Transition(token, types.StateRoomPending)
	s.Reset()
	// Disconnected → Disconnected 不通知
	s.Reset()

	assert.Equal(t, []types.SessionState{
		types.StateAuthenticating,
		types.StateRoomPending,
		types.StateDisconnected,
	}, got)
}

func TestSession_ObserverRegistry(t *testing.T) {
	s := New()
	var calls []string
	s.Track("transport", func() { calls = append(calls, "transport-1") })
	s.Track("transport", func() { calls = append(calls, "transport-2") })
	s.Track("other", func() { calls = append(calls, "other") })

	// 同名登记取消旧的
	assert.Equal(t, []string{"transport-1"}, calls)
	assert.Equal(t, 2, s.Tracked())

	assert.True(t, s.Drain("other"))
	assert.False(t, s.Drain("other"))

	assert.Equal(t, 1, s.DrainAll())
	assert.Equal(t, 0, s.DrainAll())
	assert.Equal(t, []string{"transport-1", "other", "transport-2"}, calls)
}

func TestSession_ConcurrentBeginAdmitsOne(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Begin(); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, admitted)
}
