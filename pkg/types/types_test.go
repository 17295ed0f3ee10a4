package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidProfileName(t *testing.T) {
	assert.True(t, ValidProfileName("player_1"))
	assert.True(t, ValidProfileName("A-b_C"))
	assert.True(t, ValidProfileName("a"))
	assert.False(t, ValidProfileName(""))
	assert.False(t, ValidProfileName("has space"))
	assert.False(t, ValidProfileName("名字"))
	assert.False(t, ValidProfileName("abcdefghijklmnopqrstuvwxyz12345")) // 31
}

func TestDeriveClientID(t *testing.T) {
	assert.Zero(t, DeriveClientID(""))
	a := DeriveClientID("player-a")
	assert.NotZero(t, a)
	assert.Equal(t, a, DeriveClientID("player-a"))
	assert.NotEqual(t, a, DeriveClientID("player-b"))
}

func TestRoom_Membership(t *testing.T) {
	r := &Room{ID: "r1", HostID: "h", Capacity: 2}
	assert.True(t, r.AddPlayer(Player{ID: "h"}))
	assert.False(t, r.AddPlayer(Player{ID: "h"}))
	assert.True(t, r.IsOpen())

	assert.True(t, r.AddPlayer(Player{ID: "c"}))
	assert.True(t, r.IsFull())
	assert.False(t, r.IsOpen())

	assert.True(t, r.RemovePlayer("c"))
	assert.False(t, r.RemovePlayer("c"))
	assert.Equal(t, 1, r.AvailableSlots())

	assert.True(t, r.IsHost("h"))
	assert.False(t, r.IsHost(""))
	var nilRoom *Room
	assert.False(t, nilRoom.IsHost("h"))
}

func TestRoom_CloneIsDeep(t *testing.T) {
	r := &Room{Metadata: map[string]string{"k": "v"}, Players: []Player{{ID: "a"}}}
	c := r.Clone()
	c.Metadata["k"] = "changed"
	c.Players[0].ID = "b"

	assert.Equal(t, "v", r.Metadata["k"])
	assert.Equal(t, "a", r.Players[0].ID)
}

func TestRoomChange_Apply(t *testing.T) {
	locked := true
	r := &Room{Version: 3, Metadata: map[string]string{"a": "1"}}

	// 过期变更被忽略
	_, applied := RoomChange{Version: 3, IsLocked: &locked}.Apply(r)
	assert.False(t, applied)
	assert.False(t, r.IsLocked)

	diff, applied := RoomChange{
		Version:  4,
		IsLocked: &locked,
		Metadata: map[string]string{"a": "", MetaRelayJoinCode: "JC"},
	}.Apply(r)
	require.True(t, applied)
	assert.True(t, diff.LockChanged)
	assert.Equal(t, []string{MetaRelayJoinCode, "a"}, diff.MetadataChanged)
	assert.True(t, r.IsLocked)
	assert.Equal(t, "JC", r.RelayJoinCode)
	assert.NotContains(t, r.Metadata, "a")
	assert.Equal(t, uint64(4), r.Version)
}

func TestError_KindAndWrapping(t *testing.T) {
	err := RoomError("join", ErrRoomLocked)
	assert.Equal(t, KindRoom, KindOf(err))
	assert.ErrorIs(t, err, ErrRoomLocked)
	assert.Equal(t, "room: join: room is locked", err.Error())

	// 已分类的错误不被重新分类
	wrapped := TransportError("start", fmt.Errorf("ctx: %w", err))
	assert.Equal(t, KindRoom, KindOf(wrapped))

	assert.Nil(t, RelayError("x", nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestReasonForError(t *testing.T) {
	assert.Equal(t, ReasonAuthFailed, ReasonForError(AuthError("sign_in", ErrServiceUnavailable)))
	assert.Equal(t, ReasonRelayFailed, ReasonForError(RelayError("allocate", ErrServiceUnavailable)))
	assert.Equal(t, ReasonTimeout, ReasonForError(TransportError("wait", ErrHandshakeTimeout)))
	assert.Equal(t, ReasonTransportFailed, ReasonForError(TransportError("start", ErrAlreadyListening)))
	assert.Equal(t, ReasonRoomFailed, ReasonForError(RoomError("create", ErrServiceUnavailable)))
}
