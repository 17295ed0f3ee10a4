package heartbeat

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-lobby/tests/mocks"
	"github.com/dep2p/go-lobby/tests/testutil"
)

func TestKeeper_PingsOnEachInterval(t *testing.T) {
	dir := mocks.NewMockDirectoryService()
	var rooms atomic.Value
	dir.HeartbeatFunc = func(_ context.Context, roomID string) error {
		rooms.Store(roomID)
		return nil
	}
	clk := clock.NewMock()
	k := NewKeeper(dir, clk, nil)

	require.NoError(t, k.Start("room-1", 15*time.Second))
	assert.True(t, k.Running())
	assert.Equal(t, "room-1", k.RoomID())

	for i := 1; i <= 3; i++ {
		clk.Add(15 * time.Second)
		want := int64(i)
		testutil.Eventually(t, time.Second, func() bool { return k.Pings() == want }, "等待心跳")
	}
	assert.Equal(t, "room-1", rooms.Load())

	assert.True(t, k.Stop())
	assert.False(t, k.Running())
	assert.False(t, k.Stop())

	// 停止后不再发送
	clk.Add(time.Minute)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int64(3), k.Pings())
}

func TestKeeper_FailuresDoNotStopTimer(t *testing.T) {
	dir := mocks.NewMockDirectoryService()
	dir.HeartbeatFunc = func(context.Context, string) error {
		return errors.New("directory unavailable")
	}
	clk := clock.NewMock()
	k := NewKeeper(dir, clk, nil)
	require.NoError(t, k.Start("room-1", time.Second))
	defer k.Stop()

	for i := 1; i <= 3; i++ {
		clk.Add(time.Second)
		want := int64(i)
		testutil.Eventually(t, time.Second, func() bool { return k.Failures() == want }, "等待失败计数")
	}
	assert.True(t, k.Running())
}

func TestKeeper_StartReplacesPreviousLoop(t *testing.T) {
	dir := mocks.NewMockDirectoryService()
	clk := clock.NewMock()
	k := NewKeeper(dir, clk, nil)

	require.NoError(t, k.Start("room-1", time.Second))
	require.NoError(t, k.Start("room-2", time.Second))
	assert.Equal(t, "room-2", k.RoomID())

	clk.Add(time.Second)
	testutil.Eventually(t, time.Second, func() bool { return dir.CallCount("Heartbeat") == 1 }, "只有一个循环")
	k.Stop()
}

func TestKeeper_InvalidInterval(t *testing.T) {
	k := NewKeeper(mocks.NewMockDirectoryService(), clock.NewMock(), nil)
	assert.ErrorIs(t, k.Start("room-1", 0), ErrInvalidInterval)
	assert.False(t, k.Running())
}
