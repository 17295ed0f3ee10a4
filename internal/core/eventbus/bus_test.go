package eventbus

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	pkgif "github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

// ============================================================================
//                              基础功能测试
// ============================================================================

func TestBus_EmitAndReceive(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(types.EvtRoomJoined))
	require.NoError(t, err)
	defer sub.Close()

	em, err := bus.Emitter(new(types.EvtRoomJoined))
	require.NoError(t, err)

	require.NoError(t, em.Emit(types.EvtRoomJoined{Code: "ABC123", Name: "Test"}))

	evt := <-sub.Out()
	assert.Equal(t, "ABC123", evt.(types.EvtRoomJoined).Code)
}

func TestBus_RoutesByType(t *testing.T) {
	bus := NewBus()

	ended, err := bus.Subscribe(new(types.EvtSessionEnded))
	require.NoError(t, err)
	ready, err := bus.Subscribe(new(types.EvtSessionReady))
	require.NoError(t, err)

	em, err := bus.Emitter(new(types.EvtSessionReady))
	require.NoError(t, err)
	require.NoError(t, em.Emit(types.EvtSessionReady{RoomID: "r1"}))

	assert.Len(t, ready.Out(), 1)
	assert.Len(t, ended.Out(), 0)
}

func TestBus_InvalidEventType(t *testing.T) {
	bus := NewBus()

	_, err := bus.Subscribe(nil)
	assert.ErrorIs(t, err, ErrInvalidEventType)

	_, err = bus.Subscribe(types.EvtSignedIn{})
	assert.ErrorIs(t, err, ErrNonPointerType)

	_, err = bus.Emitter(types.EvtSignedIn{})
	assert.ErrorIs(t, err, ErrNonPointerType)
}

func TestEmitter_WrongTypeAndClosed(t *testing.T) {
	bus := NewBus()
	em, err := bus.Emitter(new(types.EvtSignedIn))
	require.NoError(t, err)

	assert.ErrorIs(t, em.Emit(types.EvtSessionReady{}), ErrWrongEventType)

	require.NoError(t, em.Close())
	assert.ErrorIs(t, em.Emit(types.EvtSignedIn{}), ErrEmitterClosed)
}

func TestBus_StatefulReplaysLast(t *testing.T) {
	bus := NewBus()
	em, err := bus.Emitter(new(types.EvtStateChanged), pkgif.Stateful())
	require.NoError(t, err)

	require.NoError(t, em.Emit(types.EvtStateChanged{To: types.StateAuthenticating}))
	require.NoError(t, em.Emit(types.EvtStateChanged{To: types.StateRoomPending}))

	sub, err := bus.Subscribe(new(types.EvtStateChanged))
	require.NoError(t, err)

	evt := <-sub.Out()
	assert.Equal(t, types.StateRoomPending, evt.(types.EvtStateChanged).To)
}

func TestBus_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	sub, err := bus.Subscribe(new(types.EvtRoomUpdated), pkgif.BufSize(1))
	require.NoError(t, err)

	em, err := bus.Emitter(new(types.EvtRoomUpdated))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.NoError(t, em.Emit(types.EvtRoomUpdated{}))
	}

	assert.Len(t, sub.Out(), 1)
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	bus := NewBus()
	sub, err := bus.Subscribe(new(types.EvtSignedIn))
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Out()
	assert.False(t, ok)

	// 关闭后发射不 panic
	em, err := bus.Emitter(new(types.EvtSignedIn))
	require.NoError(t, err)
	assert.NoError(t, em.Emit(types.EvtSignedIn{}))
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()
	sub, err := bus.Subscribe(new(types.EvtSignedIn))
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, ok := <-sub.Out()
	assert.False(t, ok)
	require.NoError(t, sub.Close())

	_, err = bus.Subscribe(new(types.EvtSignedIn))
	assert.ErrorIs(t, err, ErrClosed)
}

// ============================================================================
//                              并发测试
// ============================================================================

func TestBus_ConcurrentEmitAndClose(t *testing.T) {
	bus := NewBus()
	em, err := bus.Emitter(new(types.EvtRoomUpdated))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		sub, err := bus.Subscribe(new(types.EvtRoomUpdated), pkgif.BufSize(4))
		require.NoError(t, err)
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = em.Emit(types.EvtRoomUpdated{})
			}
		}()
		go func() {
			defer wg.Done()
			_ = sub.Close()
		}()
	}
	wg.Wait()
}

// ============================================================================
//                              Fx 模块测试
// ============================================================================

func TestModule_ClosesOnStop(t *testing.T) {
	var bus pkgif.EventBus
	app := fxtest.New(t,
		Module(),
		fx.Populate(&bus),
	)
	app.RequireStart()

	sub, err := bus.Subscribe(new(types.EvtSessionEnded))
	require.NoError(t, err)

	require.NoError(t, app.Stop(context.Background()))
	_, ok := <-sub.Out()
	assert.False(t, ok)
}
