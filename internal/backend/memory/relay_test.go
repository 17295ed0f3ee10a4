package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-lobby/pkg/types"
)

func TestRelay_AllocateAndJoin(t *testing.T) {
	r := NewRelay(0)
	ctx := context.Background()

	alloc, err := r.CreateAllocation(ctx, 3)
	require.NoError(t, err)
	assert.True(t, alloc.ServerData.IsHost)

	code, err := r.GetJoinCode(ctx, alloc.AllocationID)
	require.NoError(t, err)
	assert.Len(t, code, RoomCodeLength)

	join, err := r.JoinAllocation(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, alloc.AllocationID, join.HostAllocationID)
	assert.Equal(t, alloc.ServerData.Endpoint, join.ServerData.Endpoint)
	assert.NotEqual(t, alloc.AllocationID, join.AllocationID)

	_, err = r.JoinAllocation(ctx, code)
	require.NoError(t, err)

	// 主机 + 2 个客户端已满
	_, err = r.JoinAllocation(ctx, code)
	assert.ErrorIs(t, err, types.ErrAllocationFull)
}

func TestRelay_UnknownAllocationAndCode(t *testing.T) {
	r := NewRelay(0)
	ctx := context.Background()

	_, err := r.GetJoinCode(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrAllocationNotFound)
	_, err = r.JoinAllocation(ctx, "ZZZZZZ")
	assert.ErrorIs(t, err, types.ErrJoinCodeNotFound)
}

func TestRelay_JoinCodeExpires(t *testing.T) {
	r := NewRelay(50 * time.Millisecond)
	ctx := context.Background()

	alloc, err := r.CreateAllocation(ctx, 4)
	require.NoError(t, err)
	code, err := r.GetJoinCode(ctx, alloc.AllocationID)
	require.NoError(t, err)

	time.Sleep(120 * time.Millisecond)
	_, err = r.JoinAllocation(ctx, code)
	assert.ErrorIs(t, err, types.ErrJoinCodeNotFound)
}

func TestRelay_FaultInjection(t *testing.T) {
	r := NewRelay(0)
	r.FailNext("create_allocation", types.ErrServiceUnavailable)

	_, err := r.CreateAllocation(context.Background(), 2)
	assert.ErrorIs(t, err, types.ErrServiceUnavailable)
	_, err = r.CreateAllocation(context.Background(), 2)
	assert.NoError(t, err)
}
