package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

func TestIdentity_SignIn(t *testing.T) {
	ids := NewIdentity()
	ctx := context.Background()

	assert.ErrorIs(t, ids.SignInAnonymously(ctx), ErrNotInitialized)
	assert.False(t, ids.IsSignedIn())

	require.NoError(t, ids.Initialize(ctx, interfaces.InitOptions{Profile: "alice"}))
	ids.FailNext("sign_in", types.ErrServiceUnavailable)
	assert.ErrorIs(t, ids.SignInAnonymously(ctx), types.ErrServiceUnavailable)

	require.NoError(t, ids.SignInAnonymously(ctx))
	assert.True(t, ids.IsSignedIn())
	assert.NotEmpty(t, ids.PlayerID())
	assert.Equal(t, "alice", ids.DisplayName())
}

func TestWorld_PlayersShareServices(t *testing.T) {
	w := NewWorld()
	defer w.Close()

	a, b := w.NewPlayer(), w.NewPlayer()
	assert.True(t, a.Backends.Complete())
	assert.NotSame(t, a.Identity, b.Identity)
	assert.NotSame(t, a.Transport, b.Transport)
	assert.Same(t, w.Relay, a.Backends.Relay)

	ctx := context.Background()
	for _, p := range []*Player{a, b} {
		require.NoError(t, p.Identity.Initialize(ctx, interfaces.InitOptions{Profile: "p"}))
		require.NoError(t, p.Identity.SignInAnonymously(ctx))
	}

	room, err := a.Backends.Directory.Create(ctx, interfaces.CreateRequest{
		Name:       "shared",
		MaxPlayers: 2,
		Player:     types.Player{DisplayName: "p"},
	})
	require.NoError(t, err)

	joined, err := b.Backends.Directory.JoinByCode(ctx, room.JoinCode, types.Player{DisplayName: "p"})
	require.NoError(t, err)
	assert.True(t, joined.HasPlayer(a.Identity.PlayerID()))
	assert.True(t, joined.HasPlayer(b.Identity.PlayerID()))
	assert.True(t, joined.IsHost(a.Identity.PlayerID()))
}
