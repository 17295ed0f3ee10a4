package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-lobby/config"
	"github.com/dep2p/go-lobby/pkg/types"
)

func TestCollector_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector("test", reg)
	require.NoError(t, err)

	c.SessionStarted(types.RoleHost)
	c.SessionStarted(types.RoleHost)
	c.SessionReady(types.RoleClient)
	c.Teardown(types.ReasonKicked)
	c.TeardownStepFailed("delete_room")
	c.Heartbeat(nil)
	c.Heartbeat(errors.New("boom"))
	c.DirectoryCall("create", nil)
	c.ConnectWait(250 * time.Millisecond)
	c.SetState(types.StateInGame)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.sessionsStarted.WithLabelValues("host")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsReady.WithLabelValues("client")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.teardowns.WithLabelValues("kicked")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.teardownErrors.WithLabelValues("delete_room")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.heartbeats.WithLabelValues(ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.directoryCalls.WithLabelValues("create", ResultOK)))
	assert.Equal(t, float64(types.StateInGame), testutil.ToFloat64(c.sessionState))
	assert.Equal(t, 1, testutil.CollectAndCount(c.connectWait))
}

func TestCollector_NilIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.SessionStarted(types.RoleHost)
		c.Teardown(types.ReasonLeft)
		c.Heartbeat(nil)
		c.SetState(types.StateDisconnected)
	})
}

func TestCollector_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewCollector("test", reg)
	require.NoError(t, err)
	b, err := NewCollector("test", reg)
	require.NoError(t, err)

	a.Teardown(types.ReasonQuit)
	b.Teardown(types.ReasonQuit)
	assert.Equal(t, 2.0, testutil.ToFloat64(a.teardowns.WithLabelValues("quit")))
}

func TestModule_DisabledProvidesNil(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Metrics.Enable = false

	var c *Collector
	app := fxtest.New(t,
		fx.Supply(cfg),
		Module(),
		fx.Populate(&c),
	)
	app.RequireStart().RequireStop()
	assert.Nil(t, c)
}

func TestModule_UsesInjectedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	var c *Collector
	app := fxtest.New(t,
		fx.Provide(func() prometheus.Registerer { return reg }),
		Module(),
		fx.Populate(&c),
	)
	app.RequireStart().RequireStop()
	require.NotNil(t, c)

	c.SetState(types.StateConnecting)
	n, err := testutil.GatherAndCount(reg, "lobby_session_state")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
