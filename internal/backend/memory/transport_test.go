package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
	"github.com/dep2p/go-lobby/tests/testutil"
)

type transportEvents struct {
	mu           sync.Mutex
	failures     int
	connected    []uint64
	disconnected []uint64
	serverStops  int
}

func (e *transportEvents) handlers() interfaces.TransportHandlers {
	return interfaces.TransportHandlers{
		OnTransportFailure: func() {
			e.mu.Lock()
			e.failures++
			e.mu.Unlock()
		},
		OnClientConnected: func(id uint64) {
			e.mu.Lock()
			e.connected = append(e.connected, id)
			e.mu.Unlock()
		},
		OnClientDisconnected: func(id uint64) {
			e.mu.Lock()
			e.disconnected = append(e.disconnected, id)
			e.mu.Unlock()
		},
		OnServerStopped: func(bool) {
			e.mu.Lock()
			e.serverStops++
			e.mu.Unlock()
		},
	}
}

func (e *transportEvents) count(f func(*transportEvents) int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return f(e)
}

func relayData(endpoint string) types.RelayServerData {
	return types.RelayServerData{Endpoint: endpoint}
}

func TestTransport_HostAndClientConnect(t *testing.T) {
	n := NewNetwork(time.Millisecond)
	host, client := n.NewTransport(), n.NewTransport()
	defer host.Close()
	defer client.Close()

	var hostEvents, clientEvents transportEvents
	host.Notify(hostEvents.handlers())
	client.Notify(clientEvents.handlers())

	require.NoError(t, host.Configure(types.TransportConfig{RelayData: relayData("loopback://a"), LocalClientID: 1}))
	require.NoError(t, host.StartHost())
	assert.ErrorIs(t, host.StartHost(), types.ErrAlreadyListening)
	testutil.Eventually(t, time.Second, host.IsConnectedClient, "主机应连上")

	require.NoError(t, client.Configure(types.TransportConfig{RelayData: relayData("loopback://a"), LocalClientID: 2}))
	require.NoError(t, client.StartClient())
	testutil.Eventually(t, time.Second, client.IsConnectedClient, "客户端应连上")
	assert.Equal(t, 1, host.Peers())

	testutil.Eventually(t, time.Second, func() bool {
		return hostEvents.count(func(e *transportEvents) int { return len(e.connected) }) == 2
	}, "主机应收到自身与客户端的连接事件")
}

func TestTransport_HostShutdownDropsClients(t *testing.T) {
	n := NewNetwork(time.Millisecond)
	host, client := n.NewTransport(), n.NewTransport()
	defer host.Close()
	defer client.Close()

	require.NoError(t, host.Configure(types.TransportConfig{RelayData: relayData("loopback://b"), LocalClientID: 1}))
	require.NoError(t, host.StartHost())
	require.NoError(t, client.Configure(types.TransportConfig{RelayData: relayData("loopback://b"), LocalClientID: 2}))
	require.NoError(t, client.StartClient())
	testutil.Eventually(t, time.Second, client.IsConnectedClient, "客户端应连上")

	var clientEvents transportEvents
	client.Notify(clientEvents.handlers())

	host.Shutdown()
	assert.False(t, host.IsListening())
	assert.Zero(t, n.Hosts())
	assert.False(t, client.IsConnectedClient())

	// 客户端收到针对自身 ID 的断开事件
	testutil.Eventually(t, time.Second, func() bool {
		return clientEvents.count(func(e *transportEvents) int { return len(e.disconnected) }) == 1
	}, "客户端应收到断开事件")
	clientEvents.mu.Lock()
	assert.Equal(t, []uint64{2}, clientEvents.disconnected)
	clientEvents.mu.Unlock()
}

func TestTransport_ClientWithoutHostFails(t *testing.T) {
	n := NewNetwork(time.Millisecond)
	client := n.NewTransport()
	defer client.Close()

	var events transportEvents
	client.Notify(events.handlers())

	assert.ErrorIs(t, client.StartClient(), types.ErrNotConfigured)
	require.NoError(t, client.Configure(types.TransportConfig{RelayData: relayData("loopback://none"), LocalClientID: 3}))
	require.NoError(t, client.StartClient())

	testutil.Eventually(t, time.Second, func() bool {
		return events.count(func(e *transportEvents) int { return e.failures }) == 1
	}, "应收到传输故障")
	assert.False(t, client.IsConnectedClient())
}

func TestTransport_DroppedHandshakeNeverConnects(t *testing.T) {
	n := NewNetwork(time.Millisecond)
	n.DropHandshakes(true)
	host := n.NewTransport()
	defer host.Close()

	require.NoError(t, host.Configure(types.TransportConfig{RelayData: relayData("loopback://c"), LocalClientID: 1}))
	require.NoError(t, host.StartHost())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, host.IsListening())
	assert.False(t, host.IsConnectedClient())
}

func TestTransport_NotifyCancelStopsDelivery(t *testing.T) {
	n := NewNetwork(time.Millisecond)
	tr := n.NewTransport()
	defer tr.Close()

	var events transportEvents
	cancel := tr.Notify(events.handlers())
	cancel()
	cancel()

	tr.Fail()
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, events.count(func(e *transportEvents) int { return e.failures }))
}
