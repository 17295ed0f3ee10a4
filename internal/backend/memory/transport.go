package memory

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

// DefaultHandshake 回环握手延迟
const DefaultHandshake = 20 * time.Millisecond

// ErrEndpointInUse 端点已有主机在监听
var ErrEndpointInUse = errors.New("memory: endpoint already in use")

// ============================================================================
//                              Network - 回环网络
// ============================================================================

// Network 进程内回环网络，主机按中继端点注册
type Network struct {
	mu    sync.Mutex
	hosts map[string]*Transport

	handshake atomic.Int64
	drop      atomic.Bool
}

// NewNetwork 创建回环网络，handshake < 0 时使用 DefaultHandshake
func NewNetwork(handshake time.Duration) *Network {
	n := &Network{hosts: make(map[string]*Transport)}
	if handshake < 0 {
		handshake = DefaultHandshake
	}
	n.handshake.Store(int64(handshake))
	return n
}

// SetHandshake 设置握手延迟
func (n *Network) SetHandshake(d time.Duration) {
	n.handshake.Store(int64(d))
}

// DropHandshakes 为 true 时握手静默失败：已监听但永远不会连上
func (n *Network) DropHandshakes(drop bool) {
	n.drop.Store(drop)
}

// NewTransport 创建接入该网络的传输层
func (n *Network) NewTransport() *Transport {
	return &Transport{
		net:      n,
		d:        newDispatcher(),
		role:     types.RoleNone,
		handlers: make(map[int]interfaces.TransportHandlers),
	}
}

// Hosts 当前注册的主机数
func (n *Network) Hosts() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.hosts)
}

func (n *Network) register(endpoint string, t *Transport) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if other, ok := n.hosts[endpoint]; ok && other != t {
		return ErrEndpointInUse
	}
	n.hosts[endpoint] = t
	return nil
}

func (n *Network) unregister(endpoint string, t *Transport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.hosts[endpoint] == t {
		delete(n.hosts, endpoint)
	}
}

func (n *Network) lookup(endpoint string) *Transport {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.hosts[endpoint]
}

// ============================================================================
//                              Transport - 回环传输
// ============================================================================

// Transport 回环传输层
//
// 生命周期事件经由派发 goroutine 异步投递。
type Transport struct {
	net *Network
	d   *dispatcher

	mu         sync.Mutex
	cfg        *types.TransportConfig
	role       types.TransportRole
	listening  bool
	connected  bool
	epoch      uint64
	host       *Transport
	peers      map[uint64]*Transport
	handlers   map[int]interfaces.TransportHandlers
	nextHandle int
}

var _ interfaces.Transport = (*Transport)(nil)

// Configure 配置中继数据
func (t *Transport) Configure(cfg types.TransportConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listening {
		return types.ErrAlreadyListening
	}
	c := cfg
	t.cfg = &c
	return nil
}

// StartHost 以主机身份启动（服务端 + 本地客户端）
func (t *Transport) StartHost() error {
	return t.start(types.RoleHost)
}

// StartServer 以专用服务器身份启动
func (t *Transport) StartServer() error {
	return t.start(types.RoleServer)
}

// StartClient 以客户端身份启动
func (t *Transport) StartClient() error {
	return t.start(types.RoleClient)
}

func (t *Transport) start(role types.TransportRole) error {
	t.mu.Lock()
	if t.listening {
		t.mu.Unlock()
		return types.ErrAlreadyListening
	}
	if t.cfg == nil {
		t.mu.Unlock()
		return types.ErrNotConfigured
	}
	endpoint := t.cfg.RelayData.Endpoint
	if role != types.RoleClient {
		if err := t.net.register(endpoint, t); err != nil {
			t.mu.Unlock()
			return err
		}
		t.peers = make(map[uint64]*Transport)
	}
	t.listening = true
	t.role = role
	t.host = nil
	t.epoch++
	epoch := t.epoch
	t.mu.Unlock()

	delay := time.Duration(t.net.handshake.Load())
	time.AfterFunc(delay, func() { t.handshake(epoch, role, endpoint) })
	return nil
}

// handshake 握手完成
func (t *Transport) handshake(epoch uint64, role types.TransportRole, endpoint string) {
	if t.net.drop.Load() {
		log.Debug("回环握手被丢弃", "role", role)
		return
	}

	var host *Transport
	if role == types.RoleClient {
		host = t.net.lookup(endpoint)
		if host == nil || !host.attach(t) {
			t.mu.Lock()
			current := t.epoch == epoch && t.listening
			t.mu.Unlock()
			if current {
				log.Debug("回环主机不存在", "endpoint", endpoint)
				t.post(func(h interfaces.TransportHandlers) {
					if h.OnTransportFailure != nil {
						h.OnTransportFailure()
					}
				})
			}
			return
		}
	}

	t.mu.Lock()
	if t.epoch != epoch || !t.listening {
		self := t.cfg.LocalClientID
		t.mu.Unlock()
		if host != nil {
			// 握手期间已关闭
			host.detach(self)
		}
		return
	}
	if role == types.RoleClient && t.host == nil {
		// attach 之后已被主机断开
		t.mu.Unlock()
		return
	}
	t.connected = role != types.RoleServer
	self := t.cfg.LocalClientID
	t.mu.Unlock()

	if role != types.RoleClient {
		t.post(func(h interfaces.TransportHandlers) {
			if h.OnServerStarted != nil {
				h.OnServerStarted()
			}
		})
	}
	if role != types.RoleServer {
		t.post(func(h interfaces.TransportHandlers) {
			if h.OnClientStarted != nil {
				h.OnClientStarted()
			}
			if h.OnClientConnected != nil {
				h.OnClientConnected(self)
			}
		})
	}
}

// attach 客户端接入主机，返回是否成功
func (t *Transport) attach(client *Transport) bool {
	t.mu.Lock()
	if !t.listening || t.peers == nil {
		t.mu.Unlock()
		return false
	}
	client.mu.Lock()
	id := client.cfg.LocalClientID
	client.host = t
	client.mu.Unlock()
	t.peers[id] = client
	t.mu.Unlock()

	t.post(func(h interfaces.TransportHandlers) {
		if h.OnClientConnected != nil {
			h.OnClientConnected(id)
		}
	})
	return true
}

// detach 客户端离开主机
func (t *Transport) detach(id uint64) {
	t.mu.Lock()
	_, ok := t.peers[id]
	delete(t.peers, id)
	t.mu.Unlock()
	if !ok {
		return
	}
	t.post(func(h interfaces.TransportHandlers) {
		if h.OnClientDisconnected != nil {
			h.OnClientDisconnected(id)
		}
	})
}

// dropped 主机断开了本客户端
func (t *Transport) dropped(host *Transport) {
	t.mu.Lock()
	if t.host != host {
		t.mu.Unlock()
		return
	}
	t.host = nil
	t.connected = false
	t.listening = false
	t.role = types.RoleNone
	t.epoch++
	self := t.cfg.LocalClientID
	t.mu.Unlock()

	t.post(func(h interfaces.TransportHandlers) {
		if h.OnClientDisconnected != nil {
			h.OnClientDisconnected(self)
		}
		if h.OnClientStopped != nil {
			h.OnClientStopped(false)
		}
	})
}

// Shutdown 停止监听并断开全部连接
func (t *Transport) Shutdown() {
	t.mu.Lock()
	if !t.listening {
		t.mu.Unlock()
		return
	}
	role := t.role
	endpoint := t.cfg.RelayData.Endpoint
	self := t.cfg.LocalClientID
	peers := slices.Collect(maps.Values(t.peers))
	host := t.host
	t.listening = false
	t.connected = false
	t.role = types.RoleNone
	t.peers = nil
	t.host = nil
	t.epoch++
	t.mu.Unlock()

	switch role {
	case types.RoleHost, types.RoleServer:
		t.net.unregister(endpoint, t)
		for _, p := range peers {
			p.dropped(t)
		}
		t.post(func(h interfaces.TransportHandlers) {
			if h.OnServerStopped != nil {
				h.OnServerStopped(role == types.RoleHost)
			}
		})
	case types.RoleClient:
		if host != nil {
			host.detach(self)
		}
		t.post(func(h interfaces.TransportHandlers) {
			if h.OnClientStopped != nil {
				h.OnClientStopped(false)
			}
		})
	}
	log.Debug("回环传输已关闭", "role", role, "client", self)
}

// IsListening 是否正在监听
func (t *Transport) IsListening() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listening
}

// IsConnectedClient 本地客户端是否已连接
func (t *Transport) IsConnectedClient() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Peers 主机侧已连接的客户端数
func (t *Transport) Peers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.peers)
}

// Notify 注册生命周期回调，返回取消函数
func (t *Transport) Notify(h interfaces.TransportHandlers) func() {
	t.mu.Lock()
	id := t.nextHandle
	t.nextHandle++
	t.handlers[id] = h
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.handlers, id)
			t.mu.Unlock()
		})
	}
}

// Fail 模拟传输层故障
func (t *Transport) Fail() {
	t.post(func(h interfaces.TransportHandlers) {
		if h.OnTransportFailure != nil {
			h.OnTransportFailure()
		}
	})
}

// Disconnect 主机断开指定客户端
func (t *Transport) Disconnect(clientID uint64) bool {
	t.mu.Lock()
	p, ok := t.peers[clientID]
	delete(t.peers, clientID)
	t.mu.Unlock()
	if !ok {
		return false
	}
	p.dropped(t)
	t.post(func(h interfaces.TransportHandlers) {
		if h.OnClientDisconnected != nil {
			h.OnClientDisconnected(clientID)
		}
	})
	return true
}

// Close 关闭传输层并停止事件派发
func (t *Transport) Close() {
	t.Shutdown()
	t.d.close()
}

// post 在派发 goroutine 中对投递时已注册的回调执行 fn
func (t *Transport) post(fn func(h interfaces.TransportHandlers)) {
	t.d.post(func() {
		t.mu.Lock()
		hs := slices.Collect(maps.Values(t.handlers))
		t.mu.Unlock()
		for _, h := range hs {
			fn(h)
		}
	})
}
