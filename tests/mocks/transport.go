package mocks

import (
	"sync"

	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

// MockTransport 模拟 Transport 接口实现
//
// 默认 StartHost/StartClient 只置监听标志，连接标志由测试通过 SetConnected 控制。
type MockTransport struct {
	mu sync.Mutex

	// 基本属性
	Listening bool
	Connected bool
	Role      types.TransportRole
	Config    types.TransportConfig

	// 可覆盖的方法
	ConfigureFunc   func(cfg types.TransportConfig) error
	StartHostFunc   func() error
	StartClientFunc func() error
	StartServerFunc func() error

	// 调用记录
	ConfigureCalls int
	StartCalls     int
	ShutdownCalls  int
	NotifyCalls    int

	// ConnectedChecks IsConnectedClient 的调用次数
	ConnectedChecks int

	handlers map[int]interfaces.TransportHandlers
	nextID   int
}

var _ interfaces.Transport = (*MockTransport)(nil)

// NewMockTransport 创建 MockTransport
func NewMockTransport() *MockTransport {
	return &MockTransport{handlers: make(map[int]interfaces.TransportHandlers)}
}

// Configure 配置
func (m *MockTransport) Configure(cfg types.TransportConfig) error {
	m.mu.Lock()
	m.ConfigureCalls++
	m.Config = cfg
	fn := m.ConfigureFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(cfg)
	}
	return nil
}

func (m *MockTransport) start(role types.TransportRole, fn func() error) error {
	m.mu.Lock()
	m.StartCalls++
	if m.Listening {
		m.mu.Unlock()
		return types.ErrAlreadyListening
	}
	m.mu.Unlock()
	if fn != nil {
		if err := fn(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Listening = true
	m.Role = role
	m.mu.Unlock()
	return nil
}

// StartHost 以主机身份启动
func (m *MockTransport) StartHost() error { return m.start(types.RoleHost, m.StartHostFunc) }

// StartClient 以客户端身份启动
func (m *MockTransport) StartClient() error { return m.start(types.RoleClient, m.StartClientFunc) }

// StartServer 以服务端身份启动
func (m *MockTransport) StartServer() error { return m.start(types.RoleServer, m.StartServerFunc) }

// Shutdown 关闭
func (m *MockTransport) Shutdown() {
	m.mu.Lock()
	m.ShutdownCalls++
	m.Listening = false
	m.Connected = false
	m.Role = types.RoleNone
	m.mu.Unlock()
}

// IsListening 是否监听
func (m *MockTransport) IsListening() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Listening
}

// IsConnectedClient 是否已连接
func (m *MockTransport) IsConnectedClient() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConnectedChecks++
	return m.Connected
}

// SetConnected 设置连接标志
func (m *MockTransport) SetConnected(v bool) {
	m.mu.Lock()
	m.Connected = v
	m.mu.Unlock()
}

// Notify 注册回调
func (m *MockTransport) Notify(h interfaces.TransportHandlers) func() {
	m.mu.Lock()
	m.NotifyCalls++
	id := m.nextID
	m.nextID++
	if m.handlers == nil {
		m.handlers = make(map[int]interfaces.TransportHandlers)
	}
	m.handlers[id] = h
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.handlers, id)
		m.mu.Unlock()
	}
}

// HandlerCount 当前注册的回调数
func (m *MockTransport) HandlerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}

func (m *MockTransport) snapshot() []interfaces.TransportHandlers {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]interfaces.TransportHandlers, 0, len(m.handlers))
	for _, h := range m.handlers {
		out = append(out, h)
	}
	return out
}

// FireTransportFailure 同步触发传输故障回调
func (m *MockTransport) FireTransportFailure() {
	for _, h := range m.snapshot() {
		if h.OnTransportFailure != nil {
			h.OnTransportFailure()
		}
	}
}

// FireClientConnected 同步触发客户端连接回调
func (m *MockTransport) FireClientConnected(id uint64) {
	for _, h := range m.snapshot() {
		if h.OnClientConnected != nil {
			h.OnClientConnected(id)
		}
	}
}

// FireClientDisconnected 同步触发客户端断开回调
func (m *MockTransport) FireClientDisconnected(id uint64) {
	for _, h := range m.snapshot() {
		if h.OnClientDisconnected != nil {
			h.OnClientDisconnected(id)
		}
	}
}

// Checks 返回 IsConnectedClient 的调用次数
func (m *MockTransport) Checks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ConnectedChecks
}

// FireServerStopped 同步触发服务端停止回调
func (m *MockTransport) FireServerStopped(wasHost bool) {
	for _, h := range m.snapshot() {
		if h.OnServerStopped != nil {
			h.OnServerStopped(wasHost)
		}
	}
}
