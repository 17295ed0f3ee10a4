package interfaces

import "github.com/dep2p/go-lobby/pkg/types"

// TransportHandlers 传输层生命周期回调
//
// 实现方不得在持有内部锁时调用回调；nil 字段表示不关心。
type TransportHandlers struct {
	OnTransportFailure   func()
	OnServerStarted      func()
	OnServerStopped      func(wasHost bool)
	OnClientStarted      func()
	OnClientStopped      func(wasHost bool)
	OnClientConnected    func(clientID uint64)
	OnClientDisconnected func(clientID uint64)
}

// Transport 底层传输
//
// 只暴露"是否已连接"标志，没有连接完成的 future，
// 因此上层必须带超时轮询。
type Transport interface {
	// Configure 设置中继数据与加密模式
	Configure(cfg types.TransportConfig) error

	// StartHost 以主机身份启动（服务端 + 本地客户端）
	StartHost() error

	// StartClient 以客户端身份启动
	StartClient() error

	// StartServer 以纯服务端身份启动
	StartServer() error

	// Shutdown 关闭传输
	Shutdown()

	// IsListening 是否已启动任一角色
	IsListening() bool

	// IsConnectedClient 本地客户端是否已连接
	IsConnectedClient() bool

	// Notify 注册生命周期回调，返回取消函数（可重复调用）
	Notify(h TransportHandlers) (cancel func())
}
