package types

// EncryptionMode 传输加密模式
type EncryptionMode string

const (
	// EncryptionDTLS DTLS 加密（默认）
	EncryptionDTLS EncryptionMode = "dtls"
	// EncryptionUDP 明文 UDP
	EncryptionUDP EncryptionMode = "udp"
	// EncryptionWSS WebSocket Secure
	EncryptionWSS EncryptionMode = "wss"
)

// Valid 是否为已知模式
func (m EncryptionMode) Valid() bool {
	switch m {
	case EncryptionDTLS, EncryptionUDP, EncryptionWSS:
		return true
	}
	return false
}

// TransportRole 传输角色
type TransportRole int

const (
	// RoleNone 未启动
	RoleNone TransportRole = iota
	// RoleHost 主机（服务端 + 本地客户端）
	RoleHost
	// RoleClient 客户端
	RoleClient
	// RoleServer 纯服务端
	RoleServer
)

// String 返回角色名
func (r TransportRole) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "none"
	}
}

// TransportConfig 传输层配置
type TransportConfig struct {
	RelayData  RelayServerData
	Encryption EncryptionMode

	// LocalClientID 本地客户端 ID（见 DeriveClientID）
	LocalClientID uint64
}
