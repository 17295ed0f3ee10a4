package types

import "time"

// ============================================================================
//                              中继分配
// ============================================================================

// RelayServerData 传输层连接中继所需的配置数据
//
// 由 RelayCoordinator 从分配结果转换而来，交给 TransportSupervisor。
// 内容对编排器是不透明的。
type RelayServerData struct {
	// AllocationID 分配 ID（客户端侧为所加入的主机分配）
	AllocationID string

	// Endpoint 中继服务地址（host:port）
	Endpoint string

	// Key HMAC 密钥
	Key []byte

	// ConnectionData 本端连接数据
	ConnectionData []byte

	// HostConnectionData 主机连接数据（仅客户端）
	HostConnectionData []byte

	// IsHost 是否为主机侧数据
	IsHost bool
}

// RelayAllocation 主机侧中继分配
type RelayAllocation struct {
	AllocationID string
	Region       string
	MaxPlayers   int
	ExpiresAt    time.Time

	// JoinCode 获取后回填
	JoinCode string

	ServerData RelayServerData
}

// JoinAllocation 客户端侧加入分配
type JoinAllocation struct {
	AllocationID     string
	HostAllocationID string
	JoinCode         string

	ServerData RelayServerData
}
