package relay

import (
	"context"
	"errors"

	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

var log = logger.Logger("relay")

// Sentinel errors
var (
	// ErrInvalidMaxPlayers 分配人数无效
	ErrInvalidMaxPlayers = errors.New("relay: max players must be positive")
	// ErrEmptyJoinCode 加入码为空
	ErrEmptyJoinCode = errors.New("relay: empty join code")
	// ErrMalformedAllocation 服务返回的分配不完整
	ErrMalformedAllocation = errors.New("relay: malformed allocation")
)

// Coordinator 中继协调器
type Coordinator struct {
	svc interfaces.RelayService
}

// NewCoordinator 创建中继协调器
func NewCoordinator(svc interfaces.RelayService) *Coordinator {
	return &Coordinator{svc: svc}
}

// Allocate 为主机申请容纳 maxPlayers 的分配
func (c *Coordinator) Allocate(ctx context.Context, maxPlayers int) (*types.RelayAllocation, error) {
	if maxPlayers <= 0 {
		return nil, types.RelayError("allocate", ErrInvalidMaxPlayers)
	}

	alloc, err := c.svc.CreateAllocation(ctx, maxPlayers)
	if err != nil {
		log.Warn("中继分配失败", "max_players", maxPlayers, "error", err)
		return nil, types.RelayError("allocate", err)
	}
	if alloc == nil || alloc.AllocationID == "" {
		return nil, types.RelayError("allocate", ErrMalformedAllocation)
	}

	out := *alloc
	out.ServerData.IsHost = true
	if out.ServerData.AllocationID == "" {
		out.ServerData.AllocationID = out.AllocationID
	}

	log.Debug("中继分配成功",
		"allocation", logger.TruncateID(out.AllocationID, 8),
		"region", out.Region,
		"max_players", maxPlayers)
	return &out, nil
}

// GetJoinCode 获取分配的加入码，并回填到 alloc.JoinCode
func (c *Coordinator) GetJoinCode(ctx context.Context, alloc *types.RelayAllocation) (string, error) {
	if alloc == nil || alloc.AllocationID == "" {
		return "", types.RelayError("join_code", ErrMalformedAllocation)
	}

	code, err := c.svc.GetJoinCode(ctx, alloc.AllocationID)
	if err != nil {
		log.Warn("获取中继加入码失败", "error", err)
		return "", types.RelayError("join_code", err)
	}
	if code == "" {
		return "", types.RelayError("join_code", ErrEmptyJoinCode)
	}
	alloc.JoinCode = code
	return code, nil
}

// JoinAsClient 以客户端身份通过加入码加入分配
func (c *Coordinator) JoinAsClient(ctx context.Context, joinCode string) (*types.JoinAllocation, error) {
	if joinCode == "" {
		return nil, types.RelayError("join", ErrEmptyJoinCode)
	}

	join, err := c.svc.JoinAllocation(ctx, joinCode)
	if err != nil {
		log.Warn("加入中继分配失败", "join_code", joinCode, "error", err)
		return nil, types.RelayError("join", err)
	}
	if join == nil || join.AllocationID == "" {
		return nil, types.RelayError("join", ErrMalformedAllocation)
	}

	out := *join
	out.JoinCode = joinCode
	out.ServerData.IsHost = false
	if out.ServerData.AllocationID == "" {
		out.ServerData.AllocationID = out.HostAllocationID
	}
	return &out, nil
}
