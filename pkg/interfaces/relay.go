package interfaces

import (
	"context"

	"github.com/dep2p/go-lobby/pkg/types"
)

//go:generate mockgen -destination=../../tests/mocks/relay_gomock.go -package=mocks github.com/dep2p/go-lobby/pkg/interfaces RelayService

// RelayService 中继服务
type RelayService interface {
	// CreateAllocation 为主机申请容纳 maxPlayers 的中继分配
	CreateAllocation(ctx context.Context, maxPlayers int) (*types.RelayAllocation, error)

	// GetJoinCode 获取分配的加入码
	GetJoinCode(ctx context.Context, allocationID string) (string, error)

	// JoinAllocation 客户端通过加入码加入分配
	JoinAllocation(ctx context.Context, joinCode string) (*types.JoinAllocation, error)
}
