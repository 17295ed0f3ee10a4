package memory

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/mr-tron/base58"

	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

const (
	// DefaultJoinCodeTTL 中继加入码有效期
	DefaultJoinCodeTTL = 10 * time.Minute

	// maxJoinCodes 同时有效的加入码上限
	maxJoinCodes = 4096

	// endpointScheme 回环网络端点前缀
	endpointScheme = "loopback://"
)

// Relay 进程内中继服务
//
// 加入码存放在带过期时间的 LRU 中，过期或被挤出后 JoinAllocation 返回 ErrJoinCodeNotFound。
type Relay struct {
	mu          sync.Mutex
	allocations map[string]*allocation
	codes       *expirable.LRU[string, string]

	faults faults
}

type allocation struct {
	id         string
	maxPlayers int
	joined     int
	key        []byte
}

var _ interfaces.RelayService = (*Relay)(nil)

// NewRelay 创建中继服务，ttl <= 0 时使用 DefaultJoinCodeTTL
func NewRelay(ttl time.Duration) *Relay {
	if ttl <= 0 {
		ttl = DefaultJoinCodeTTL
	}
	return &Relay{
		allocations: make(map[string]*allocation),
		codes:       expirable.NewLRU[string, string](maxJoinCodes, nil, ttl),
	}
}

// FailNext 让下一次指定操作（create_allocation, get_join_code, join_allocation）返回 err
func (r *Relay) FailNext(op string, err error) {
	r.faults.add(op, err)
}

// Allocations 当前分配数
func (r *Relay) Allocations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.allocations)
}

// CreateAllocation 创建主机分配
func (r *Relay) CreateAllocation(ctx context.Context, maxPlayers int) (*types.RelayAllocation, error) {
	if err := r.faults.take("create_allocation"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	a := &allocation{id: uuid.NewString(), maxPlayers: maxPlayers, key: key}

	r.mu.Lock()
	r.allocations[a.id] = a
	r.mu.Unlock()

	return &types.RelayAllocation{
		AllocationID: a.id,
		Region:       "loopback",
		MaxPlayers:   maxPlayers,
		ExpiresAt:    time.Now().Add(DefaultJoinCodeTTL),
		ServerData: types.RelayServerData{
			AllocationID:   a.id,
			Endpoint:       endpointScheme + a.id,
			Key:            key,
			ConnectionData: []byte(a.id),
			IsHost:         true,
		},
	}, nil
}

// GetJoinCode 为分配生成加入码
func (r *Relay) GetJoinCode(ctx context.Context, allocationID string) (string, error) {
	if err := r.faults.take("get_join_code"); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.allocations[allocationID]; !ok {
		return "", types.ErrAllocationNotFound
	}
	for {
		id := uuid.New()
		code := base58.Encode(id[:])[:RoomCodeLength]
		if !r.codes.Contains(code) {
			r.codes.Add(code, allocationID)
			return code, nil
		}
	}
}

// JoinAllocation 通过加入码取得客户端分配
func (r *Relay) JoinAllocation(ctx context.Context, joinCode string) (*types.JoinAllocation, error) {
	if err := r.faults.take("join_allocation"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hostID, ok := r.codes.Get(joinCode)
	if !ok {
		return nil, types.ErrJoinCodeNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	host, ok := r.allocations[hostID]
	if !ok {
		return nil, types.ErrJoinCodeNotFound
	}
	if host.maxPlayers > 0 && host.joined+1 >= host.maxPlayers {
		return nil, types.ErrAllocationFull
	}
	host.joined++

	id := uuid.NewString()
	return &types.JoinAllocation{
		AllocationID:     id,
		HostAllocationID: host.id,
		JoinCode:         joinCode,
		ServerData: types.RelayServerData{
			AllocationID:       id,
			Endpoint:           endpointScheme + host.id,
			Key:                host.key,
			ConnectionData:     []byte(id),
			HostConnectionData: []byte(host.id),
		},
	}, nil
}
