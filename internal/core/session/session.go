package session

import (
	"fmt"
	"sync"

	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/types"
)

var log = logger.Logger("session")

// Token 会话代数令牌
type Token uint64

// Allocation 会话持有的中继分配
type Allocation struct {
	AllocationID string
	JoinCode     string
	ServerData   types.RelayServerData
}

// Snapshot 会话快照
type Snapshot struct {
	Token      Token
	State      types.SessionState
	Identity   types.Identity
	Room       *types.Room
	Allocation *Allocation
}

// IsHost 快照中本进程是否为房主
func (s Snapshot) IsHost() bool {
	return s.Room.IsHost(s.Identity.PlayerID)
}

// StateChangeFunc 状态变化回调
type StateChangeFunc func(from, to types.SessionState)

// ============================================================================
//                              Session
// ============================================================================

// Session 会话聚合
type Session struct {
	mu sync.Mutex

	state      types.SessionState
	identity   types.Identity
	room       *types.Room
	allocation *Allocation
	generation Token

	observers observerRegistry

	cbMu          sync.RWMutex
	onStateChange []StateChangeFunc
}

// New 创建处于 Disconnected 的会话
func New() *Session {
	return &Session{state: types.StateDisconnected}
}

// OnStateChange 注册状态变化回调
//
// 回调在状态变更后、会话锁外同步调用。
func (s *Session) OnStateChange(fn StateChangeFunc) {
	s.cbMu.Lock()
	s.onStateChange = append(s.onStateChange, fn)
	s.cbMu.Unlock()
}

func (s *Session) notify(from, to types.SessionState) {
	if from == to {
		return
	}
	log.Debug("会话状态变化", "from", from.String(), "to", to.String())

	s.cbMu.RLock()
	callbacks := make([]StateChangeFunc, len(s.onStateChange))
	copy(callbacks, s.onStateChange)
	s.cbMu.RUnlock()

	for _, cb := range callbacks {
		cb(from, to)
	}
}

// ============================================================================
//                              查询
// ============================================================================

// State 当前状态
func (s *Session) State() types.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity 进程身份，未登录时为零值
func (s *Session) Identity() types.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Room 房间本地投影的副本，无房间时返回 nil
func (s *Session) Room() *types.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Clone()
}

// Allocation 当前中继分配，无分配时返回 nil
func (s *Session) Allocation() *Allocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.allocation == nil {
		return nil
	}
	a := *s.allocation
	return &a
}

// IsHost 本进程是否为当前房间的房主
func (s *Session) IsHost() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.IsHost(s.identity.PlayerID)
}

// Token 当前令牌
func (s *Session) Token() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Snapshot 返回会话快照
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Token:    s.generation,
		State:    s.state,
		Identity: s.identity,
		Room:     s.room.Clone(),
	}
	if s.allocation != nil {
		a := *s.allocation
		snap.Allocation = &a
	}
	return snap
}

// Valid 令牌是否仍然有效（未被拆除）
func (s *Session) Valid(token Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validLocked(token)
}

// ValidRoom 令牌有效且仍持有房间
func (s *Session) ValidRoom(token Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validLocked(token) && s.room != nil
}

func (s *Session) validLocked(token Token) bool {
	return token == s.generation && s.state != types.StateDisconnected
}

// ============================================================================
//                              状态变更
// ============================================================================

// SetIdentity 记录进程身份
//
// 身份一经记录不可变，再次调用返回已记录的身份。
func (s *Session) SetIdentity(id types.Identity) types.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity.IsZero() {
		s.identity = id
	}
	return s.identity
}

// Begin 启动新的工作流
//
// 仅 Disconnected 接受新工作流，其余状态返回 ErrSessionBusy。
func (s *Session) Begin() (Token, error) {
	s.mu.Lock()
	if s.state != types.StateDisconnected {
		state := s.state
		s.mu.Unlock()
		return 0, types.PreconditionError("begin", fmt.Errorf("%w (state %s)", types.ErrSessionBusy, state))
	}
	s.generation++
	token := s.generation
	s.state = types.StateAuthenticating
	s.mu.Unlock()

	s.notify(types.StateDisconnected, types.StateAuthenticating)
	return token, nil
}

// Transition 在令牌有效时推进状态
func (s *Session) Transition(token Token, to types.SessionState) error {
	s.mu.Lock()
	if !s.validLocked(token) {
		s.mu.Unlock()
		return types.ErrSessionAborted
	}
	from := s.state
	if !CanTransition(from, to) {
		s.mu.Unlock()
		return fmt.Errorf("session: invalid transition %s -> %s", from, to)
	}
	s.state = to
	s.mu.Unlock()

	s.notify(from, to)
	return nil
}

// CommitRoom 将房间与中继分配提交到会话，状态进入 RoomActive
//
// 令牌失效时返回 ErrSessionAborted，调用方负责释放未提交的资源。
func (s *Session) CommitRoom(token Token, room *types.Room, alloc *Allocation) error {
	s.mu.Lock()
	if !s.validLocked(token) {
		s.mu.Unlock()
		return types.ErrSessionAborted
	}
	from := s.state
	if !CanTransition(from, types.StateRoomActive) {
		s.mu.Unlock()
		return fmt.Errorf("session: invalid transition %s -> %s", from, types.StateRoomActive)
	}
	s.room = room.Clone()
	if alloc != nil {
		a := *alloc
		s.allocation = &a
	}
	s.state = types.StateRoomActive
	s.mu.Unlock()

	s.notify(from, types.StateRoomActive)
	return nil
}

// UpdateRoom 修改房间本地投影
//
// roomID 与当前房间不符或没有房间时不做任何修改。
// fn 返回 false 表示没有变化。返回修改后的副本与是否变化。
func (s *Session) UpdateRoom(roomID string, fn func(*types.Room) bool) (*types.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.room == nil || s.room.ID != roomID {
		return nil, false
	}
	if !fn(s.room) {
		return nil, false
	}
	return s.room.Clone(), true
}

// Invalidate 递增令牌，使进行中的工作流在下一个检查点中止
//
// 返回失效前的快照（含新令牌）。状态保持不变直到 Reset。
func (s *Session) Invalidate() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	return s.snapshotLocked()
}

// Reset 清除房间与分配，递增令牌并回到 Disconnected
//
// 返回重置前的状态。身份与观察者登记表不受影响。
func (s *Session) Reset() types.SessionState {
	s.mu.Lock()
	from := s.state
	s.room = nil
	s.allocation = nil
	s.generation++
	s.state = types.StateDisconnected
	s.mu.Unlock()

	s.notify(from, types.StateDisconnected)
	return from
}

// ============================================================================
//                              观察者登记表
// ============================================================================

// Track 登记一个本地回调的取消函数
//
// 同名登记会先取消旧的。
func (s *Session) Track(name string, cancel func()) {
	if old := s.observers.put(name, cancel); old != nil {
		old()
	}
}

// Drain 取消并移除指定登记，返回是否存在
func (s *Session) Drain(name string) bool {
	cancel := s.observers.take(name)
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// DrainAll 取消并移除全部登记，返回数量
func (s *Session) DrainAll() int {
	cancels := s.observers.takeAll()
	for _, cancel := range cancels {
		cancel()
	}
	return len(cancels)
}

// Tracked 当前登记数
func (s *Session) Tracked() int {
	return s.observers.len()
}
