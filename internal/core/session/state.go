package session

import "github.com/dep2p/go-lobby/pkg/types"

// transitions 合法的前进转换；任意状态都可以经 Reset 回到 Disconnected
var transitions = map[types.SessionState]types.SessionState{
	types.StateDisconnected:   types.StateAuthenticating,
	types.StateAuthenticating: types.StateRoomPending,
	types.StateRoomPending:    types.StateRoomActive,
	types.StateRoomActive:     types.StateConnecting,
	types.StateConnecting:     types.StateInGame,
}

// CanTransition 是否允许 from → to
func CanTransition(from, to types.SessionState) bool {
	if to == types.StateDisconnected {
		return true
	}
	next, ok := transitions[from]
	return ok && next == to
}
