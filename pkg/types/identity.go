package types

import (
	"regexp"

	"github.com/spaolacci/murmur3"
)

// ============================================================================
//                              Identity - 进程身份
// ============================================================================

// Identity 进程内唯一的已登录身份
//
// 由 IdentityGateway 在首次登录时创建，之后不可变；会话拆除不会清除身份。
type Identity struct {
	// PlayerID 身份服务分配的玩家 ID
	PlayerID string

	// DisplayName 显示名称（即登录使用的 profile）
	DisplayName string

	// LocalClientID 传输层本地客户端 ID
	//
	// 由 PlayerID 稳定派生，用于在 client-disconnected 回调中识别"自己断开"。
	LocalClientID uint64
}

// IsZero 是否为空身份
func (id Identity) IsZero() bool {
	return id.PlayerID == ""
}

// Player 房间成员记录
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// PlayerOf 返回身份对应的成员记录
func PlayerOf(id Identity) Player {
	return Player{ID: id.PlayerID, DisplayName: id.DisplayName}
}

// DeriveClientID 由玩家 ID 派生传输层客户端 ID
//
// 使用 murmur3 64 位哈希；0 保留给"未分配"，碰撞到 0 时取 1。
func DeriveClientID(playerID string) uint64 {
	if playerID == "" {
		return 0
	}
	id := murmur3.Sum64([]byte(playerID))
	if id == 0 {
		return 1
	}
	return id
}

// profileNamePattern 合法 profile 名称：字母数字、'_'、'-'，1–30 个字符
var profileNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,30}$`)

// ValidProfileName 检查 profile 名称是否合法
func ValidProfileName(name string) bool {
	return profileNamePattern.MatchString(name)
}
