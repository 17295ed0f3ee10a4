package interfaces

import "context"

// InitOptions 身份服务初始化参数
type InitOptions struct {
	// Profile 本地 profile 名称，同时作为显示名称
	Profile string
}

// IdentityService 身份服务
//
// 对应远端身份后端的 initialize / isSignedIn / signInAnonymously /
// getPlayerId / getDisplayName。
type IdentityService interface {
	// Initialize 初始化后端（可重复调用）
	Initialize(ctx context.Context, opts InitOptions) error

	// IsSignedIn 是否已登录
	IsSignedIn() bool

	// SignInAnonymously 匿名登录
	SignInAnonymously(ctx context.Context) error

	// PlayerID 已登录玩家 ID，未登录返回空
	PlayerID() string

	// DisplayName 显示名称
	DisplayName() string
}
