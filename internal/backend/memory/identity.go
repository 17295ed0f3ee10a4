package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dep2p/go-lobby/pkg/interfaces"
)

// ErrNotInitialized 身份服务未初始化
var ErrNotInitialized = errors.New("memory: identity not initialized")

// Identity 进程内身份服务
type Identity struct {
	mu          sync.Mutex
	initialized bool
	profile     string
	playerID    string
	faults      faults
}

var _ interfaces.IdentityService = (*Identity)(nil)

// NewIdentity 创建身份服务
func NewIdentity() *Identity {
	return &Identity{}
}

// Initialize 以指定配置文件初始化
func (i *Identity) Initialize(ctx context.Context, opts interfaces.InitOptions) error {
	if err := i.faults.take("initialize"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.initialized = true
	i.profile = opts.Profile
	return nil
}

// IsSignedIn 是否已登录
func (i *Identity) IsSignedIn() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.playerID != ""
}

// SignInAnonymously 匿名登录，分配随机玩家 ID
func (i *Identity) SignInAnonymously(ctx context.Context) error {
	if err := i.faults.take("sign_in"); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.initialized {
		return ErrNotInitialized
	}
	if i.playerID == "" {
		i.playerID = uuid.NewString()
	}
	return nil
}

// PlayerID 玩家 ID，未登录时为空
func (i *Identity) PlayerID() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.playerID
}

// DisplayName 显示名称（配置文件名）
func (i *Identity) DisplayName() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.profile
}

// FailNext 让下一次指定操作（"initialize" 或 "sign_in"）返回 err
func (i *Identity) FailNext(op string, err error) {
	i.faults.add(op, err)
}
