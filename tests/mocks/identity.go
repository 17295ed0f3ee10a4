package mocks

import (
	"context"
	"sync"

	"github.com/dep2p/go-lobby/pkg/interfaces"
)

// MockIdentityService 模拟 IdentityService 接口实现
type MockIdentityService struct {
	mu sync.Mutex

	// 基本属性
	ID       string
	Name     string
	SignedIn bool
	Opts     interfaces.InitOptions

	// 可覆盖的方法
	InitializeFunc        func(ctx context.Context, opts interfaces.InitOptions) error
	SignInAnonymouslyFunc func(ctx context.Context) error

	// 调用记录
	InitializeCalls int
	SignInCalls     int
}

var _ interfaces.IdentityService = (*MockIdentityService)(nil)

// NewMockIdentityService 创建 MockIdentityService，登录后使用 playerID
func NewMockIdentityService(playerID string) *MockIdentityService {
	return &MockIdentityService{ID: playerID}
}

// Initialize 初始化
func (m *MockIdentityService) Initialize(ctx context.Context, opts interfaces.InitOptions) error {
	m.mu.Lock()
	m.InitializeCalls++
	m.Opts = opts
	fn := m.InitializeFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, opts)
	}
	return nil
}

// IsSignedIn 是否已登录
func (m *MockIdentityService) IsSignedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SignedIn
}

// SignInAnonymously 匿名登录
func (m *MockIdentityService) SignInAnonymously(ctx context.Context) error {
	m.mu.Lock()
	m.SignInCalls++
	fn := m.SignInAnonymouslyFunc
	m.mu.Unlock()
	if fn != nil {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.SignedIn = true
	if m.Name == "" {
		m.Name = m.Opts.Profile
	}
	m.mu.Unlock()
	return nil
}

// PlayerID 玩家 ID
func (m *MockIdentityService) PlayerID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.SignedIn {
		return ""
	}
	return m.ID
}

// DisplayName 显示名称
func (m *MockIdentityService) DisplayName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Name
}

// SignIns 返回登录调用次数
func (m *MockIdentityService) SignIns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SignInCalls
}
