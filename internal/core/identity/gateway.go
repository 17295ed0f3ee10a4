package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dep2p/go-lobby/internal/core/session"
	"github.com/dep2p/go-lobby/internal/util/logger"
	"github.com/dep2p/go-lobby/pkg/interfaces"
	"github.com/dep2p/go-lobby/pkg/types"
)

var log = logger.Logger("identity")

// ResolveProfile 返回可用的 profile 名称
//
// 合法名称原样返回，否则生成 player-xxxxxxxx。
func ResolveProfile(name string) string {
	if types.ValidProfileName(name) {
		return name
	}
	return "player-" + uuid.NewString()[:8]
}

// Gateway 身份网关
type Gateway struct {
	svc     interfaces.IdentityService
	sess    *session.Session
	profile string

	group singleflight.Group

	mu          sync.Mutex
	initialized bool
	onSignedIn  []func(types.Identity)
}

// NewGateway 创建身份网关
func NewGateway(svc interfaces.IdentityService, sess *session.Session, profile string) *Gateway {
	resolved := ResolveProfile(profile)
	if resolved != profile && profile != "" {
		log.Warn("profile 名称不合法，使用自动生成的名称",
			"profile", profile,
			"fallback", resolved)
	}
	return &Gateway{
		svc:     svc,
		sess:    sess,
		profile: resolved,
	}
}

// Profile 实际使用的 profile
func (g *Gateway) Profile() string {
	return g.profile
}

// OnSignedIn 注册首次登录成功回调
func (g *Gateway) OnSignedIn(fn func(types.Identity)) {
	g.mu.Lock()
	g.onSignedIn = append(g.onSignedIn, fn)
	g.mu.Unlock()
}

// Identity 已记录的身份，未登录时为零值
func (g *Gateway) Identity() types.Identity {
	return g.sess.Identity()
}

// EnsureAuthenticated 确保已登录并返回身份
func (g *Gateway) EnsureAuthenticated(ctx context.Context) (types.Identity, error) {
	if id := g.sess.Identity(); !id.IsZero() {
		return id, nil
	}

	v, err, _ := g.group.Do("sign-in", func() (any, error) {
		return g.signIn(ctx)
	})
	if err != nil {
		return types.Identity{}, err
	}
	return v.(types.Identity), nil
}

func (g *Gateway) signIn(ctx context.Context) (types.Identity, error) {
	if id := g.sess.Identity(); !id.IsZero() {
		return id, nil
	}

	g.mu.Lock()
	initialized := g.initialized
	g.mu.Unlock()

	if !initialized {
		if err := g.svc.Initialize(ctx, interfaces.InitOptions{Profile: g.profile}); err != nil {
			log.Warn("身份后端初始化失败", "error", err)
			return types.Identity{}, types.AuthError("initialize", err)
		}
		g.mu.Lock()
		g.initialized = true
		g.mu.Unlock()
	}

	if !g.svc.IsSignedIn() {
		if err := g.svc.SignInAnonymously(ctx); err != nil {
			log.Warn("匿名登录失败", "error", err)
			return types.Identity{}, types.AuthError("sign_in", err)
		}
	}

	playerID := g.svc.PlayerID()
	if playerID == "" {
		return types.Identity{}, types.AuthError("sign_in", types.ErrNotAuthenticated)
	}
	name := g.svc.DisplayName()
	if name == "" {
		name = g.profile
	}

	id := g.sess.SetIdentity(types.Identity{
		PlayerID:      playerID,
		DisplayName:   name,
		LocalClientID: types.DeriveClientID(playerID),
	})

	log.Info("登录成功",
		"player", logger.TruncateID(id.PlayerID, 8),
		"name", id.DisplayName)

	g.mu.Lock()
	callbacks := make([]func(types.Identity), len(g.onSignedIn))
	copy(callbacks, g.onSignedIn)
	g.mu.Unlock()
	for _, cb := range callbacks {
		cb(id)
	}
	return id, nil
}
