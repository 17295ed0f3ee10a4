// Package lobby 提供多人游戏会话生命周期编排
//
// 一个进程同一时刻最多持有一个游戏会话：登录 → 获取房间 → 订阅房间通知
// → 建立中继传输 → 游戏中，任何失败或外部事件都走唯一的拆除路径回到
// Disconnected，并恰好发出一次 SessionEnded。
//
// # 快速开始
//
//	world := memory.NewWorld()
//	p := world.NewPlayer()
//
//	lb, err := lobby.Start(ctx,
//	    lobby.WithBackends(p.Backends),
//	    lobby.WithProfile("alice"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer lb.Close()
//
//	sub, _ := lb.Subscribe(new(types.EvtSessionEnded))
//	defer sub.Close()
//
//	if err := lb.PlayNow(ctx); err != nil {
//	    return err
//	}
//
// # 外部服务
//
// 身份、房间目录、中继与传输层通过 interfaces.Backends 注入：
//
//   - internal/backend/memory: 进程内实现，用于测试与模拟
//   - internal/backend/redisdir: 基于 Redis 的房间目录
//
// # 信号
//
// 通过 Subscribe 订阅 types.EvtSignedIn、EvtRoomJoined、EvtRoomUpdated、
// EvtSessionReady、EvtSessionEnded 与 EvtStateChanged。
package lobby
