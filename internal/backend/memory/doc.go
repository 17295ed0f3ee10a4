// Package memory 提供进程内的后端实现
//
// World 聚合共享的房间目录、中继与回环传输网络，每个玩家通过 World.Backends
// 取得绑定自己身份的一组后端。所有推送回调（房间通知、传输生命周期事件）
// 都在独立的派发 goroutine 中异步投递，调用方持有的锁不会被回调重入。
//
// 用于测试、本地模拟（cmd/lobby simulate）以及没有远端服务时的开发。
package memory
