// Package orchestrator 实现会话编排器（SessionOrchestrator）与拆除协调器
//
// 编排器把玩家意图（PlayNow、Create、Join）转化为完整连接的网络会话：
//
//	EnsureAuthenticated → 创建/加入房间 → 订阅通知 → 启动传输 → 等待连接 → SessionReady
//
// 工作流开始时从会话取得令牌，每个挂起点之后检查令牌（提交房间后还检查房间）。
// 拆除使令牌失效，进行中的工作流在下一个检查点中止，并释放尚未提交到会话的资源。
//
// 所有失效来源（离开、踢出、房间删除、传输故障、本地断开、进程退出、工作流失败）
// 都经过唯一的 teardown 路径，EvtSessionEnded 对每个会话恰好发出一次。
package orchestrator
