// Package transport 实现传输层监管（TransportSupervisor）
//
// Supervisor 不实现任何网络协议，它在 interfaces.Transport 之上完成：
//   - 用中继数据与加密模式配置传输层
//   - 拒绝重复启动（ErrAlreadyListening 是前置条件违例，不重试）
//   - 每次启动登记一次生命周期回调，登记在会话的观察者表中，由拆除统一取消
//   - 以有界轮询等待连接完成
//
// 底层握手只提供"已连接/未连接"标志，没有完成通知，
// 因此 WaitForConnection 每个 tick 依次检查会话有效性、连接标志和 tick 预算。
package transport
