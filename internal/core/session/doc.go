// Package session 实现会话聚合
//
// Session 是每个编排器唯一的会话上下文，持有：
//   - 会话状态（Disconnected → Authenticating → RoomPending → RoomActive → Connecting → InGame）
//   - 进程身份（登录后不可变，拆除不清除）
//   - 房间本地投影与中继分配（拆除时整体清除）
//   - 代数令牌（generation）：工作流启动时捕获，拆除时递增
//   - 观察者登记表：本地回调注册的取消函数，拆除时统一排空
//
// 工作流在每个挂起点调用 Valid/ValidRoom 检查令牌；
// 令牌失效说明有并发拆除，工作流应在当前检查点中止并释放未提交的资源。
package session
