// Package metrics 提供会话编排的 Prometheus 指标
//
// 指标（命名空间默认 lobby）：
//   - sessions_started_total{role}      工作流启动次数
//   - sessions_ready_total{role}        连接完成次数
//   - teardowns_total{reason}           拆除次数
//   - teardown_step_errors_total{step}  拆除步骤失败次数
//   - heartbeats_total{result}          心跳结果
//   - directory_calls_total{op,result}  目录调用结果
//   - connect_wait_seconds              等待连接耗时
//   - session_state                     当前会话状态
//
// Collector 的所有方法对 nil 接收者安全，禁用指标时模块提供 nil。
package metrics
