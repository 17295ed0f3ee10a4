// Package eventbus 实现会话信号总线
//
// 编排器通过总线向游戏/UI 层发布 types.Evt* 信号。事件按类型路由，
// 发射不阻塞：订阅者缓冲区满时丢弃事件并计数告警。
//
// # 快速开始
//
//	bus := eventbus.NewBus()
//
//	sub, _ := bus.Subscribe(new(types.EvtSessionEnded))
//	defer sub.Close()
//
//	em, _ := bus.Emitter(new(types.EvtSessionEnded))
//	em.Emit(types.EvtSessionEnded{Reason: types.ReasonLeft})
//
// # 有状态发射器
//
// 以 Stateful() 创建的发射器会保留最后一个事件，
// 新订阅者立即收到它（例如 EvtStateChanged 用于 UI 初始化）。
//
// # 关闭
//
// Bus.Close 关闭所有订阅的输出通道，之后的 Subscribe/Emitter 返回 ErrClosed。
// Fx 模块在 OnStop 中调用它。
package eventbus
