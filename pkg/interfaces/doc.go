// Package interfaces 定义 go-lobby 的公共接口
//
// 编排器协调的四个外部服务在这里只定义调用形状，线格式不透明：
//   - identity.go   - 身份服务（匿名登录、profile）
//   - directory.go  - 房间目录服务（查询、创建、加入、推送订阅）
//   - relay.go      - 中继服务（分配、加入码）
//   - transport.go  - 传输层（配置、启动、生命周期事件）
//
// 以及对游戏/UI 层暴露信号的事件总线：
//   - eventbus.go   - EventBus / Subscription / Emitter
//
// 内置实现见 internal/backend/memory 与 internal/backend/redisdir。
package interfaces
