// Package identity 实现身份网关（IdentityGateway）
//
// EnsureAuthenticated 保证进程内恰好存在一个已登录身份：
//   - 首次调用初始化身份后端（profile 校验失败时回退为自动生成的名称）并匿名登录
//   - 并发的首次调用合并为一次登录（singleflight）
//   - 之后的调用直接返回已记录的身份，不产生网络调用
//
// 失败以 types.KindAuth 错误返回，不自动重试。
package identity
