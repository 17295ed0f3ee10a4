// Package mocks 提供外部服务接口的测试替身
//
// 手写 mock 采用 XxxFunc 覆盖 + 调用计数的形式；
// RelayService 额外提供 gomock 版本（relay_gomock.go）。
package mocks
