// Package relay 实现中继协调器（RelayCoordinator）
//
// 主机侧：Allocate 申请分配，GetJoinCode 获取加入码；
// 客户端侧：JoinAsClient 通过加入码取得连接数据。
// 结果统一转换为 types.RelayServerData 交给传输监督者。
//
// 协调器不持有状态；所有失败以 types.KindRelay 错误返回，不重试。
package relay
