// Package directory 实现房间目录（RoomDirectory）
//
// 在目录服务之上组合中继协调器与心跳维持器：
//   - CreateRoom 先申请中继并取得加入码，再注册房间（房间对外可见时元数据已含有效加入码），
//     注册成功后启动心跳；任一步失败都回滚已创建的部分
//   - JoinRoomByCode / JoinRoomByID 注册成员并用房间公布的加入码加入中继
//   - QuickJoin 没有可加入房间时返回 (nil, nil)，调用方回退到 CreateRoom
//   - FindOpenRooms 受客户端令牌桶限流，结果按创建时间倒序
//
// 所有操作都假定 EnsureAuthenticated 已成功。返回的 Lease 尚未提交到会话，
// 由编排器提交；提交失败时调用 Release 释放。
package directory
