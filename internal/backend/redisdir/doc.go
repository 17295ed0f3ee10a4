// Package redisdir 基于 Redis 的房间目录后端
//
// 数据布局（prefix 默认为 "lobby"）：
//
//	<prefix>:room:<id>     房间记录（JSON）
//	<prefix>:code:<code>   房间码索引 → 房间 ID
//	<prefix>:rooms         按创建序排列的房间有序集合
//	<prefix>:beat:<id>     房主心跳，带 TTL；过期的房间不再出现在查询中
//	<prefix>:events:<id>   房间推送频道（pub/sub）
//
// 成员变更使用 WATCH 乐观事务，冲突时重试。
package redisdir
