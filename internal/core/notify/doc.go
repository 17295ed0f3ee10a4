// Package notify 实现房间通知订阅（NotificationSubscriber）
//
// 每个进程最多持有一个房间订阅。推送事件只沿 通知 → 本地投影 单向同步，
// 投影的修改通过 session.UpdateRoom 在会话锁内完成。
//
// 房间被删除或本地玩家被踢出时，在回调内同步调用失效钩子（拆除）。
// 已释放订阅上迟到的事件一律丢弃。
package notify
