// Package websocket 提供 WebSocket 通信功能
// 客户端订阅某个会话，实时收到该会话新保存的消息
package websocket

import (
	"time"
)

// 事件类型
const (
	// 客户端 → 服务端
	TypeHeartbeat = "heartbeat" // 心跳

	// 服务端 → 客户端
	TypeMessageCreated = "message:created" // 会话有新消息
	TypePong           = "pong"            // 心跳响应
	TypeError          = "error"           // 错误
)

// Event WebSocket 事件结构
// 所有事件都使用这个统一的结构
type Event struct {
	Type      string      `json:"type"`              // 事件类型
	Payload   interface{} `json:"payload,omitempty"` // 事件内容
	Timestamp int64       `json:"timestamp"`         // 时间戳（毫秒）
}

// NewEvent 创建新事件
func NewEvent(eventType string, payload interface{}) *Event {
	return &Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// ErrorPayload 错误事件 Payload
type ErrorPayload struct {
	Message string `json:"message"`
}
