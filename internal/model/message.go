// Package model 定义了与数据库表对应的数据结构
package model

import (
	"time"

	"gorm.io/datatypes"
)

// MessageRole 消息角色常量
const (
	MessageRoleUser      = "user"      // 用户消息
	MessageRoleAssistant = "assistant" // AI 助手响应
	MessageRoleSystem    = "system"    // 系统指令，只出现在发给模型的上下文中，不落库
)

// Metadata 键
const (
	MetadataKeyModel  = "model"  // 生成回复的模型
	MetadataKeyTokens = "tokens" // 本次调用的总 token 数
)

// Message 消息模型
// 对应数据库表 messages
// 创建后不可修改，也不会被删除
type Message struct {
	// ID 消息唯一标识，按创建顺序严格递增
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// Role 消息角色: user / assistant
	Role string `gorm:"size:20;not null" json:"role"`

	// Content 消息内容
	Content string `gorm:"type:text;not null" json:"content"`

	// Timestamp 由存储层在追加时写入，客户端不能指定
	Timestamp time.Time `gorm:"column:created_at;not null;index:idx_messages_session_time,priority:2" json:"timestamp"`

	// SessionID 所属会话，任意字符串都是合法的会话标识
	SessionID string `gorm:"size:255;not null;index:idx_messages_session_time,priority:1" json:"sessionId"`

	// Metadata 附加信息，如模型名称、token 用量
	Metadata datatypes.JSONMap `json:"metadata"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}

// CloneMetadata 返回 metadata 的浅拷贝，nil 视为空对象
func CloneMetadata(src map[string]any) datatypes.JSONMap {
	dst := make(datatypes.JSONMap, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
