// Package repository 提供数据访问层的实现
package repository

import (
	"context"

	"relay-chat-server/internal/model"
)

// MessageStore 按会话分区的消息存储
// 追加是原子的：分配 ID、写入时间戳、保存为一个不可分割的步骤
// 读取返回快照，调用方拿到的记录与存储内部互不影响
type MessageStore interface {
	// Append 追加一条消息并返回完整记录，不做任何内容校验
	Append(ctx context.Context, role, content, sessionID string, metadata map[string]any) (*model.Message, error)

	// ListBySession 返回会话的全部消息，按 (timestamp, id) 升序
	// 未知会话返回空切片
	ListBySession(ctx context.Context, sessionID string) ([]model.Message, error)

	// ListSessions 返回出现过的会话 ID，按首次出现的顺序
	ListSessions(ctx context.Context) ([]string, error)
}
