package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"relay-chat-server/internal/model"
)

// MessageRepository 基于 GORM 的消息存储
// 支持 MySQL / PostgreSQL / SQLite，ID 由自增主键分配
type MessageRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMessageRepository 创建 MessageRepository 实例
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db, now: time.Now}
}

// Append 插入一条消息
// 参数:
//   - ctx: 上下文
//   - role: 消息角色
//   - content: 消息内容
//   - sessionID: 会话 ID
//   - metadata: 附加信息，可为 nil
//
// 返回:
//   - *model.Message: 写入后的记录（ID 和 Timestamp 已填充）
//   - error: 数据库错误
func (r *MessageRepository) Append(ctx context.Context, role, content, sessionID string, metadata map[string]any) (*model.Message, error) {
	msg := &model.Message{
		Role:      role,
		Content:   content,
		SessionID: sessionID,
		// 统一存 UTC，避免不同数据库时区设置影响排序和序列化
		Timestamp: r.now().UTC(),
		Metadata:  model.CloneMetadata(metadata),
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// ListBySession 获取会话的所有消息
// 按时间正序排列，同一时间按 ID 排序
// 参数:
//   - ctx: 上下文
//   - sessionID: 会话 ID
//
// 返回:
//   - []model.Message: 消息列表，会话不存在时为空切片
//   - error: 数据库错误
func (r *MessageRepository) ListBySession(ctx context.Context, sessionID string) ([]model.Message, error) {
	messages := make([]model.Message, 0)
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages of session %q: %w", sessionID, err)
	}

	for i := range messages {
		messages[i].Timestamp = messages[i].Timestamp.UTC()
		if messages[i].Metadata == nil {
			messages[i].Metadata = model.CloneMetadata(nil)
		}
	}
	return messages, nil
}

// ListSessions 获取所有出现过的会话 ID
// 按每个会话第一条消息的 ID 排序，即首次出现的顺序
func (r *MessageRepository) ListSessions(ctx context.Context) ([]string, error) {
	sessions := make([]string, 0)
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Select("session_id").
		Group("session_id").
		Order("MIN(id) ASC").
		Pluck("session_id", &sessions).Error
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
