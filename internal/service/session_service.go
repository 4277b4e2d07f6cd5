package service

import (
	"context"
	"fmt"

	"relay-chat-server/internal/model"
	"relay-chat-server/internal/repository"
)

// SessionService 会话查询服务
// 会话没有独立的记录，只是消息上出现过的 sessionId
type SessionService struct {
	store repository.MessageStore
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(store repository.MessageStore) *SessionService {
	return &SessionService{store: store}
}

// GetMessages 获取会话的全部消息
// 会话不存在时返回空列表而不是错误
func (s *SessionService) GetMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	messages, err := s.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return messages, nil
}

// ListSessions 获取所有会话 ID
func (s *SessionService) ListSessions(ctx context.Context) ([]string, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if sessions == nil {
		sessions = []string{}
	}
	return sessions, nil
}
