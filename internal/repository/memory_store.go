package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"relay-chat-server/internal/model"
)

// MemoryMessageStore 进程内消息存储
// 进程退出后数据丢失，适合开发和单实例部署
type MemoryMessageStore struct {
	mu        sync.RWMutex
	nextID    int64
	bySession map[string][]model.Message // sessionID -> 消息（追加顺序）
	sessions  []string                   // 会话 ID，按首次出现顺序
	now       func() time.Time
}

// MemoryOption 内存存储的可选配置
type MemoryOption func(*MemoryMessageStore)

// WithClock 替换时间来源，用于测试
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryMessageStore) {
		s.now = now
	}
}

// NewMemoryMessageStore 创建内存存储，ID 从 1 开始
func NewMemoryMessageStore(opts ...MemoryOption) *MemoryMessageStore {
	s := &MemoryMessageStore{
		nextID:    1,
		bySession: make(map[string][]model.Message),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append 追加消息
// ID 分配和写入在同一把锁内完成，并发追加不会产生重复 ID
func (s *MemoryMessageStore) Append(_ context.Context, role, content, sessionID string, metadata map[string]any) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := model.Message{
		ID:        s.nextID,
		Role:      role,
		Content:   content,
		Timestamp: s.now().UTC(),
		SessionID: sessionID,
		Metadata:  model.CloneMetadata(metadata),
	}
	s.nextID++

	if _, seen := s.bySession[sessionID]; !seen {
		s.sessions = append(s.sessions, sessionID)
	}
	s.bySession[sessionID] = append(s.bySession[sessionID], msg)

	out := copyMessage(msg)
	return &out, nil
}

// ListBySession 返回会话消息的快照
func (s *MemoryMessageStore) ListBySession(_ context.Context, sessionID string) ([]model.Message, error) {
	s.mu.RLock()
	stored := s.bySession[sessionID]
	messages := make([]model.Message, len(stored))
	for i := range stored {
		messages[i] = copyMessage(stored[i])
	}
	s.mu.RUnlock()

	// 时钟可能回拨，不能假设追加顺序就是时间顺序
	sort.SliceStable(messages, func(i, j int) bool {
		return lessByTimeThenID(messages[i], messages[j])
	})
	return messages, nil
}

// ListSessions 返回会话 ID 列表
func (s *MemoryMessageStore) ListSessions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, len(s.sessions))
	copy(sessions, s.sessions)
	return sessions, nil
}

func copyMessage(m model.Message) model.Message {
	m.Metadata = model.CloneMetadata(m.Metadata)
	return m
}

func lessByTimeThenID(a, b model.Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.ID < b.ID
}
