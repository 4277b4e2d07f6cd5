package service

import (
	"context"
	"fmt"

	"relay-chat-server/internal/model"
	"relay-chat-server/internal/repository"
)

// SystemPrompt 每次调用模型时放在最前面的固定指令
const SystemPrompt = "You are a helpful AI assistant. Always provide clear, concise, and accurate responses. " +
	"If you're not sure about something, say so. " +
	"Format your responses using markdown when appropriate for better readability."

// ContextAssembler 把会话历史组装成发给模型的消息列表
// 不做截断、过滤或摘要
type ContextAssembler struct {
	store        repository.MessageStore
	systemPrompt string
}

// NewContextAssembler 创建 ContextAssembler 实例
func NewContextAssembler(store repository.MessageStore) *ContextAssembler {
	return &ContextAssembler{store: store, systemPrompt: SystemPrompt}
}

// Assemble 组装上下文
// 参数:
//   - ctx: 上下文
//   - sessionID: 会话 ID
//
// 返回:
//   - []ChatMessage: 一条 system 指令 + 会话全部消息（按存储顺序），长度为消息数 + 1
//   - error: 读取存储失败
func (a *ContextAssembler) Assemble(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	history, err := a.store.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := make([]ChatMessage, 0, len(history)+1)
	messages = append(messages, ChatMessage{Role: model.MessageRoleSystem, Content: a.systemPrompt})
	for _, m := range history {
		messages = append(messages, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return messages, nil
}
