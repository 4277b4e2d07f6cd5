package service

import (
	"context"
	"fmt"

	"relay-chat-server/internal/config"
	"relay-chat-server/internal/model"
)

// MockProvider 本地开发用，不访问网络
type MockProvider struct {
	model string
}

// NewMockProvider 创建 MockProvider 实例
func NewMockProvider(modelName string) *MockProvider {
	return &MockProvider{model: modelName}
}

// Name 返回服务商名称
func (p *MockProvider) Name() string { return config.ProviderMock }

// Complete 复述最后一条用户消息
func (p *MockProvider) Complete(ctx context.Context, messages []ChatMessage, _ GenerationParams) (*Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}

	last := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.MessageRoleUser {
			last = messages[i].Content
			break
		}
	}

	tokens := len(messages)
	return &Completion{
		Content:     fmt.Sprintf("You said %q. (%d messages in context)", last, len(messages)),
		Model:       p.model,
		TotalTokens: &tokens,
	}, nil
}
