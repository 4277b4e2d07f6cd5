package service

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"relay-chat-server/internal/config"
	"relay-chat-server/internal/model"
)

// AnthropicProvider 通过 Anthropic Messages API 生成回复
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider 创建 AnthropicProvider 实例
// SDK 自带的重试关闭，失败直接交给上层处理
func NewAnthropicProvider(cfg config.AIConfig) *AnthropicProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  cfg.Model,
	}
}

// Name 返回服务商名称
func (p *AnthropicProvider) Name() string { return config.ProviderAnthropic }

// Complete 调用 Messages API
func (p *AnthropicProvider) Complete(ctx context.Context, messages []ChatMessage, params GenerationParams) (*Completion, error) {
	system, conv := toAnthropicMessages(messages)

	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(params.MaxTokens),
		Temperature: anthropic.Float(params.Temperature),
		Messages:    conv,
	}
	if len(system) > 0 {
		req.System = system
	}

	msg, err := p.client.Messages.New(ctx, req)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{Provider: p.Name(), StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	if sb.Len() == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New("response contains no text block")}
	}

	total := int(msg.Usage.InputTokens + msg.Usage.OutputTokens)
	modelName := string(msg.Model)
	if modelName == "" {
		modelName = p.model
	}
	return &Completion{
		Content:     sb.String(),
		Model:       modelName,
		TotalTokens: &total,
	}, nil
}

// toAnthropicMessages 拆出 system 指令，其余按角色映射
func toAnthropicMessages(messages []ChatMessage) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	conv := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.MessageRoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: m.Content})
		case model.MessageRoleAssistant:
			conv = append(conv, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			conv = append(conv, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return system, conv
}
