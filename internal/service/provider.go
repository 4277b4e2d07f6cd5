package service

import (
	"context"
	"errors"
	"fmt"

	"relay-chat-server/internal/config"
)

// ErrProviderFailure AI 服务调用失败
// 包括网络错误、非成功状态码、响应中没有回复内容
var ErrProviderFailure = errors.New("AI 服务调用失败")

// ChatMessage 发送给模型的一条上下文消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 生成参数
type GenerationParams struct {
	MaxTokens   int
	Temperature float64
}

// Completion 模型返回的回复
type Completion struct {
	Content     string
	Model       string
	TotalTokens *int // 服务商未返回用量时为 nil
}

// CompletionProvider 对话补全服务
// 输入有序的消息列表，返回一段回复文本
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, messages []ChatMessage, params GenerationParams) (*Completion, error)
}

// ProviderError 记录哪个服务商、因为什么失败
type ProviderError struct {
	Provider   string
	StatusCode int // HTTP 状态码，非 HTTP 错误时为 0
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, ErrProviderFailure) 对所有 ProviderError 成立
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderFailure
}

// NewCompletionProvider 按配置创建 AI 服务
// 参数:
//   - ctx: 上下文（Gemini 客户端初始化需要）
//   - cfg: AI 配置
//
// 返回:
//   - CompletionProvider: AI 服务
//   - error: 配置缺失或客户端初始化失败
func NewCompletionProvider(ctx context.Context, cfg config.AIConfig) (CompletionProvider, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("ai.api_key is required for the openai provider")
		}
		return NewOpenAIProvider(cfg), nil
	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, errors.New("ai.api_key is required for the anthropic provider")
		}
		return NewAnthropicProvider(cfg), nil
	case config.ProviderGemini:
		return NewGeminiProvider(ctx, cfg)
	case config.ProviderMock:
		return NewMockProvider(cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
	}
}
