package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"relay-chat-server/internal/config"
	"relay-chat-server/pkg/util"
)

// OpenAIProvider 调用 OpenAI 兼容的 /chat/completions 接口
// 默认指向 Together，也可以指向任何兼容该协议的服务
type OpenAIProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAIProvider 创建 OpenAIProvider 实例
func NewOpenAIProvider(cfg config.AIConfig) *OpenAIProvider {
	return &OpenAIProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// chatCompletionRequest 请求结构
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

// chatCompletionResponse 响应结构
type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message ChatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Name 返回服务商名称
func (p *OpenAIProvider) Name() string { return config.ProviderOpenAI }

// Complete 发送上下文并返回第一条候选回复
func (p *OpenAIProvider) Complete(ctx context.Context, messages []ChatMessage, params GenerationParams) (*Completion, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature,
	})
	if err != nil {
		return nil, p.fail(0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, p.fail(0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, p.fail(0, fmt.Errorf("call chat completions: %w", err))
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.fail(resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, p.fail(resp.StatusCode, errors.New(util.TruncateString(string(bodyBytes), 512)))
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return nil, p.fail(resp.StatusCode, fmt.Errorf("parse response: %w", err))
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, p.fail(resp.StatusCode, errors.New("response contains no completion"))
	}

	completion := &Completion{
		Content: parsed.Choices[0].Message.Content,
		Model:   p.model,
	}
	if parsed.Usage != nil {
		total := parsed.Usage.TotalTokens
		completion.TotalTokens = &total
	}
	return completion, nil
}

func (p *OpenAIProvider) fail(status int, err error) error {
	return &ProviderError{Provider: p.Name(), StatusCode: status, Err: err}
}
