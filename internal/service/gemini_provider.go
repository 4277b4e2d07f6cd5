package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"relay-chat-server/internal/config"
	"relay-chat-server/internal/model"
)

// GeminiProvider 通过 Gemini API 生成回复
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider 创建 GeminiProvider 实例
// API Key 为空时 SDK 会读取 GOOGLE_API_KEY / GEMINI_API_KEY 环境变量
func NewGeminiProvider(ctx context.Context, cfg config.AIConfig) (*GeminiProvider, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: cfg.Model}, nil
}

// Name 返回服务商名称
func (p *GeminiProvider) Name() string { return config.ProviderGemini }

// Complete 调用 GenerateContent
func (p *GeminiProvider) Complete(ctx context.Context, messages []ChatMessage, params GenerationParams) (*Completion, error) {
	system, contents := toGeminiContents(messages)

	temp := float32(params.Temperature)
	genCfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(params.MaxTokens),
	}
	if system != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	res, err := p.client.Models.GenerateContent(ctx, p.model, contents, genCfg)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &ProviderError{Provider: p.Name(), StatusCode: apiErr.Code, Err: err}
		}
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}

	text := res.Text()
	if text == "" {
		return nil, &ProviderError{Provider: p.Name(), Err: errors.New("response contains no text")}
	}

	completion := &Completion{Content: text, Model: p.model}
	if res.UsageMetadata != nil {
		total := int(res.UsageMetadata.TotalTokenCount)
		completion.TotalTokens = &total
	}
	return completion, nil
}

// toGeminiContents 合并 system 指令，assistant 映射为 model 角色
func toGeminiContents(messages []ChatMessage) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.MessageRoleSystem:
			system = append(system, m.Content)
		case model.MessageRoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}
