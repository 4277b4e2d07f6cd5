// Package service 提供业务逻辑层的实现
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relay-chat-server/internal/config"
	"relay-chat-server/internal/logger"
	"relay-chat-server/internal/model"
	"relay-chat-server/internal/repository"
)

// 聊天服务相关错误
var (
	ErrInvalidRequest = errors.New("无效的聊天请求")
)

// MessagePublisher 消息落库后的通知出口
// 实现方：WebSocket Hub（单实例）或 Redis（多实例）
type MessagePublisher interface {
	PublishMessage(ctx context.Context, msg *model.Message) error
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

// ChatResponse 一轮对话的结果
type ChatResponse struct {
	UserMessage *model.Message `json:"userMessage"`
	AIMessage   *model.Message `json:"aiMessage"`
}

// ChatService 处理一轮对话：校验、保存用户消息、组装上下文、调用模型、保存回复
type ChatService struct {
	store     repository.MessageStore
	assembler *ContextAssembler
	provider  CompletionProvider
	params    GenerationParams
	timeout   time.Duration
	publisher MessagePublisher
}

// NewChatService 创建 ChatService 实例
// 参数:
//   - store: 消息存储
//   - provider: AI 服务
//   - cfg: AI 配置（生成参数、超时）
func NewChatService(store repository.MessageStore, provider CompletionProvider, cfg config.AIConfig) *ChatService {
	return &ChatService{
		store:     store,
		assembler: NewContextAssembler(store),
		provider:  provider,
		params: GenerationParams{
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		},
		timeout: cfg.Timeout,
	}
}

// SetPublisher 设置消息通知出口
func (s *ChatService) SetPublisher(p MessagePublisher) {
	s.publisher = p
}

// Chat 处理一轮对话
// 用户消息一旦保存就不会回滚；模型调用失败时不保存任何回复
// 返回:
//   - *ChatResponse: 保存后的用户消息和 AI 回复
//   - error: ErrInvalidRequest / ErrProviderFailure / 存储错误
func (s *ChatService) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	log := logger.FromContext(ctx).With("session_id", req.SessionID)

	// 1. 校验：消息至少一个字符，原样保存；任何字符串（包括空串）都是合法的会话 ID
	if req.Message == "" {
		return nil, ErrInvalidRequest
	}

	// 2. 保存用户消息
	userMsg, err := s.store.Append(ctx, model.MessageRoleUser, req.Message, req.SessionID, nil)
	if err != nil {
		return nil, fmt.Errorf("save user message: %w", err)
	}
	s.publish(ctx, userMsg)

	// 3. 组装上下文（包含刚保存的用户消息）
	messages, err := s.assembler.Assemble(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	// 4. 调用模型
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := s.provider.Complete(callCtx, messages, s.params)
	if err != nil {
		log.Error("completion failed",
			"provider", s.provider.Name(),
			"context_messages", len(messages),
			"latency_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		if !errors.Is(err, ErrProviderFailure) {
			err = &ProviderError{Provider: s.provider.Name(), Err: err}
		}
		return nil, err
	}
	if completion == nil || completion.Content == "" {
		log.Error("completion returned no content", "provider", s.provider.Name())
		return nil, &ProviderError{Provider: s.provider.Name(), Err: errors.New("empty completion")}
	}

	log.Info("completion received",
		"provider", s.provider.Name(),
		"model", completion.Model,
		"context_messages", len(messages),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	// 5. 保存 AI 回复
	metadata := map[string]any{model.MetadataKeyModel: completion.Model}
	if completion.TotalTokens != nil {
		metadata[model.MetadataKeyTokens] = *completion.TotalTokens
	}
	aiMsg, err := s.store.Append(ctx, model.MessageRoleAssistant, completion.Content, req.SessionID, metadata)
	if err != nil {
		return nil, fmt.Errorf("save assistant message: %w", err)
	}
	s.publish(ctx, aiMsg)

	return &ChatResponse{UserMessage: userMsg, AIMessage: aiMsg}, nil
}

// publish 通知失败只记录日志，不影响本轮对话
func (s *ChatService) publish(ctx context.Context, msg *model.Message) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMessage(ctx, msg); err != nil {
		logger.FromContext(ctx).Warn("publish message failed",
			"session_id", msg.SessionID,
			"message_id", msg.ID,
			"error", err,
		)
	}
}
