package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"relay-chat-server/internal/config"
	"relay-chat-server/internal/model"
	"relay-chat-server/internal/repository"
)

// stubProvider 记录收到的上下文，返回预设结果
type stubProvider struct {
	mu       sync.Mutex
	calls    [][]ChatMessage
	params   []GenerationParams
	reply    string
	tokens   *int
	err      error
	blocking bool
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Complete(ctx context.Context, messages []ChatMessage, params GenerationParams) (*Completion, error) {
	p.mu.Lock()
	p.calls = append(p.calls, append([]ChatMessage(nil), messages...))
	p.params = append(p.params, params)
	p.mu.Unlock()

	if p.blocking {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	return &Completion{Content: p.reply, Model: "stub-model", TotalTokens: p.tokens}, nil
}

// recordingPublisher 记录发布过的消息
type recordingPublisher struct {
	mu       sync.Mutex
	messages []model.Message
	err      error
}

func (r *recordingPublisher) PublishMessage(_ context.Context, msg *model.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, *msg)
	return r.err
}

func testAIConfig() config.AIConfig {
	return config.AIConfig{MaxTokens: 1000, Temperature: 0.7, Timeout: 5 * time.Second}
}

func TestChatService_FirstTurn(t *testing.T) {
	store := repository.NewMemoryMessageStore()
	tokens := 49
	provider := &stubProvider{reply: "Hello!", tokens: &tokens}
	svc := NewChatService(store, provider, testAIConfig())
	ctx := context.Background()

	resp, err := svc.Chat(ctx, &ChatRequest{Message: "Hi", SessionID: "s1"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if resp.UserMessage.Role != model.MessageRoleUser || resp.UserMessage.Content != "Hi" {
		t.Errorf("user message = %+v", resp.UserMessage)
	}
	if resp.AIMessage.Role != model.MessageRoleAssistant || resp.AIMessage.Content != "Hello!" {
		t.Errorf("ai message = %+v", resp.AIMessage)
	}
	if resp.AIMessage.ID <= resp.UserMessage.ID {
		t.Errorf("ai id %d should follow user id %d", resp.AIMessage.ID, resp.UserMessage.ID)
	}
	if resp.AIMessage.Metadata[model.MetadataKeyModel] != "stub-model" {
		t.Errorf("metadata model = %v", resp.AIMessage.Metadata[model.MetadataKeyModel])
	}
	if resp.AIMessage.Metadata[model.MetadataKeyTokens] != 49 {
		t.Errorf("metadata tokens = %v", resp.AIMessage.Metadata[model.MetadataKeyTokens])
	}

	// 模型收到 system + 用户消息
	if len(provider.calls) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(provider.calls))
	}
	sent := provider.calls[0]
	if len(sent) != 2 || sent[0].Role != model.MessageRoleSystem || sent[0].Content != SystemPrompt {
		t.Fatalf("context = %+v", sent)
	}
	if sent[1] != (ChatMessage{Role: model.MessageRoleUser, Content: "Hi"}) {
		t.Errorf("context[1] = %+v", sent[1])
	}
	if provider.params[0] != (GenerationParams{MaxTokens: 1000, Temperature: 0.7}) {
		t.Errorf("params = %+v", provider.params[0])
	}

	msgs, _ := store.ListBySession(ctx, "s1")
	if len(msgs) != 2 {
		t.Errorf("stored = %d, want 2", len(msgs))
	}
}

func TestChatService_ContextGrowsWithHistory(t *testing.T) {
	store := repository.NewMemoryMessageStore()
	provider := &stubProvider{reply: "ok"}
	svc := NewChatService(store, provider, testAIConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Chat(ctx, &ChatRequest{Message: "again", SessionID: "s1"}); err != nil {
			t.Fatal(err)
		}
	}

	// 第 k 轮的上下文 = system + 之前 2(k-1) 条 + 本轮用户消息
	for k, call := range provider.calls {
		want := 1 + 2*k + 1
		if len(call) != want {
			t.Errorf("turn %d context length = %d, want %d", k+1, len(call), want)
		}
	}
}

func TestChatService_NoTokensWhenProviderOmitsUsage(t *testing.T) {
	svc := NewChatService(repository.NewMemoryMessageStore(), &stubProvider{reply: "ok"}, testAIConfig())

	resp, err := svc.Chat(context.Background(), &ChatRequest{Message: "Hi", SessionID: "s1"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := resp.AIMessage.Metadata[model.MetadataKeyTokens]; ok {
		t.Errorf("metadata should not contain tokens: %v", resp.AIMessage.Metadata)
	}
}

func TestChatService_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  ChatRequest
	}{
		{name: "empty message", req: ChatRequest{Message: "", SessionID: "s1"}},
		{name: "empty message and session", req: ChatRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryMessageStore()
			provider := &stubProvider{reply: "ok"}
			svc := NewChatService(store, provider, testAIConfig())

			_, err := svc.Chat(context.Background(), &tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
			if len(provider.calls) != 0 {
				t.Error("provider must not be called")
			}
			sessions, _ := store.ListSessions(context.Background())
			if len(sessions) != 0 {
				t.Errorf("store mutated: sessions = %v", sessions)
			}
		})
	}
}

func TestChatService_AcceptsWhitespaceAndEmptySession(t *testing.T) {
	tests := []struct {
		name string
		req  ChatRequest
	}{
		{name: "whitespace message", req: ChatRequest{Message: "   \n", SessionID: "s1"}},
		{name: "empty session id", req: ChatRequest{Message: "Hi", SessionID: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repository.NewMemoryMessageStore()
			provider := &stubProvider{reply: "ok"}
			svc := NewChatService(store, provider, testAIConfig())

			resp, err := svc.Chat(context.Background(), &tt.req)
			if err != nil {
				t.Fatalf("Chat() error = %v", err)
			}
			if resp.UserMessage.Content != tt.req.Message || resp.UserMessage.SessionID != tt.req.SessionID {
				t.Errorf("user message = %+v", resp.UserMessage)
			}
			msgs, _ := store.ListBySession(context.Background(), tt.req.SessionID)
			if len(msgs) != 2 {
				t.Errorf("stored = %d, want 2", len(msgs))
			}
		})
	}
}

func TestChatService_ProviderFailureKeepsUserTurn(t *testing.T) {
	store := repository.NewMemoryMessageStore()
	provider := &stubProvider{err: errors.New("connection refused")}
	publisher := &recordingPublisher{}
	svc := NewChatService(store, provider, testAIConfig())
	svc.SetPublisher(publisher)
	ctx := context.Background()

	_, err := svc.Chat(ctx, &ChatRequest{Message: "Hi", SessionID: "s1"})
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}

	msgs, _ := store.ListBySession(ctx, "s1")
	if len(msgs) != 1 || msgs[0].Role != model.MessageRoleUser {
		t.Fatalf("stored = %+v, want the orphan user message only", msgs)
	}
	if len(publisher.messages) != 1 {
		t.Errorf("published = %d, want 1", len(publisher.messages))
	}

	// 重试时上下文包含孤立的用户消息
	provider.err = nil
	provider.reply = "recovered"
	if _, err := svc.Chat(ctx, &ChatRequest{Message: "Hi again", SessionID: "s1"}); err != nil {
		t.Fatal(err)
	}
	last := provider.calls[len(provider.calls)-1]
	if len(last) != 3 || last[1].Content != "Hi" || last[2].Content != "Hi again" {
		t.Errorf("retry context = %+v", last)
	}
}

func TestChatService_EmptyCompletionIsFailure(t *testing.T) {
	store := repository.NewMemoryMessageStore()
	svc := NewChatService(store, &stubProvider{reply: ""}, testAIConfig())

	_, err := svc.Chat(context.Background(), &ChatRequest{Message: "Hi", SessionID: "s1"})
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
	msgs, _ := store.ListBySession(context.Background(), "s1")
	if len(msgs) != 1 {
		t.Errorf("stored = %d, want 1", len(msgs))
	}
}

func TestChatService_ProviderTimeout(t *testing.T) {
	cfg := testAIConfig()
	cfg.Timeout = 20 * time.Millisecond
	svc := NewChatService(repository.NewMemoryMessageStore(), &stubProvider{blocking: true}, cfg)

	_, err := svc.Chat(context.Background(), &ChatRequest{Message: "Hi", SessionID: "s1"})
	if !errors.Is(err, ErrProviderFailure) {
		t.Fatalf("err = %v, want ErrProviderFailure", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want wrapped deadline exceeded", err)
	}
}

func TestChatService_PublishesBothMessages(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("bus down")}
	svc := NewChatService(repository.NewMemoryMessageStore(), &stubProvider{reply: "ok"}, testAIConfig())
	svc.SetPublisher(publisher)

	resp, err := svc.Chat(context.Background(), &ChatRequest{Message: "Hi", SessionID: "s1"})
	if err != nil {
		t.Fatalf("publish errors must not fail the turn: %v", err)
	}
	if len(publisher.messages) != 2 {
		t.Fatalf("published = %d, want 2", len(publisher.messages))
	}
	if publisher.messages[0].ID != resp.UserMessage.ID || publisher.messages[1].ID != resp.AIMessage.ID {
		t.Errorf("published ids = %d, %d", publisher.messages[0].ID, publisher.messages[1].ID)
	}
}

func TestChatService_ConcurrentSessions(t *testing.T) {
	store := repository.NewMemoryMessageStore()
	svc := NewChatService(store, &stubProvider{reply: "ok"}, testAIConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"A", "B"} {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := svc.Chat(ctx, &ChatRequest{Message: "hi", SessionID: id}); err != nil {
					t.Errorf("Chat(%s) error = %v", id, err)
				}
			}(id)
		}
	}
	wg.Wait()

	for _, id := range []string{"A", "B"} {
		msgs, _ := store.ListBySession(ctx, id)
		if len(msgs) != 20 {
			t.Errorf("session %s stored %d messages, want 20", id, len(msgs))
		}
	}
}
