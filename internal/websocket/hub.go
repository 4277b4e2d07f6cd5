package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"relay-chat-server/internal/logger"
	"relay-chat-server/internal/model"
)

// Hub 是 WebSocket 连接的中心管理器
// 负责：
// 1. 管理所有客户端连接（按会话分组）
// 2. 把新保存的消息推送给订阅了该会话的客户端
type Hub struct {
	// 会话订阅映射：sessionID -> 客户端集合
	sessions map[string]map[*Client]struct{}

	// 注册通道
	register chan *Client

	// 注销通道
	unregister chan *Client

	// Run 退出后关闭
	done chan struct{}

	// 保护 sessions
	mu sync.RWMutex
}

// NewHub 创建 Hub 实例
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 的主循环，直到 ctx 结束
// 应该在单独的 goroutine 中运行
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.conn.Close()
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// registerClient 把客户端加入会话订阅
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[client.sessionID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.sessions[client.sessionID] = clients
	}
	clients[client] = struct{}{}

	logger.L().Debug("websocket client registered", "session_id", client.sessionID, "watchers", len(clients))
}

// unregisterClient 移除客户端并关闭其发送通道
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}
	client.close()

	logger.L().Debug("websocket client unregistered", "session_id", client.sessionID)
}

// shutdown 关闭所有连接，读写 goroutine 会随之退出
func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.sessions {
		for c := range clients {
			c.conn.Close()
		}
	}
	h.sessions = make(map[string]map[*Client]struct{})
}

// PublishMessage 把消息推送给订阅了该会话的所有客户端
// 实现 service.MessagePublisher 和 cache.MessageSink
func (h *Hub) PublishMessage(_ context.Context, msg *model.Message) error {
	data, err := json.Marshal(NewEvent(TypeMessageCreated, msg))
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.sessions[msg.SessionID] {
		c.trySend(data)
	}
	return nil
}

// WatcherCount 返回正在订阅某个会话的连接数
func (h *Hub) WatcherCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
