// Package client 封装与聊天服务的 HTTP / WebSocket 交互
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"relay-chat-server/internal/model"
)

// Client API 客户端
// baseURL: 例如 http://localhost:5000
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建 API 客户端
// 超时需要覆盖服务端调用模型的时间
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError 服务端返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// ChatResult 一轮对话的结果
type ChatResult struct {
	UserMessage model.Message `json:"userMessage"`
	AIMessage   model.Message `json:"aiMessage"`
}

// Chat 发送一条消息
func (c *Client) Chat(ctx context.Context, sessionID, message string) (*ChatResult, error) {
	body := map[string]string{
		"message":   message,
		"sessionId": sessionID,
	}
	var result ChatResult
	if err := c.do(ctx, http.MethodPost, "/api/chat", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Messages 获取会话历史
func (c *Client) Messages(ctx context.Context, sessionID string) ([]model.Message, error) {
	var messages []model.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(sessionID), nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Sessions 获取所有会话 ID
func (c *Client) Sessions(ctx context.Context) ([]string, error) {
	var sessions []string
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Watch 订阅会话的新消息，每收到一条调用一次 fn，直到 ctx 结束或连接断开
func (c *Client) Watch(ctx context.Context, sessionID string, fn func(model.Message)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws/sessions/" + url.PathEscape(sessionID)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("连接 %s 失败: %w", wsURL, err)
	}
	defer conn.Close()

	// ctx 结束时关闭连接，让 ReadMessage 返回
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var evt struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(data, &evt); err != nil || evt.Type != "message:created" {
			continue
		}
		var msg model.Message
		if err := json.Unmarshal(evt.Payload, &msg); err != nil {
			continue
		}
		fn(msg)
	}
}

// do 发送请求并把 2xx 响应解码到 out
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &errBody) == nil && errBody.Error != "" {
			msg = errBody.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}
