package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"relay-chat-server/internal/logger"
)

// 连接配置常量
const (
	// 写超时时间
	writeWait = 10 * time.Second

	// 等待 Pong 响应的超时时间
	pongWait = 60 * time.Second

	// 发送 Ping 的间隔（必须小于 pongWait）
	pingPeriod = (pongWait * 9) / 10

	// 客户端只发心跳，消息很小
	maxMessageSize = 4 * 1024

	// 发送缓冲区大小
	sendBufferSize = 64
)

// Client 表示一个订阅了某个会话的 WebSocket 连接
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte // 待发送的数据
	sessionID string      // 订阅的会话
	closeOnce sync.Once
}

// NewClient 创建新的客户端
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		sessionID: sessionID,
	}
}

// ReadPump 读取客户端消息
// 连接断开或读超时后注销客户端
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	// 每次收到 Pong，重置读取超时
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	log := logger.With("session_id", c.sessionID)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("websocket read error", "error", err)
			}
			return
		}

		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			c.SendEvent(NewEvent(TypeError, &ErrorPayload{Message: "invalid event"}))
			continue
		}

		switch evt.Type {
		case TypeHeartbeat:
			// 重置读取超时并回复 Pong
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
			c.SendEvent(NewEvent(TypePong, nil))
		default:
			c.SendEvent(NewEvent(TypeError, &ErrorPayload{Message: "unsupported event type: " + evt.Type}))
		}
	}
}

// WritePump 把 send 通道中的数据写入连接，并定时发送 Ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendEvent 序列化并发送事件
func (c *Client) SendEvent(evt *Event) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend 非阻塞发送，缓冲区满时丢弃
// 调用方保证通道未关闭：Hub 在持有读锁时发送，关闭通道需要写锁
func (c *Client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		logger.L().Warn("client send buffer full, dropping event", "session_id", c.sessionID)
		return false
	}
}

// close 关闭发送通道，只执行一次
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
