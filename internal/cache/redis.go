// Package cache 提供 Redis 操作的封装
// 用作消息事件总线：多个服务实例之间同步新消息
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"relay-chat-server/internal/config"
	"relay-chat-server/internal/logger"
	"relay-chat-server/internal/model"
)

// 频道命名
const (
	sessionChannelPrefix  = "chat:session:"
	sessionChannelPattern = sessionChannelPrefix + "*"
)

// MessageSink 接收从 Redis 收到的消息
type MessageSink interface {
	PublishMessage(ctx context.Context, msg *model.Message) error
}

// RedisCache 封装 Redis 客户端
type RedisCache struct {
	client *redis.Client // Redis 客户端实例
}

// NewRedisCache 创建 RedisCache 实例
// 参数:
//   - cfg: 应用配置（包含 Redis 连接信息）
//
// 返回:
//   - *RedisCache: 缓存实例
//   - error: 连接错误
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisCacheFromClient(client), nil
}

// NewRedisCacheFromClient 使用已有客户端创建 RedisCache
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping 检查 Redis 连接
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ==================== 消息广播 ====================

// SessionChannel 返回会话对应的频道名
func SessionChannel(sessionID string) string {
	return sessionChannelPrefix + sessionID
}

// PublishMessage 发布新消息到会话频道
// 所有订阅了该频道的服务实例都会收到
// 参数:
//   - ctx: 上下文
//   - msg: 已保存的消息
//
// 返回:
//   - error: 序列化或 Redis 操作错误
func (c *RedisCache) PublishMessage(ctx context.Context, msg *model.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, SessionChannel(msg.SessionID), data).Err()
}

// SubscribeMessages 订阅所有会话频道
// 返回 PubSub 对象，调用方负责关闭
func (c *RedisCache) SubscribeMessages(ctx context.Context) *redis.PubSub {
	return c.client.PSubscribe(ctx, sessionChannelPattern)
}

// RelayMessages 把 Redis 上的新消息转发给 sink，直到 ctx 结束
// 参数:
//   - ctx: 控制订阅生命周期
//   - sink: 接收方（通常是 WebSocket Hub）
//
// 返回:
//   - error: 订阅失败；ctx 结束时返回 nil
func (c *RedisCache) RelayMessages(ctx context.Context, sink MessageSink) error {
	pubsub := c.SubscribeMessages(ctx)
	defer pubsub.Close()

	// 等待订阅确认，确保之后发布的消息不会丢
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", sessionChannelPattern, err)
	}

	log := logger.With("component", "redis_relay")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}

			var msg model.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				log.Warn("drop malformed message event", "channel", m.Channel, "error", err)
				continue
			}
			if msg.SessionID == "" {
				msg.SessionID = strings.TrimPrefix(m.Channel, sessionChannelPrefix)
			}

			if err := sink.PublishMessage(ctx, &msg); err != nil {
				log.Warn("relay message failed", "session_id", msg.SessionID, "message_id", msg.ID, "error", err)
			}
		}
	}
}
