// Package logger 提供基于 slog 的结构化日志
// 请求级别的 logger 会自动带上 request_id
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	"relay-chat-server/internal/config"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
}

// Init 根据日志配置初始化全局 logger
// 参数:
//   - cfg: 日志配置（level / format）
//   - w: 输出目标，nil 时写入标准输出
func Init(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(handler)
	defaultLogger.Store(l)
	slog.SetDefault(l)
	return l
}

// L 返回全局 logger
func L() *slog.Logger {
	return defaultLogger.Load()
}

// With 返回带有附加字段的 logger
func With(kv ...any) *slog.Logger {
	return L().With(kv...)
}

// WithRequestID 将 request_id 写入 context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestID 从 context 中取出 request_id，不存在时返回空字符串
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// FromContext 返回带 request_id 的 logger
func FromContext(ctx context.Context) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return L().With("request_id", id)
	}
	return L()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
