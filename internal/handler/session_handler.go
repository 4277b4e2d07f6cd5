// Package handler 提供 HTTP 请求处理器
package handler

import (
	"github.com/gin-gonic/gin"

	"relay-chat-server/internal/logger"
	"relay-chat-server/internal/service"
	"relay-chat-server/pkg/response"
)

// SessionHandler 会话请求处理器
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler 创建 SessionHandler 实例
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// GetMessages 获取会话的消息历史
// @Summary 获取会话消息
// @Description 按时间正序返回会话的全部消息，未知会话返回空数组
// @Tags 会话
// @Produce json
// @Param sessionId path string true "会话ID"
// @Success 200 {array} model.Message
// @Router /api/messages/{sessionId} [get]
func (h *SessionHandler) GetMessages(c *gin.Context) {
	ctx := c.Request.Context()
	sessionID := c.Param("sessionId")

	messages, err := h.sessionService.GetMessages(ctx, sessionID)
	if err != nil {
		logger.FromContext(ctx).Error("get messages failed", "session_id", sessionID, "error", err)
		response.InternalError(c)
		return
	}

	response.Success(c, messages)
}

// ListSessions 获取所有会话 ID
// @Summary 获取会话列表
// @Description 返回出现过的会话ID，按首次出现顺序
// @Tags 会话
// @Produce json
// @Success 200 {array} string
// @Router /api/sessions [get]
func (h *SessionHandler) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()

	sessions, err := h.sessionService.ListSessions(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("list sessions failed", "error", err)
		response.InternalError(c)
		return
	}

	response.Success(c, sessions)
}
