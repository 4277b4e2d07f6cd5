package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"relay-chat-server/internal/logger"
	"relay-chat-server/internal/service"
	"relay-chat-server/pkg/response"
)

// ChatHandler 对话请求处理器
type ChatHandler struct {
	chatService *service.ChatService
}

// NewChatHandler 创建 ChatHandler 实例
func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// chatRequest 请求体
// 字段类型不对（如 message 是数字）在绑定阶段就会失败
// sessionId 只要求出现，空字符串也是合法的会话
type chatRequest struct {
	Message   string  `json:"message" binding:"required"`
	SessionID *string `json:"sessionId" binding:"required"`
}

// Chat 发送一条消息并获取 AI 回复
// @Summary 发送消息
// @Description 保存用户消息，调用模型，保存并返回回复
// @Tags 对话
// @Accept json
// @Produce json
// @Param body body chatRequest true "消息内容和会话ID"
// @Success 200 {object} service.ChatResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 500 {object} response.ErrorResponse
// @Router /api/chat [post]
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c)
		return
	}

	ctx := c.Request.Context()
	result, err := h.chatService.Chat(ctx, &service.ChatRequest{
		Message:   req.Message,
		SessionID: *req.SessionID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			response.BadRequest(c)
		case errors.Is(err, service.ErrProviderFailure):
			// 已在 service 层记录
			response.AIFailure(c)
		default:
			logger.FromContext(ctx).Error("chat failed", "session_id", *req.SessionID, "error", err)
			response.InternalError(c)
		}
		return
	}

	response.Success(c, result)
}
