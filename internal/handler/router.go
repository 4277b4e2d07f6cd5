package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"relay-chat-server/pkg/response"
)

// RegisterRoutes 注册所有 HTTP API 路由
func RegisterRoutes(router *gin.Engine, chatHandler *ChatHandler, sessionHandler *SessionHandler) {
	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/messages/:sessionId", sessionHandler.GetMessages)
		api.GET("/sessions", sessionHandler.ListSessions)
		api.POST("/chat", chatHandler.Chat)
	}

	router.NoRoute(response.NotFound)
}
