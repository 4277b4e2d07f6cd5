// Package response 提供统一的 HTTP 响应格式
// 成功时直接返回数据本身，失败时返回 {"error": "..."}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 对外暴露的错误信息
const (
	MsgInvalidRequest = "Invalid request"
	MsgAIFailure      = "Failed to get AI response"
	MsgInternalError  = "Internal server error"
	MsgRouteNotFound  = "Not found"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error string `json:"error"`
}

// Success 返回 200 和数据
// 参数:
//   - c: Gin 上下文
//   - data: 响应数据，原样序列化
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Error 返回错误响应
// 参数:
//   - c: Gin 上下文
//   - httpCode: HTTP 状态码
//   - message: 错误信息
func Error(c *gin.Context, httpCode int, message string) {
	c.AbortWithStatusJSON(httpCode, ErrorResponse{Error: message})
}

// BadRequest 返回 400 错误（请求参数错误）
func BadRequest(c *gin.Context) {
	Error(c, http.StatusBadRequest, MsgInvalidRequest)
}

// AIFailure 返回 500 错误（模型调用失败）
func AIFailure(c *gin.Context) {
	Error(c, http.StatusInternalServerError, MsgAIFailure)
}

// InternalError 返回 500 错误（服务器内部错误）
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, MsgInternalError)
}

// NotFound 返回 404 错误（路由不存在）
func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, MsgRouteNotFound)
}
