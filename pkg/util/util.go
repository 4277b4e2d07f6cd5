// Package util 提供通用工具函数
package util

import (
	"github.com/google/uuid"
)

// GenerateRequestID 生成请求 ID
// 使用 Google 的 uuid 库生成 UUID v4
func GenerateRequestID() string {
	return uuid.NewString()
}

// TruncateString 截断字符串到指定长度
// 如果字符串超过指定长度，截断并添加 "..."
// 按 rune 截断，不会切断多字节字符
// 参数:
//   - s: 原字符串
//   - maxLen: 最大长度（字符数）
//
// 返回:
//   - string: 截断后的字符串
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
