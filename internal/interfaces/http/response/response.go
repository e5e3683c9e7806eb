package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应，字段名与前端约定一致
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MessageResponse 仅含提示信息的响应
type MessageResponse struct {
	Message string `json:"message"`
}

// ListResponse 列表响应
type ListResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
}

// Error 错误响应
func Error(c *gin.Context, httpCode int, detail string) {
	c.AbortWithStatusJSON(httpCode, ErrorResponse{Detail: detail})
}

// Message 提示信息响应
func Message(c *gin.Context, httpCode int, message string) {
	c.JSON(httpCode, MessageResponse{Message: message})
}

// List 列表响应
func List(c *gin.Context, httpCode int, items any, count int) {
	c.JSON(httpCode, ListResponse{Items: items, Count: count})
}
