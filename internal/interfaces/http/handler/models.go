package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ModelLister 模型注册表，*provider.Registry 实现该接口
type ModelLister interface {
	List() []string
	HealthCheck(ctx context.Context) map[string]bool
}

// ModelsHandler 模型列表处理器
type ModelsHandler struct {
	registry ModelLister
}

// NewModelsHandler 创建模型处理器
func NewModelsHandler(registry ModelLister) *ModelsHandler {
	return &ModelsHandler{registry: registry}
}

// ModelsResponse 模型列表响应
type ModelsResponse struct {
	Models []string        `json:"models"`
	Health map[string]bool `json:"health,omitempty"`
}

// List 列出已注册模型，health=true 时附带供应商健康状态
// GET /api/models
func (h *ModelsHandler) List(c *gin.Context) {
	resp := ModelsResponse{Models: h.registry.List()}
	if c.Query("health") == "true" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		resp.Health = h.registry.HealthCheck(ctx)
	}
	c.JSON(http.StatusOK, resp)
}
