package core

import (
	"context"
	"net/http"
	"time"

	"github.com/anoixa/image-admin/config"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// HealthChecker 返回各依赖的状态，"ok" 表示正常
type HealthChecker interface {
	Health(ctx context.Context) map[string]string
}

// HealthHandler 健康检查
type HealthHandler struct {
	checker HealthChecker
	timeout time.Duration
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker, timeout: 3 * time.Second}
}

// Handle GET /health
func (h *HealthHandler) Handle(c *gin.Context) {
	checks := map[string]string{}
	if h.checker != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		checks = h.checker.Health(ctx)
	}

	status := "ok"
	httpStatus := http.StatusOK
	for _, result := range checks {
		if result != "ok" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":  status,
		"uptime":  time.Since(startTime).Round(time.Second).String(),
		"version": config.Version,
		"checks":  checks,
	})
}
