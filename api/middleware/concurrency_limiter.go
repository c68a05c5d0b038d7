package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/anoixa/image-admin/api/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter 全局并发上限
type ConcurrencyLimiter struct {
	sem        *semaphore.Weighted
	retryAfter time.Duration
}

// NewConcurrencyLimiter 并发限制器
func NewConcurrencyLimiter(maxConcurrency int64) *ConcurrencyLimiter {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &ConcurrencyLimiter{
		sem:        semaphore.NewWeighted(maxConcurrency),
		retryAfter: time.Second,
	}
}

func (cl *ConcurrencyLimiter) reject(c *gin.Context) {
	c.Header("Retry-After", strconv.Itoa(int(cl.retryAfter.Seconds())))
	common.RespondErrorAbort(c, http.StatusServiceUnavailable,
		common.T(c, "error.server_busy", nil, "Server is busy, please try again later."))
}

// Middleware 超过上限立即返回 503
func (cl *ConcurrencyLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cl.sem.TryAcquire(1) {
			cl.reject(c)
			return
		}
		defer cl.sem.Release(1)

		c.Next()
	}
}

// MiddlewareWithBlock 最多等待 timeout，用于缩略图等耗时接口
func (cl *ConcurrencyLimiter) MiddlewareWithBlock(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		if err := cl.sem.Acquire(ctx, 1); err != nil {
			cl.reject(c)
			return
		}
		defer cl.sem.Release(1)

		c.Next()
	}
}
