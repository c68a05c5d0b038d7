package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anoixa/image-admin/api/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nano
}

func (cl *clientLimiter) touch() {
	cl.lastSeen.Store(time.Now().UnixNano())
}

func (cl *clientLimiter) idle() time.Duration {
	return time.Since(time.Unix(0, cl.lastSeen.Load()))
}

type IPRateLimiter struct {
	rps        float64       // 每秒请求数
	burst      int           // 令牌桶的容量
	expireTime time.Duration // 过期时间
	limiterMap *sync.Map
	stopOnce   sync.Once
	stopChan   chan struct{}
}

// NewIPRateLimiter Create new IP-based rate limits
func NewIPRateLimiter(rps float64, burst int, expireTime time.Duration) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if expireTime <= 0 {
		expireTime = 10 * time.Minute
	}
	limiter := &IPRateLimiter{
		rps:        rps,
		burst:      burst,
		expireTime: expireTime,
		limiterMap: &sync.Map{},
		stopChan:   make(chan struct{}),
	}

	go limiter.cleanupStaleClients()

	return limiter
}

func (rl *IPRateLimiter) get(ip string) *clientLimiter {
	if val, ok := rl.limiterMap.Load(ip); ok {
		return val.(*clientLimiter)
	}
	client := &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.rps), rl.burst)}
	client.touch()
	val, _ := rl.limiterMap.LoadOrStore(ip, client)
	return val.(*clientLimiter)
}

// Middleware Return a Gin middleware handler
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := rl.get(getClientIP(c))
		client.touch()

		if !client.limiter.Allow() {
			retry := 1
			if rl.rps > 0 {
				retry = int(1/rl.rps) + 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			common.RespondErrorAbort(c, http.StatusTooManyRequests,
				common.T(c, "error.too_many_requests", nil, "Too many requests, please try again later."))
			return
		}

		c.Next()
	}
}

// StopCleanup 停止后台清理，可重复调用
func (rl *IPRateLimiter) StopCleanup() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *IPRateLimiter) cleanupStaleClients() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.limiterMap.Range(func(key, value interface{}) bool {
				if value.(*clientLimiter).idle() > rl.expireTime {
					rl.limiterMap.Delete(key)
				}
				return true
			})
		case <-rl.stopChan:
			return
		}
	}
}

// getClientIP Get the client's real IP address
func getClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		first, _, _ := strings.Cut(ip, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
