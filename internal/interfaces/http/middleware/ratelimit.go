package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/interfaces/http/response"
	"golang.org/x/time/rate"
)

// RateLimitExceeded 限流提示
const RateLimitExceeded = "Rate limit exceeded"

// limiterPool 每个客户端一个令牌桶
type limiterPool struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 5
	}
	return &limiterPool{m: make(map[string]*rate.Limiter), rps: rps, burst: burst}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(p.rps), p.burst)
	p.m[key] = l
	return l
}

func (p *limiterPool) Allow(key string) bool {
	return p.get(key).Allow()
}

// RateLimit 按客户端 IP 限流，超出返回 429
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	pool := newLimiterPool(rps, burst)
	logger := log.NewModuleLogger("http", "ratelimit")
	return func(c *gin.Context) {
		key := c.ClientIP()
		if !pool.Allow(key) {
			log.FromContext(c.Request.Context(), logger).Warn("Rate limit exceeded", "client", key, "path", c.FullPath())
			response.Error(c, http.StatusTooManyRequests, RateLimitExceeded)
			return
		}
		c.Next()
	}
}
