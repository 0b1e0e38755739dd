// 包 middleware：入口级 HTTP 中间件（限流、管理接口准入）
package middleware

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"spot-api/internal/logger"
)

// 文档注释：令牌桶限流
// 背景：单进程服务直接面向客户端，突发请求会让文件或 SQLite 后端排队；按环境变量开关与速率配置。
// 约束：每秒补充 qps 个令牌，桶容量为 qps；不做排队，超限直接返回 429。
type TokenBucket struct {
	lim *rate.Limiter
	now func() time.Time
}

// NewTokenBucket：qps 非正时取 200
func NewTokenBucket(qps int) *TokenBucket {
	if qps <= 0 {
		qps = 200
	}
	return &TokenBucket{lim: rate.NewLimiter(rate.Limit(qps), qps), now: time.Now}
}

func (tb *TokenBucket) Allow() bool {
	return tb.lim.AllowN(tb.now(), 1)
}

// RateLimit：tb 为 nil 时不限流
func RateLimit(tb *TokenBucket) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tb == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !tb.Allow() {
				logger.L().Debug("rate_limited", "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
