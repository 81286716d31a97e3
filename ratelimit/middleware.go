package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GinMiddlewareOptions Gin 限流中间件选项
type GinMiddlewareOptions struct {
	// KeyFunc 提取限流键，默认使用客户端 IP
	KeyFunc func(*gin.Context) string
	// LimitFunc 返回本次请求的规则，必填
	LimitFunc func(*gin.Context) Limit
	// WithHeaders 是否写入 X-RateLimit-Limit 和 Retry-After
	WithHeaders bool
}

// GinMiddleware 超限时返回 429 和 {success:false, message}
//
// 限流器出错、键为空或规则无效时放行。
func GinMiddleware(limiter Limiter, opts *GinMiddlewareOptions) gin.HandlerFunc {
	if opts == nil || opts.LimitFunc == nil {
		return func(c *gin.Context) { c.Next() }
	}
	keyFunc := opts.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}

	return func(c *gin.Context) {
		key := keyFunc(c)
		limit := opts.LimitFunc(c)
		if key == "" || !limit.Valid() {
			c.Next()
			return
		}

		if opts.WithHeaders {
			c.Header("X-RateLimit-Limit", strconv.FormatFloat(limit.Rate, 'f', -1, 64))
		}

		allowed, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil || allowed {
			c.Next()
			return
		}

		if opts.WithHeaders {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(limit)))
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"message": "rate limit exceeded",
		})
	}
}

// retryAfterSeconds 补充一个令牌所需的秒数，向上取整
func retryAfterSeconds(limit Limit) int {
	return int(math.Ceil(1 / limit.Rate))
}
