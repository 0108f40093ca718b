package http

import (
	"net/http"

	"github.com/dkeye/Chat/internal/adapters/ratelimit"
	"github.com/dkeye/Chat/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RateLimitMiddleware throttles REST calls per client IP. A nil pool disables it.
func RateLimitMiddleware(pool *ratelimit.Pool, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pool == nil || pool.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		m.RateLimited("http")
		log.Debug().Str("module", "adapters.http").Str("ip", c.ClientIP()).Msg("rate limited")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
	}
}
