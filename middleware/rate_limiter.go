// middleware/rate_limiter.go

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/db"
	logger "github.com/jk-nd/noumena-mcp-gateway-poc-sub001/logging"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/util"
)

// RateLimiter limits requests per authenticated identity, or per client IP
// before authentication. A nil client disables limiting.
func RateLimiter(client redis.Cmdable, limit int, per time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || limit <= 0 {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if identity := util.GetIdentityFromContext(c); identity != "" {
			key = "id:" + identity
		}

		allowed, err := db.RateLimit(c, client, key, limit, per)
		if err != nil {
			// Fails open.
			logger.Error("Rate limiting failed", zap.Error(err), zap.String("key", key))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Duration", per.String())

		if !allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.Int("limit", limit),
				zap.Duration("per", per))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
