// router/router.go

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/config"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/controller"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/metrics"
	"github.com/jk-nd/noumena-mcp-gateway-poc-sub001/middleware"
)

// Options carries the settings the router needs beyond the controllers.
type Options struct {
	Auth              config.AuthConfiguration
	RedisClient       redis.Cmdable
	RateLimitRequests int
	RateLimitDuration time.Duration
}

func SetupRouter(controllers *controller.Controllers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1")

	gateway := api.Group("", authFor(opts.Auth, opts.Auth.GatewayGroup, opts.Auth.AdminGroup)...)
	controllers.Decision.RegisterRoutes(gateway)
	controllers.Credential.RegisterRoutes(gateway)
	controllers.Snapshot.RegisterRoutes(gateway)

	approver := api.Group("", authFor(opts.Auth, opts.Auth.ApproverGroup, opts.Auth.AdminGroup)...)
	approver.Use(middleware.RateLimiter(opts.RedisClient, opts.RateLimitRequests, opts.RateLimitDuration))
	controllers.Approval.RegisterRoutes(approver)

	admin := api.Group("", authFor(opts.Auth, opts.Auth.AdminGroup)...)
	admin.Use(middleware.RateLimiter(opts.RedisClient, opts.RateLimitRequests, opts.RateLimitDuration))
	controllers.Credential.RegisterAdminRoutes(admin)
	controllers.Audit.RegisterRoutes(admin)
	if controllers.Policy != nil {
		controllers.Policy.RegisterRoutes(admin)
	}

	return router
}

func authFor(auth config.AuthConfiguration, groups ...string) []gin.HandlerFunc {
	if !auth.Enabled {
		return nil
	}
	return []gin.HandlerFunc{middleware.ClaimsAuth([]byte(auth.HMACSecret), groups...)}
}
