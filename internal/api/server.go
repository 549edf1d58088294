// Package api exposes the event engine over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/firmachain/nft-event-server/internal/event"
	"github.com/firmachain/nft-event-server/internal/metrics"
	"github.com/firmachain/nft-event-server/internal/middleware"
	"github.com/firmachain/nft-event-server/pkg/logger"
)

// Options configures the HTTP surface.
type Options struct {
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	// Requests per second per client IP; zero disables the limiter.
	RateLimit      int
	RateLimitBurst int
}

// Server handles the event HTTP API.
type Server struct {
	engine *event.Engine
	log    *logger.Logger
}

// NewRouter builds the gin engine with all event routes mounted.
func NewRouter(engine *event.Engine, log *logger.Logger, opts Options) *gin.Engine {
	s := &Server{engine: engine, log: log}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Metrics(opts.Metrics))
	if opts.RateLimit > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = opts.RateLimit
		}
		router.Use(middleware.NewRateLimiter(opts.RateLimit, burst, log).Handler())
	}

	router.GET("/health", s.health)
	if opts.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	eventGroup := router.Group("/event")
	{
		eventGroup.GET("/requests/:requestKey", s.getRequest)
		eventGroup.GET("/users/:signer", s.getUser)
		eventGroup.POST("/sign/login", s.postSignLogin)
		eventGroup.POST("/sign/play", s.postSignPlay)
		eventGroup.POST("/sign/reward", s.postSignReward)
		eventGroup.POST("/callback", s.postCallback)
		eventGroup.POST("/verify", s.postVerify)
		eventGroup.GET("/nft", s.getNftList)
		eventGroup.GET("/nft/:nftId", s.getNftMetadata)
	}

	return router
}

// NewMetricsRouter serves only health and metrics, for processes
// without a public API surface.
func NewMetricsRouter(registry *prometheus.Registry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	return router
}
