// Package api exposes the node service over HTTP with gin.
//
// Routes:
//
//	GET  /                              service banner
//	GET  /health                        liveness
//	GET  /metrics                       Prometheus exposition
//	POST /api/nodes                     create node
//	POST /api/nodes/<path>/properties   set property
//	GET  /api/nodes/<path>/subtree      read subtree
//
// Node paths are multi-segment, so the node routes share one catch-all
// parameter and dispatch on the trailing segment.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/roach88/nodetree/internal/observability"
)

// DefaultServiceName is the otelgin server name.
const DefaultServiceName = "nodetree"

// Options configures NewRouter.
type Options struct {
	// RequestTimeout bounds each request context. Zero disables it.
	RequestTimeout time.Duration

	// RateLimit is the allowed requests per second. Zero disables it.
	RateLimit float64
	Burst     int

	// Metrics receives HTTP metrics. Nil disables them.
	Metrics *observability.Metrics

	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// ServiceName defaults to DefaultServiceName.
	ServiceName string
}

// NewRouter builds the gin engine serving svc.
func NewRouter(svc NodeService, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	name := opts.ServiceName
	if name == "" {
		name = DefaultServiceName
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(name))
	router.Use(RequestLogger(logger))
	if opts.Metrics != nil {
		router.Use(RequestMetrics(opts.Metrics))
	}
	if opts.RateLimit > 0 {
		router.Use(RateLimit(rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst), opts.Metrics))
	}
	if opts.RequestTimeout > 0 {
		router.Use(RequestTimeout(opts.RequestTimeout))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: msgRouteNotFound})
	})

	router.GET("/", RootHandler())
	router.GET("/health", HealthHandler())
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	nodes := router.Group("/api/nodes")
	createNode := CreateNodeHandler(svc, logger)
	nodes.POST("", createNode)
	nodes.POST("/*path", postNodePath(createNode, AddPropertyHandler(svc, logger)))
	nodes.GET("/*path", SubtreeHandler(svc, logger))

	return router
}
