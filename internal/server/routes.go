// Package server configures the HTTP server and routes.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/crosssite/internal/config"
	"github.com/fleveque/crosssite/internal/handler"
	"github.com/fleveque/crosssite/internal/middleware"
	"github.com/fleveque/crosssite/internal/service"
)

// Deps holds what the routes need, built once in New.
type Deps struct {
	Policy   *service.Policy
	Rewriter *service.SessionCookieRewriter
	Proxy    *handler.ProxyHandler // nil when no upstream is configured
}

// RegisterRoutes sets up middleware and routes on the Gin engine.
// In Go, we pass dependencies explicitly — no DI container, no magic.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	// Engine-level middleware also runs for NoRoute, i.e. for proxied traffic.
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(deps.Policy, deps.Rewriter, logger))

	healthHandler := handler.NewHealthHandler(deps.Policy.Origins(), cfg.Upstream.URL)
	r.GET("/healthz", healthHandler.Healthz)

	if deps.Proxy == nil {
		return
	}
	// The rate limiter sits after CORS, so preflights terminate before it.
	r.NoRoute(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst), deps.Proxy.Forward)
}
