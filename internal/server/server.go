package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/crosssite/internal/config"
	"github.com/fleveque/crosssite/internal/handler"
	"github.com/fleveque/crosssite/internal/service"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg    *config.Config
	router *gin.Engine
	logger *zap.Logger
	http   *http.Server
}

// New creates and configures a new Server. Origin configuration problems are
// logged and fall back to the permissive default; only an unusable upstream
// URL is an error.
func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set Gin mode based on log level
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	deps, err := NewDeps(cfg, logger)
	if err != nil {
		return nil, err
	}

	router := gin.New()

	// gin trusts every proxy by default, which would let any client pick its
	// own ClientIP (and rate limit bucket) through X-Forwarded-For.
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("setting trusted proxies: %w", err)
	}

	// Recovery middleware catches panics and returns 500 instead of crashing.
	router.Use(gin.Recovery())

	RegisterRoutes(router, cfg, deps, logger)

	s := &Server{
		cfg:    cfg,
		router: router,
		logger: logger,
		http: &http.Server{
			Addr:         cfg.Server.Address(),
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	return s, nil
}

// NewDeps builds the origin registry, policy, rewriter and proxy from cfg.
func NewDeps(cfg *config.Config, logger *zap.Logger) (Deps, error) {
	values, err := config.OriginValues(cfg)
	if err != nil {
		logger.Warn("could not read CORS origins file", zap.Error(err))
	}

	origins := service.NewAllowedOrigins(values, logger)
	deps := Deps{
		Policy:   service.NewPolicy(origins, service.NewClassifier(cfg.Server.ContextPath), logger),
		Rewriter: service.NewSessionCookieRewriter(cfg.CORS.SessionCookie, logger),
	}

	if cfg.Upstream.URL != "" {
		proxy, err := handler.NewProxyHandler(cfg.Upstream.URL, logger)
		if err != nil {
			return Deps{}, fmt.Errorf("creating upstream proxy: %w", err)
		}
		deps.Proxy = proxy
	}
	return deps, nil
}

// Start begins listening for HTTP requests. This blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting server",
		zap.String("address", s.cfg.Server.Address()),
		zap.String("upstream", s.cfg.Upstream.URL),
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests to complete.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.http.Shutdown(ctx)
}

// Router returns the underlying Gin engine (useful for testing).
func (s *Server) Router() *gin.Engine {
	return s.router
}
