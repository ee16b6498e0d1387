// Package server hosts the gin engine behind an http.Server.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/config"
	"github.com/pageza/foodscan/backend/internal/api"
	"github.com/pageza/foodscan/backend/internal/middleware"
	"github.com/pageza/foodscan/backend/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

// New creates a server serving analysis. rdb may be nil, which disables
// rate limiting.
func New(cfg *config.Config, analysis service.AnalysisServiceInterface, rdb redis.Cmdable, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	router.Use(
		middleware.RequestID(),
		middleware.Logger(logger.Named("http")),
		middleware.CORS(cfg.CORSOrigins),
		middleware.ErrorHandler(logger.Named("http")),
	)

	var limiter *middleware.RateLimiter
	if rdb != nil && cfg.RateLimitPerHour > 0 {
		limiter = middleware.NewAnalysisRateLimiter(rdb, cfg.RateLimitPerHour, logger.Named("rate_limit"))
	}
	api.SetupAPI(router, analysis, limiter, cfg.MaxUploadBytes, logger.Named("api"))

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}
