// Package server exposes the analysis core over HTTP. The surface is
// deliberately small: one analyze endpoint and a health probe, behind
// request-id, logging and rate-limit middleware.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
	"github.com/gramo-ai/gramo-cli/internal/config"
	"github.com/gramo-ai/gramo-cli/internal/ratelimit"
)

const requestIDKey = "request_id"

// Analyzer is the slice of the analysis core the server needs.
type Analyzer interface {
	Analyze(ctx context.Context, req schemas.AnalysisRequest) (schemas.UnifiedAnalysisResult, error)
}

// Server wraps the gin engine and its HTTP listener.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	logger *zap.Logger
}

// New builds the server around the given analyzer. A nil limiter
// disables API rate limiting.
func New(cfg config.ServerConfig, analyzer Analyzer, limiter *ratelimit.TokenBucket, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	logger = logger.Named("server")
	engine.Use(gin.Recovery())
	engine.Use(requestIDMiddleware())
	engine.Use(requestLogMiddleware(logger))

	registerRoutes(engine, analyzer, limiter, logger)

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:         cfg.Addr,
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe blocks serving HTTP until the listener fails or
// Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP API listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

func requestLogMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDKey)),
		)
	}
}
