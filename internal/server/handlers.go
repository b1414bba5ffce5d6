package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gramo-ai/gramo-cli/api/schemas"
	"github.com/gramo-ai/gramo-cli/internal/ratelimit"
)

func registerRoutes(engine *gin.Engine, analyzer Analyzer, limiter *ratelimit.TokenBucket, logger *zap.Logger) {
	v1 := engine.Group("/api/v1/text")

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	v1.POST("/analyze", func(c *gin.Context) {
		if limiter != nil && !limiter.Allow(1) {
			writeError(c, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
			return
		}

		var req schemas.AnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
			return
		}

		// Defaults mirror the CLI: professional style, all roles.
		if req.OutputStyle == "" {
			req.OutputStyle = schemas.StyleProfessional
		}
		if len(req.FocusAreas) == 0 {
			req.FocusAreas = append([]schemas.Role(nil), schemas.RoleOrder...)
		}

		result, err := analyzer.Analyze(c.Request.Context(), req)
		if err != nil {
			handleAnalyzeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, result)
	})
}

func handleAnalyzeError(c *gin.Context, logger *zap.Logger, err error) {
	logger.Error("analysis failed",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.Error(err),
	)

	var precondition *schemas.PreconditionError
	var rateLimited *schemas.RateLimitError
	var provider *schemas.ProviderError

	switch {
	case errors.As(err, &precondition):
		writeError(c, http.StatusBadRequest, "invalid_request", precondition.Reason)
	case errors.As(err, &rateLimited):
		writeError(c, http.StatusTooManyRequests, "rate_limited", rateLimited.Error())
	case errors.As(err, &provider):
		writeError(c, http.StatusBadGateway, "provider_error", "the model backend rejected the request")
	case schemas.IsTransient(err) || errors.Is(err, schemas.ErrRetryBudgetExhausted):
		writeError(c, http.StatusServiceUnavailable, "backend_unavailable", "the model backend is unavailable, try again shortly")
	default:
		writeError(c, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": code, "message": message},
	})
}
