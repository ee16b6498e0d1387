package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/foodscan/backend/internal/middleware"
	"github.com/pageza/foodscan/backend/internal/service"
)

// SetupAPI registers the liveness probe and the analysis routes.
// rateLimiter may be nil.
func SetupAPI(router *gin.Engine, analysis service.AnalysisServiceInterface, rateLimiter *middleware.RateLimiter, maxUpload int64, logger *zap.Logger) {
	RegisterRoutes(router, NewAnalysisHandler(analysis, rateLimiter, maxUpload, logger))
}
