package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck returns the health status of the API
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Food Analysis API is running",
	})
}

// RegisterRoutes registers all API routes
func RegisterRoutes(router *gin.Engine, analysis *AnalysisHandler) {
	router.GET("/health", HealthCheck)

	api := router.Group("/api")
	api.GET("/health", HealthCheck)
	analysis.RegisterRoutes(api)
}
