package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/park285/seo-pipeline-go/internal/config"
	"github.com/park285/seo-pipeline-go/internal/health"
	"github.com/park285/seo-pipeline-go/internal/metrics"
)

// RegisterHealthRoutes mounts the health and metrics endpoints.
func RegisterHealthRoutes(router *gin.Engine, cfg *config.Config, stats *metrics.Store) {
	router.GET("/health", func(c *gin.Context) {
		response := health.Collect(cfg)
		status := http.StatusOK
		if response.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, response)
	})

	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, stats.Snapshot())
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
