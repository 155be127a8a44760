package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/park285/seo-pipeline-go/internal/config"
	"github.com/park285/seo-pipeline-go/internal/metrics"
	"github.com/park285/seo-pipeline-go/internal/middleware"
)

// NewRouter assembles the HTTP router.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	stats *metrics.Store,
	workflowHandler *WorkflowHandler,
	usageHandler *UsageHandler,
) *gin.Engine {
	setGinMode(cfg.Logging.Level)

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger),
		gin.Recovery(),
		gzip.Gzip(gzip.DefaultCompression),
		middleware.APIKeyAuth(cfg),
		middleware.RateLimit(cfg),
	)

	RegisterHealthRoutes(router, cfg, stats)
	workflowHandler.RegisterRoutes(router)
	usageHandler.RegisterRoutes(router)

	return router
}

func setGinMode(level string) {
	if strings.EqualFold(strings.TrimSpace(level), "debug") {
		gin.SetMode(gin.DebugMode)
		return
	}
	gin.SetMode(gin.ReleaseMode)
}
