// Package di wires the application together.
package di

import (
	"log/slog"
	"net/http"

	"github.com/park285/seo-pipeline-go/internal/config"
	"github.com/park285/seo-pipeline-go/internal/metrics"
	"github.com/park285/seo-pipeline-go/internal/pipeline"
)

// App bundles the application components.
type App struct {
	Server *http.Server
	Runner *pipeline.Runner
	Logger *slog.Logger
	Config *config.Config
	Stats  *metrics.Store
}

// NewApp builds the App container.
func NewApp(
	server *http.Server,
	runner *pipeline.Runner,
	logger *slog.Logger,
	cfg *config.Config,
	stats *metrics.Store,
) *App {
	return &App{
		Server: server,
		Runner: runner,
		Logger: logger,
		Config: cfg,
		Stats:  stats,
	}
}
