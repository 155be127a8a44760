package di

import (
	"fmt"

	"github.com/park285/seo-pipeline-go/internal/agents"
	"github.com/park285/seo-pipeline-go/internal/config"
	"github.com/park285/seo-pipeline-go/internal/handler"
	"github.com/park285/seo-pipeline-go/internal/metrics"
	"github.com/park285/seo-pipeline-go/internal/pipeline"
	"github.com/park285/seo-pipeline-go/internal/server"
)

// InitializeApp builds the full dependency graph and returns the App.
func InitializeApp() (*App, error) {
	cfg, err := config.ProvideConfig()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	stats := metrics.NewStore()
	registry := ProvideRegistry(cfg, logger)

	agentSet, err := agents.New(registry, cfg.Agents, logger)
	if err != nil {
		return nil, fmt.Errorf("agents: %w", err)
	}

	prices, err := cfg.LoadPriceOverrides()
	if err != nil {
		return nil, fmt.Errorf("price overrides: %w", err)
	}

	runner := pipeline.NewRunner(cfg, agentSet, prices, logger, stats)

	workflowHandler := handler.NewWorkflowHandler(runner, logger)
	usageHandler := handler.NewUsageHandler(runner, logger)

	router := handler.NewRouter(cfg, logger, stats, workflowHandler, usageHandler)
	httpServer := server.NewHTTPServer(cfg, router)

	return NewApp(httpServer, runner, logger, cfg, stats), nil
}
