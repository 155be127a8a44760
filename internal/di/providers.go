package di

import (
	"fmt"
	"log/slog"

	"github.com/park285/seo-pipeline-go/internal/config"
	"github.com/park285/seo-pipeline-go/internal/llm"
	"github.com/park285/seo-pipeline-go/internal/logging"
)

// ProvideLogger builds the configured logger.
func ProvideLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

// ProvideRegistry builds one client per provider with a configured API
// key. Providers without keys are left out; the health endpoint reports
// them and stage calls against them fail with a clear error.
func ProvideRegistry(cfg *config.Config, logger *slog.Logger) *llm.Registry {
	timeout := cfg.Providers.Timeout
	var clients []llm.Client

	for _, provider := range llm.KnownProviders() {
		key := cfg.Providers.Key(provider)
		if key == "" {
			continue
		}
		if provider == llm.ProviderAnthropic {
			clients = append(clients, llm.NewAnthropicClient(key, timeout))
		} else {
			clients = append(clients, llm.NewChatClient(provider, key, timeout))
		}
	}

	registry := llm.NewRegistry(clients...)
	logger.Info("llm_clients_ready", "providers", registry.Providers())
	return registry
}
