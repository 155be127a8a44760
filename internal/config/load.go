package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/park285/seo-pipeline-go/internal/ledger"
	"github.com/park285/seo-pipeline-go/internal/llm"
)

var (
	configOnce  sync.Once
	configValue *Config
)

// Load reads environment-based configuration once and caches it.
func Load() *Config {
	configOnce.Do(func() {
		_ = godotenv.Load()
		configValue = buildConfig()
	})
	return configValue
}

// ProvideConfig loads and validates the configuration.
func ProvideConfig() (*Config, error) {
	cfg := Load()
	if cfg == nil {
		return nil, errors.New("config not initialized")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	agents := []AgentConfig{c.Agents.Research, c.Agents.Brief, c.Agents.Facts, c.Agents.Content}
	for _, agent := range agents {
		if agent.Model == "" {
			return fmt.Errorf("agent model missing for provider %s", agent.Provider)
		}
	}
	if c.Pipeline.ConcurrentWorkflows < 1 {
		return fmt.Errorf("concurrent workflows must be at least 1: %d", c.Pipeline.ConcurrentWorkflows)
	}
	if c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("backoff factor must be at least 1: %f", c.Retry.BackoffFactor)
	}
	return nil
}

// LoadPriceOverrides reads the optional pricing override file. A missing or
// unset file yields an empty table; entries merge over the built-in defaults.
func (c *Config) LoadPriceOverrides() (ledger.PriceTable, error) {
	if c == nil || c.Pricing.OverridesFile == "" {
		return nil, nil
	}
	payload, err := os.ReadFile(c.Pricing.OverridesFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pricing overrides: %w", err)
	}

	raw := make(map[string]map[string]ledger.ModelPrice)
	if err := yaml.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parse pricing overrides: %w", err)
	}

	table := make(ledger.PriceTable, len(raw))
	for provider, models := range raw {
		table[llm.Provider(provider)] = models
	}
	return table, nil
}

// LogEnvStatus logs a redacted view of the loaded configuration.
func LogEnvStatus(cfg *Config, logger *slog.Logger) {
	if logger == nil || cfg == nil {
		return
	}

	logger.Debug(
		"env_status",
		"env_file", fileExists(".env"),
		"openai_key", maskSecret(cfg.Providers.OpenAIKey),
		"anthropic_key", maskSecret(cfg.Providers.AnthropicKey),
		"research_model", cfg.Agents.Research.Model,
		"content_model", cfg.Agents.Content.Model,
		"concurrent_workflows", cfg.Pipeline.ConcurrentWorkflows,
		"stage_timeout", cfg.Pipeline.StageTimeout,
		"max_retries", cfg.Retry.MaxRetries,
	)
}

func buildConfig() *Config {
	return &Config{
		Agents: AgentsConfig{
			Research: agentFromEnv("RESEARCH", llm.ProviderOpenAI, "gpt-4o", 0.3, 4096),
			Brief:    agentFromEnv("BRIEF", llm.ProviderAnthropic, "claude-3.5-sonnet", 0.5, 4096),
			Facts:    agentFromEnv("FACTS", llm.ProviderDeepSeek, "deepseek-chat", 0.2, 4096),
			Content:  agentFromEnv("CONTENT", llm.ProviderAnthropic, "claude-3.5-sonnet", 0.7, 8192),
		},
		Retry: RetryConfig{
			MaxRetries:    max(0, getEnvInt("MAX_RETRIES", 3)),
			InitialDelay:  time.Duration(getEnvFloat("RETRY_INITIAL_DELAY_SECONDS", 1.0) * float64(time.Second)),
			BackoffFactor: getEnvFloat("RETRY_BACKOFF_FACTOR", 2.0),
			MaxDelay:      time.Duration(getEnvFloat("RETRY_MAX_DELAY_SECONDS", 60.0) * float64(time.Second)),
		},
		Pipeline: PipelineConfig{
			ConcurrentWorkflows: max(1, getEnvInt("CONCURRENT_WORKFLOWS", 5)),
			StageTimeout:        time.Duration(getEnvInt("TIMEOUT_SECONDS", 300)) * time.Second,
			CacheResults:        getEnvBool("CACHE_RESULTS", true),
			CacheTTL:            time.Duration(getEnvInt("CACHE_TTL_HOURS", 24)) * time.Hour,
			CacheMaxEntries:     max(1, getEnvInt("CACHE_MAX_ENTRIES", 100)),
		},
		Providers: ProvidersConfig{
			OpenAIKey:     getEnvString("OPENAI_API_KEY", ""),
			AnthropicKey:  getEnvString("ANTHROPIC_API_KEY", ""),
			DeepSeekKey:   getEnvString("DEEPSEEK_API_KEY", ""),
			XAIKey:        getEnvString("XAI_API_KEY", ""),
			OpenRouterKey: getEnvString("OPENROUTER_API_KEY", ""),
			Timeout:       time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Pricing: PricingConfig{
			OverridesFile: getEnvString("PRICING_OVERRIDES_FILE", ""),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			LogDir:     getEnvString("LOG_DIR", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 28),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		HTTP: HTTPConfig{
			Host:         getEnvString("HOST", "0.0.0.0"),
			Port:         getEnvInt("PORT", 8000),
			HTTP2Enabled: getEnvBool("HTTP2_ENABLED", false),
		},
		HTTPAuth: HTTPAuthConfig{
			APIKeys:  splitList(getEnvString("API_KEYS", "")),
			Required: getEnvBool("AUTH_REQUIRED", false),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvInt("HTTP_RATE_LIMIT_PER_MINUTE", 0),
			CacheSize:         getEnvInt("HTTP_RATE_LIMIT_CACHE_SIZE", 2048),
			CacheTTL:          time.Duration(getEnvInt("HTTP_RATE_LIMIT_CACHE_TTL_SECONDS", 120)) * time.Second,
		},
	}
}

func agentFromEnv(prefix string, defProvider llm.Provider, defModel string, defTemperature float64, defMaxTokens int) AgentConfig {
	return AgentConfig{
		Provider:    llm.Provider(getEnvString(prefix+"_PROVIDER", string(defProvider))),
		Model:       getEnvString(prefix+"_MODEL", defModel),
		Temperature: getEnvFloat(prefix+"_TEMPERATURE", defTemperature),
		MaxTokens:   getEnvInt(prefix+"_MAX_TOKENS", defMaxTokens),
	}
}
