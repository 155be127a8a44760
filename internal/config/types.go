package config

import (
	"time"

	"github.com/park285/seo-pipeline-go/internal/llm"
)

// AgentConfig configures one pipeline stage's model call.
type AgentConfig struct {
	Provider    llm.Provider
	Model       string
	Temperature float64
	MaxTokens   int
}

// AgentsConfig holds the per-stage agent configuration.
type AgentsConfig struct {
	Research AgentConfig
	Brief    AgentConfig
	Facts    AgentConfig
	Content  AgentConfig
}

// ForStage returns the agent configuration for a stage name.
func (a AgentsConfig) ForStage(stage string) AgentConfig {
	switch stage {
	case "research":
		return a.Research
	case "brief":
		return a.Brief
	case "facts":
		return a.Facts
	case "content":
		return a.Content
	default:
		return a.Research
	}
}

// RetryConfig controls the per-stage retry policy for transient errors.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	BackoffFactor float64
	MaxDelay      time.Duration
}

// PipelineConfig controls workflow execution.
type PipelineConfig struct {
	ConcurrentWorkflows int
	StageTimeout        time.Duration
	CacheResults        bool
	CacheTTL            time.Duration
	CacheMaxEntries     int
}

// ProvidersConfig holds per-provider credentials and call timeout.
type ProvidersConfig struct {
	OpenAIKey     string
	AnthropicKey  string
	DeepSeekKey   string
	XAIKey        string
	OpenRouterKey string
	Timeout       time.Duration
}

// Key returns the API key for a provider.
func (p ProvidersConfig) Key(provider llm.Provider) string {
	switch provider {
	case llm.ProviderOpenAI:
		return p.OpenAIKey
	case llm.ProviderAnthropic:
		return p.AnthropicKey
	case llm.ProviderDeepSeek:
		return p.DeepSeekKey
	case llm.ProviderXAI:
		return p.XAIKey
	case llm.ProviderOpenRouter:
		return p.OpenRouterKey
	default:
		return ""
	}
}

// PricingConfig points at optional price-table overrides.
type PricingConfig struct {
	OverridesFile string
}

// LoggingConfig configures slog output and rotation.
type LoggingConfig struct {
	Level      string
	LogDir     string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Host         string
	Port         int
	HTTP2Enabled bool
}

// HTTPAuthConfig configures API key auth.
type HTTPAuthConfig struct {
	APIKeys  []string
	Required bool
}

// RateLimitConfig configures per-client HTTP rate limiting. A zero
// RequestsPerMinute disables the limiter.
type RateLimitConfig struct {
	RequestsPerMinute int
	CacheSize         int
	CacheTTL          time.Duration
}

// Config is the full application configuration.
type Config struct {
	Agents    AgentsConfig
	Retry     RetryConfig
	Pipeline  PipelineConfig
	Providers ProvidersConfig
	Pricing   PricingConfig
	Logging   LoggingConfig
	HTTP      HTTPConfig
	HTTPAuth  HTTPAuthConfig
	RateLimit RateLimitConfig
}
