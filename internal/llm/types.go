package llm

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderDeepSeek   Provider = "deepseek"
	ProviderXAI        Provider = "xai"
	ProviderOpenRouter Provider = "openrouter"
)

// KnownProviders lists the providers with built-in pricing and transports.
func KnownProviders() []Provider {
	return []Provider{
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderDeepSeek,
		ProviderXAI,
		ProviderOpenRouter,
	}
}

// Known reports whether the provider is one of the built-in set.
func (p Provider) Known() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderDeepSeek, ProviderXAI, ProviderOpenRouter:
		return true
	default:
		return false
	}
}

// Usage holds token counts reported for a single model call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Message is one chat turn sent to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-agnostic completion request.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
}

// Response is a provider-agnostic completion response.
type Response struct {
	Text  string
	Model string
	Usage Usage
}
