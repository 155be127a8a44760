package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// Chat-completions base URLs for the OpenAI-compatible providers.
const (
	openAIBaseURL     = "https://api.openai.com/v1"
	deepSeekBaseURL   = "https://api.deepseek.com/v1"
	xaiBaseURL        = "https://api.x.ai/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"
)

// ChatClient speaks the OpenAI chat-completions dialect. DeepSeek, xAI and
// OpenRouter expose the same wire format, so one transport serves all four.
type ChatClient struct {
	provider Provider
	apiKey   string
	baseURL  string
	http     *http.Client
}

// NewChatClient builds a chat-completions client for the given provider.
func NewChatClient(provider Provider, apiKey string, timeout time.Duration) *ChatClient {
	baseURL := openAIBaseURL
	switch provider {
	case ProviderDeepSeek:
		baseURL = deepSeekBaseURL
	case ProviderXAI:
		baseURL = xaiBaseURL
	case ProviderOpenRouter:
		baseURL = openRouterBaseURL
	}
	return &ChatClient{
		provider: provider,
		apiKey:   apiKey,
		baseURL:  baseURL,
		http:     newHTTPClient(timeout),
	}
}

// Provider returns the provider this client serves.
func (c *ChatClient) Provider() Provider {
	return c.provider
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete performs a chat-completions call.
func (c *ChatClient) Complete(ctx context.Context, req Request) (Response, error) {
	if c.apiKey == "" {
		return Response{}, NewError(KindAuthentication, req.Model, ErrMissingAPIKey)
	}

	messages := make([]Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, req.Messages...)

	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Response{}, NewError(KindInvalidResponse, req.Model, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Response{}, Classify(err, req.Model)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, Classify(err, req.Model)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, Classify(err, req.Model)
	}
	if resp.StatusCode != http.StatusOK {
		return Response{}, NewError(kindFromStatus(resp.StatusCode), req.Model,
			fmt.Errorf("%s returned %d: %s", c.provider, resp.StatusCode, truncate(string(payload), 256)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Response{}, NewError(KindInvalidResponse, req.Model, err)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, NewError(KindInvalidResponse, req.Model, errors.New("empty choices"))
	}

	model := parsed.Model
	if model == "" {
		model = req.Model
	}
	return Response{
		Text:  parsed.Choices[0].Message.Content,
		Model: model,
		Usage: Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
	}, nil
}

func kindFromStatus(status int) Kind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthentication
	case status == http.StatusRequestEntityTooLarge:
		return KindContextLength
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= http.StatusInternalServerError:
		return KindServiceUnavailable
	default:
		return KindInvalidResponse
	}
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
