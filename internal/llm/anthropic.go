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

const (
	anthropicBaseURL    = "https://api.anthropic.com/v1"
	anthropicAPIVersion = "2023-06-01"
)

// AnthropicClient speaks the Anthropic messages API.
type AnthropicClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewAnthropicClient builds a messages-API client.
func NewAnthropicClient(apiKey string, timeout time.Duration) *AnthropicClient {
	return &AnthropicClient{
		apiKey:  apiKey,
		baseURL: anthropicBaseURL,
		http:    newHTTPClient(timeout),
	}
}

// Provider returns ProviderAnthropic.
func (c *AnthropicClient) Provider() Provider {
	return ProviderAnthropic
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete performs a messages call.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	if c.apiKey == "" {
		return Response{}, NewError(KindAuthentication, req.Model, ErrMissingAPIKey)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096 // messages API requires max_tokens
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       req.Model,
		System:      req.SystemPrompt,
		Messages:    req.Messages,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Response{}, NewError(KindInvalidResponse, req.Model, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return Response{}, Classify(err, req.Model)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

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
			fmt.Errorf("anthropic returned %d: %s", resp.StatusCode, truncate(string(payload), 256)))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return Response{}, NewError(KindInvalidResponse, req.Model, err)
	}

	text := ""
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return Response{}, NewError(KindInvalidResponse, req.Model, errors.New("empty message content"))
	}

	model := parsed.Model
	if model == "" {
		model = req.Model
	}
	return Response{
		Text:  text,
		Model: model,
		Usage: Usage{
			InputTokens:  parsed.Usage.InputTokens,
			OutputTokens: parsed.Usage.OutputTokens,
			TotalTokens:  parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		},
	}, nil
}
