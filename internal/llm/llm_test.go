package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestClassifyKinds(t *testing.T) {
	cases := []struct {
		message string
		want    Kind
	}{
		{"429 too many requests, rate limit exceeded", KindRateLimit},
		{"maximum context length is 8192 tokens", KindContextLength},
		{"401 unauthorized: invalid api key", KindAuthentication},
		{"503 service unavailable", KindServiceUnavailable},
		{"something else entirely", KindUnknown},
	}
	for _, tc := range cases {
		got := Classify(errors.New(tc.message), "m")
		if got.Kind != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.message, got.Kind, tc.want)
		}
	}

	if got := Classify(context.DeadlineExceeded, "m"); got.Kind != KindTimeout {
		t.Fatalf("deadline = %s, want timeout", got.Kind)
	}
	if got := Classify(context.Canceled, "m"); got.Kind != KindCancelled {
		t.Fatalf("canceled = %s, want cancelled", got.Kind)
	}
}

func TestClassifyPreservesExistingError(t *testing.T) {
	original := NewError(KindRateLimit, "gpt-4", errors.New("wrapped"))
	classified := Classify(original, "other")
	if classified != original {
		t.Fatal("already-classified errors should pass through unchanged")
	}
}

func TestKindRetryable(t *testing.T) {
	retryable := []Kind{KindRateLimit, KindTimeout, KindServiceUnavailable}
	for _, kind := range retryable {
		if !kind.Retryable() {
			t.Fatalf("%s should be retryable", kind)
		}
	}
	terminal := []Kind{KindAuthentication, KindContextLength, KindInvalidResponse, KindValidation, KindCancelled, KindUnknown}
	for _, kind := range terminal {
		if kind.Retryable() {
			t.Fatalf("%s should not be retryable", kind)
		}
	}
}

func TestKindFromStatus(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusTooManyRequests, KindRateLimit},
		{http.StatusUnauthorized, KindAuthentication},
		{http.StatusForbidden, KindAuthentication},
		{http.StatusRequestEntityTooLarge, KindContextLength},
		{http.StatusGatewayTimeout, KindTimeout},
		{http.StatusInternalServerError, KindServiceUnavailable},
		{http.StatusServiceUnavailable, KindServiceUnavailable},
		{http.StatusBadRequest, KindInvalidResponse},
	}
	for _, tc := range cases {
		if got := kindFromStatus(tc.status); got != tc.want {
			t.Fatalf("kindFromStatus(%d) = %s, want %s", tc.status, got, tc.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	openai := NewChatClient(ProviderOpenAI, "k", time.Second)
	anthropic := NewAnthropicClient("k", time.Second)

	registry := NewRegistry(openai, anthropic, nil)
	if _, ok := registry.Client(ProviderOpenAI); !ok {
		t.Fatal("openai client missing")
	}
	if _, ok := registry.Client(ProviderDeepSeek); ok {
		t.Fatal("deepseek client should be absent")
	}
	if got := len(registry.Providers()); got != 2 {
		t.Fatalf("providers = %d, want 2", got)
	}
}

func TestChatClientComplete(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-4-0613",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "hello"}},
			},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16},
		})
	}))
	defer srv.Close()

	client := NewChatClient(ProviderOpenAI, "test-key", time.Second)
	client.baseURL = srv.URL

	resp, err := client.Complete(context.Background(), Request{
		Model:        "gpt-4",
		SystemPrompt: "be terse",
		Messages:     []Message{{Role: "user", Content: "hi"}},
		Temperature:  0.3,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "hello" || resp.Model != "gpt-4-0613" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 4 {
		t.Fatalf("usage = %+v", resp.Usage)
	}

	messages, ok := captured["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("wire messages = %v", captured["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be terse" {
		t.Fatalf("system message = %v", first)
	}
}

func TestChatClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "slow down"}}`))
	}))
	defer srv.Close()

	client := NewChatClient(ProviderDeepSeek, "test-key", time.Second)
	client.baseURL = srv.URL

	_, err := client.Complete(context.Background(), Request{Model: "deepseek-chat"})
	if KindOf(err) != KindRateLimit {
		t.Fatalf("kind = %s, want rate_limit", KindOf(err))
	}
	if !strings.Contains(err.Error(), "deepseek") {
		t.Fatalf("error = %v", err)
	}
}

func TestChatClientMissingKey(t *testing.T) {
	client := NewChatClient(ProviderOpenAI, "", time.Second)
	_, err := client.Complete(context.Background(), Request{Model: "gpt-4"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v", err)
	}
	if KindOf(err) != KindAuthentication {
		t.Fatalf("kind = %s", KindOf(err))
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != anthropicAPIVersion {
			t.Errorf("anthropic-version = %q", got)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["max_tokens"] != float64(4096) {
			t.Errorf("max_tokens default = %v", body["max_tokens"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "claude-3-sonnet",
			"content": []map[string]any{
				{"type": "text", "text": "part one "},
				{"type": "text", "text": "part two"},
			},
			"usage": map[string]any{"input_tokens": 20, "output_tokens": 8},
		})
	}))
	defer srv.Close()

	client := NewAnthropicClient("test-key", time.Second)
	client.baseURL = srv.URL

	resp, err := client.Complete(context.Background(), Request{
		Model:        "claude-3-sonnet",
		SystemPrompt: "be helpful",
		Messages:     []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "part one part two" {
		t.Fatalf("text = %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 28 {
		t.Fatalf("total tokens = %d", resp.Usage.TotalTokens)
	}
}

func TestProviderKnown(t *testing.T) {
	for _, provider := range KnownProviders() {
		if !provider.Known() {
			t.Fatalf("%s should be known", provider)
		}
	}
	if Provider("mistral").Known() {
		t.Fatal("mistral is not a first-class provider")
	}
}
