package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/park285/seo-pipeline-go/internal/content"
	"github.com/park285/seo-pipeline-go/internal/llm"
	"github.com/park285/seo-pipeline-go/internal/pipeline"
)

func TestFromErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantCode   ErrorCode
		wantStatus int
	}{
		{
			name:       "unknown workflow",
			err:        fmt.Errorf("lookup: %w", pipeline.ErrUnknownWorkflow),
			wantCode:   ErrorCodeWorkflowNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "invalid request",
			err:        fmt.Errorf("%w: keyword cannot be empty", content.ErrInvalidRequest),
			wantCode:   ErrorCodeInvalidInput,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "llm rate limit",
			err:        llm.NewError(llm.KindRateLimit, "gpt-4", errors.New("429")),
			wantCode:   ErrorCodeLLMRateLimit,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "llm timeout",
			err:        llm.NewError(llm.KindTimeout, "gpt-4", errors.New("deadline")),
			wantCode:   ErrorCodeLLMTimeout,
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "llm auth",
			err:        llm.NewError(llm.KindAuthentication, "gpt-4", errors.New("401")),
			wantCode:   ErrorCodeLLM,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "llm validation",
			err:        llm.NewError(llm.KindValidation, "gpt-4", errors.New("no client")),
			wantCode:   ErrorCodeInvalidInput,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "context deadline",
			err:        context.DeadlineExceeded,
			wantCode:   ErrorCodeLLMTimeout,
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantCode:   ErrorCodeInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		apiErr := FromError(tc.err)
		if apiErr == nil {
			t.Fatalf("%s: FromError returned nil", tc.name)
		}
		if apiErr.Code != tc.wantCode || apiErr.Status != tc.wantStatus {
			t.Fatalf("%s: got %s/%d, want %s/%d", tc.name, apiErr.Code, apiErr.Status, tc.wantCode, tc.wantStatus)
		}
	}
}

func TestFromErrorNil(t *testing.T) {
	if FromError(nil) != nil {
		t.Fatal("FromError(nil) should be nil")
	}
}

func TestFromErrorPassthrough(t *testing.T) {
	original := NewWorkflowNotFound("wf-1")
	mapped := FromError(fmt.Errorf("wrapped: %w", original))
	if mapped != original {
		t.Fatal("wrapped *Error should map to itself")
	}
}

func TestResponse(t *testing.T) {
	status, body := Response(NewWorkflowNotFound("wf-9"), "req-1")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d", status)
	}
	if body.ErrorCode != string(ErrorCodeWorkflowNotFound) {
		t.Fatalf("error_code = %s", body.ErrorCode)
	}
	if body.RequestID == nil || *body.RequestID != "req-1" {
		t.Fatalf("request_id = %v", body.RequestID)
	}

	status, body = Response(errors.New("boom"), "")
	if status != http.StatusInternalServerError || body.RequestID != nil {
		t.Fatalf("internal response = %d, %v", status, body.RequestID)
	}
}
