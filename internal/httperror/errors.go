// Package httperror defines the API error envelope and the mapping from
// internal errors to HTTP responses.
package httperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/park285/seo-pipeline-go/internal/content"
	"github.com/park285/seo-pipeline-go/internal/llm"
	"github.com/park285/seo-pipeline-go/internal/pipeline"
)

// ErrorCode identifies an API error class.
type ErrorCode string

const (
	ErrorCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrorCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrorCodeHTTPRateLimit    ErrorCode = "HTTP_RATE_LIMIT"
	ErrorCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrorCodeMissingField     ErrorCode = "MISSING_FIELD"
	ErrorCodeWorkflowNotFound ErrorCode = "WORKFLOW_NOT_FOUND"
	ErrorCodeContentNotReady  ErrorCode = "CONTENT_NOT_READY"
	ErrorCodeLLM              ErrorCode = "LLM_ERROR"
	ErrorCodeLLMTimeout       ErrorCode = "LLM_TIMEOUT"
	ErrorCodeLLMRateLimit     ErrorCode = "LLM_RATE_LIMIT"
)

// ErrorResponse is the API error body.
type ErrorResponse struct {
	ErrorCode string         `json:"error_code"`
	ErrorType string         `json:"error_type"`
	Message   string         `json:"message"`
	RequestID *string        `json:"request_id"`
	Details   map[string]any `json:"details"`
}

// Error is the internal standard error type.
type Error struct {
	Code    ErrorCode
	Status  int
	Type    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

// Response converts any error into a status code and response body.
func Response(err error, requestID string) (int, ErrorResponse) {
	apiErr := FromError(err)
	if apiErr == nil {
		apiErr = NewInternalError("unknown error")
	}

	var requestIDPtr *string
	if requestID != "" {
		requestIDPtr = &requestID
	}

	return apiErr.Status, ErrorResponse{
		ErrorCode: string(apiErr.Code),
		ErrorType: apiErr.Type,
		Message:   apiErr.Message,
		RequestID: requestIDPtr,
		Details:   apiErr.Details,
	}
}

// FromError maps internal errors to the standard error type.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if errors.Is(err, pipeline.ErrUnknownWorkflow) {
		return NewWorkflowNotFound("")
	}

	if errors.Is(err, content.ErrInvalidRequest) {
		return NewInvalidInput(err.Error())
	}

	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return fromLLMError(llmErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewLLMTimeoutError("Model request timed out")
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return NewValidationError(err)
	}

	return NewInternalError(err.Error())
}

func fromLLMError(err *llm.Error) *Error {
	switch err.Kind {
	case llm.KindRateLimit:
		return &Error{
			Code:    ErrorCodeLLMRateLimit,
			Status:  http.StatusTooManyRequests,
			Type:    "LLMRateLimitError",
			Message: err.Error(),
			Details: map[string]any{"model": err.Model},
		}
	case llm.KindTimeout:
		return NewLLMTimeoutError(err.Error())
	case llm.KindAuthentication:
		return &Error{
			Code:    ErrorCodeLLM,
			Status:  http.StatusBadGateway,
			Type:    "LLMAuthenticationError",
			Message: err.Error(),
			Details: map[string]any{"model": err.Model},
		}
	case llm.KindValidation:
		return NewInvalidInput(err.Error())
	default:
		return &Error{
			Code:    ErrorCodeLLM,
			Status:  http.StatusBadGateway,
			Type:    "LLMError",
			Message: err.Error(),
			Details: map[string]any{"model": err.Model, "kind": string(err.Kind)},
		}
	}
}

// NewInternalError builds a 500 error.
func NewInternalError(message string) *Error {
	return &Error{
		Code:    ErrorCodeInternal,
		Status:  http.StatusInternalServerError,
		Type:    "InternalError",
		Message: message,
		Details: nil,
	}
}

// NewValidationError builds a 422 error with per-field details.
func NewValidationError(err error) *Error {
	return &Error{
		Code:    ErrorCodeValidation,
		Status:  http.StatusUnprocessableEntity,
		Type:    "ValidationError",
		Message: "Input validation failed",
		Details: validationDetails(err),
	}
}

// NewMissingField builds a 400 error for an absent required field.
func NewMissingField(field string) *Error {
	return &Error{
		Code:    ErrorCodeMissingField,
		Status:  http.StatusBadRequest,
		Type:    "MissingFieldError",
		Message: fmt.Sprintf("Field '%s' required", field),
		Details: map[string]any{"field": field},
	}
}

// NewInvalidInput builds a 400 error.
func NewInvalidInput(message string) *Error {
	return &Error{
		Code:    ErrorCodeInvalidInput,
		Status:  http.StatusBadRequest,
		Type:    "InvalidInputError",
		Message: message,
		Details: nil,
	}
}

// NewUnauthorized builds a 401 error.
func NewUnauthorized(details map[string]any) *Error {
	return &Error{
		Code:    ErrorCodeUnauthorized,
		Status:  http.StatusUnauthorized,
		Type:    "UnauthorizedError",
		Message: "Invalid API key",
		Details: details,
	}
}

// NewRateLimitExceeded builds a 429 error for the HTTP limiter.
func NewRateLimitExceeded(details map[string]any) *Error {
	return &Error{
		Code:    ErrorCodeHTTPRateLimit,
		Status:  http.StatusTooManyRequests,
		Type:    "HTTPRateLimitExceededError",
		Message: "Rate limit exceeded",
		Details: details,
	}
}

// NewWorkflowNotFound builds a 404 error for unknown workflow IDs.
func NewWorkflowNotFound(workflowID string) *Error {
	message := "Workflow not found"
	details := map[string]any(nil)
	if workflowID != "" {
		message = fmt.Sprintf("Workflow '%s' not found", workflowID)
		details = map[string]any{"workflow_id": workflowID}
	}
	return &Error{
		Code:    ErrorCodeWorkflowNotFound,
		Status:  http.StatusNotFound,
		Type:    "WorkflowNotFoundError",
		Message: message,
		Details: details,
	}
}

// NewContentNotReady builds a 404 error for content requested before the
// pipeline produced it.
func NewContentNotReady(workflowID string, status string) *Error {
	return &Error{
		Code:    ErrorCodeContentNotReady,
		Status:  http.StatusNotFound,
		Type:    "ContentNotReadyError",
		Message: fmt.Sprintf("Workflow '%s' has no generated content yet", workflowID),
		Details: map[string]any{"workflow_id": workflowID, "status": status},
	}
}

// NewLLMTimeoutError builds a 504 error.
func NewLLMTimeoutError(message string) *Error {
	return &Error{
		Code:    ErrorCodeLLMTimeout,
		Status:  http.StatusGatewayTimeout,
		Type:    "LLMTimeoutError",
		Message: message,
		Details: nil,
	}
}

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

func validationDetails(err error) map[string]any {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make([]FieldError, 0, len(validationErrors))
		for _, validationErr := range validationErrors {
			fields = append(fields, FieldError{
				Field:   validationErr.Field(),
				Message: validationErr.Error(),
				Value:   validationErr.Value(),
			})
		}
		return map[string]any{"errors": fields}
	}

	return map[string]any{
		"errors": []FieldError{
			{
				Field:   "body",
				Message: err.Error(),
				Value:   nil,
			},
		},
	}
}
