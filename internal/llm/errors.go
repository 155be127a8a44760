package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a provider error by behavior, not by concrete type.
// Providers surface failures inconsistently, so classification works from
// substrings and status codes in the raw error text.
type Kind string

const (
	KindRateLimit          Kind = "rate_limit"
	KindContextLength      Kind = "context_length"
	KindAuthentication     Kind = "authentication"
	KindServiceUnavailable Kind = "service_unavailable"
	KindInvalidResponse    Kind = "invalid_response"
	KindValidation         Kind = "validation"
	KindTimeout            Kind = "timeout"
	KindCancelled          Kind = "cancelled"
	KindUnknown            Kind = "unknown"
)

// Retryable reports whether a stage call failing with this kind may be
// retried with backoff. Authentication and malformed-request failures
// never are.
func (k Kind) Retryable() bool {
	switch k {
	case KindRateLimit, KindTimeout, KindServiceUnavailable:
		return true
	default:
		return false
	}
}

// Error wraps a raw provider error with its classified kind.
type Error struct {
	Kind  Kind
	Model string
	Err   error
}

func (e *Error) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s (model=%s): %v", e.Kind, e.Model, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error with an explicit kind.
func NewError(kind Kind, model string, err error) *Error {
	return &Error{Kind: kind, Model: model, Err: err}
}

// KindOf returns the classified kind of err, classifying on the fly if the
// error has not been wrapped yet.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return classifyRaw(err)
}

// Classify wraps a raw provider error with its kind. Already-classified
// errors pass through unchanged.
func Classify(err error, model string) *Error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	return &Error{Kind: classifyRaw(err), Model: model, Err: err}
}

func classifyRaw(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}

	text := strings.ToLower(err.Error())
	switch {
	case containsAny(text, "rate limit", "too many requests", "429"):
		return KindRateLimit
	case containsAny(text, "context length", "too long", "maximum token"):
		return KindContextLength
	case containsAny(text, "auth", "api key", "401", "403"):
		return KindAuthentication
	case containsAny(text, "unavailable", "overloaded", "500", "502", "503"):
		return KindServiceUnavailable
	case containsAny(text, "timeout", "timed out", "deadline"):
		return KindTimeout
	case containsAny(text, "cancel"):
		return KindCancelled
	case containsAny(text, "invalid response", "empty response", "decode", "unmarshal"):
		return KindInvalidResponse
	default:
		return KindUnknown
	}
}

func containsAny(text string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(text, needle) {
			return true
		}
	}
	return false
}
