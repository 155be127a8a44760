package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/park285/seo-pipeline-go/internal/config"
	"github.com/park285/seo-pipeline-go/internal/llm"
)

// backoffDelay computes min(initial * factor^attempt, max) for a zero-based
// attempt counter.
func backoffDelay(policy config.RetryConfig, attempt int) time.Duration {
	if policy.InitialDelay <= 0 {
		return 0
	}
	factor := policy.BackoffFactor
	if factor < 1 {
		factor = 1
	}
	delay := time.Duration(float64(policy.InitialDelay) * math.Pow(factor, float64(attempt)))
	if policy.MaxDelay > 0 && delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	return delay
}

// callWithRetry invokes fn with the configured retry policy. Only errors
// classified as transient are retried; everything else fails the stage
// immediately. Returns the number of retries performed alongside the result.
func callWithRetry(ctx context.Context, policy config.RetryConfig, fn func(ctx context.Context) (StageResult, error)) (StageResult, int, error) {
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, attempt, nil
		}

		kind := llm.KindOf(err)
		if !kind.Retryable() || attempt >= policy.MaxRetries {
			return StageResult{}, attempt, err
		}

		delay := backoffDelay(policy, attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return StageResult{}, attempt, llm.Classify(ctx.Err(), "")
		case <-timer.C:
		}
	}
}
