package metrics

import (
	"sync/atomic"
	"time"
)

// Store keeps process-lifetime pipeline statistics. All counters are atomic
// so stage goroutines never contend on a lock for bookkeeping.
type Store struct {
	workflowsCreated   int64
	workflowsQueued    int64
	workflowsCompleted int64
	workflowsFailed    int64
	workflowsCancelled int64
	stageCalls         int64
	stageRetries       int64
	stageDurationMs    int64
	inputTokens        int64
	outputTokens       int64
	totalCostMicros    int64
}

// NewStore creates an empty statistics store.
func NewStore() *Store {
	return &Store{}
}

// RecordCreated counts one created workflow; queued marks creations past the
// concurrency cap.
func (s *Store) RecordCreated(queued bool) {
	atomic.AddInt64(&s.workflowsCreated, 1)
	if queued {
		atomic.AddInt64(&s.workflowsQueued, 1)
	}
}

// RecordCompleted counts one workflow reaching completed.
func (s *Store) RecordCompleted() {
	atomic.AddInt64(&s.workflowsCompleted, 1)
}

// RecordFailed counts one workflow reaching failed.
func (s *Store) RecordFailed() {
	atomic.AddInt64(&s.workflowsFailed, 1)
}

// RecordCancelled counts one user cancellation.
func (s *Store) RecordCancelled() {
	atomic.AddInt64(&s.workflowsCancelled, 1)
}

// RecordStage records one finished stage call with its retry count.
func (s *Store) RecordStage(duration time.Duration, retries int) {
	atomic.AddInt64(&s.stageCalls, 1)
	atomic.AddInt64(&s.stageRetries, int64(retries))
	atomic.AddInt64(&s.stageDurationMs, duration.Milliseconds())
}

// RecordUsage accumulates token counts and cost in micro-dollars.
func (s *Store) RecordUsage(inputTokens, outputTokens int64, cost float64) {
	atomic.AddInt64(&s.inputTokens, inputTokens)
	atomic.AddInt64(&s.outputTokens, outputTokens)
	atomic.AddInt64(&s.totalCostMicros, int64(cost*1e6))
}

// Snapshot returns the current statistics.
func (s *Store) Snapshot() map[string]float64 {
	stageCalls := atomic.LoadInt64(&s.stageCalls)
	durationMs := atomic.LoadInt64(&s.stageDurationMs)

	avgStageMs := 0.0
	if stageCalls > 0 {
		avgStageMs = float64(durationMs) / float64(stageCalls)
	}

	return map[string]float64{
		"workflows_created":   float64(atomic.LoadInt64(&s.workflowsCreated)),
		"workflows_queued":    float64(atomic.LoadInt64(&s.workflowsQueued)),
		"workflows_completed": float64(atomic.LoadInt64(&s.workflowsCompleted)),
		"workflows_failed":    float64(atomic.LoadInt64(&s.workflowsFailed)),
		"workflows_cancelled": float64(atomic.LoadInt64(&s.workflowsCancelled)),
		"stage_calls":         float64(stageCalls),
		"stage_retries":       float64(atomic.LoadInt64(&s.stageRetries)),
		"stage_duration_ms":   float64(durationMs),
		"avg_stage_ms":        avgStageMs,
		"input_tokens":        float64(atomic.LoadInt64(&s.inputTokens)),
		"output_tokens":       float64(atomic.LoadInt64(&s.outputTokens)),
		"total_cost_usd":      float64(atomic.LoadInt64(&s.totalCostMicros)) / 1e6,
	}
}
