package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/park285/seo-pipeline-go/internal/cache"
	"github.com/park285/seo-pipeline-go/internal/config"
	"github.com/park285/seo-pipeline-go/internal/content"
	"github.com/park285/seo-pipeline-go/internal/ledger"
	"github.com/park285/seo-pipeline-go/internal/llm"
	"github.com/park285/seo-pipeline-go/internal/metrics"
)

// ErrUnknownWorkflow is returned for lookups of IDs the runner never issued.
var ErrUnknownWorkflow = errors.New("unknown workflow")

// cancelledMessage matches the error record written on user cancellation.
const cancelledMessage = "Workflow cancelled by user"

type workflowState struct {
	wf      *Workflow
	ledger  *ledger.Ledger
	cancel  context.CancelFunc
	started time.Time
}

// Runner owns every workflow: it admits new runs up to the concurrency cap,
// queues the rest in arrival order, drives each run through the fixed stage
// sequence, and keeps per-run usage ledgers.
type Runner struct {
	cfg   *config.Config
	exec  Executor
	log   *slog.Logger
	stats *metrics.Store

	prices   ledger.PriceTable
	research *cache.TTLCache[*content.ResearchOutput]

	mu        sync.Mutex
	workflows map[string]*workflowState
	order     []string
	queue     []string
	running   int
}

// NewRunner builds a runner. prices may be nil for default pricing;
// stats may be nil to disable statistics.
func NewRunner(cfg *config.Config, exec Executor, prices ledger.PriceTable, log *slog.Logger, stats *metrics.Store) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if stats == nil {
		stats = metrics.NewStore()
	}
	var research *cache.TTLCache[*content.ResearchOutput]
	if cfg.Pipeline.CacheResults {
		research = cache.NewTTL[*content.ResearchOutput](cfg.Pipeline.CacheMaxEntries, cfg.Pipeline.CacheTTL)
	}
	return &Runner{
		cfg:       cfg,
		exec:      exec,
		log:       log,
		stats:     stats,
		prices:    prices,
		research:  research,
		workflows: make(map[string]*workflowState),
	}
}

// Start admits a new workflow. It runs immediately when a concurrency slot
// is free and queues otherwise; queued workflows start in arrival order as
// slots open. The returned snapshot reflects the initial status.
func (r *Runner) Start(req content.Request) (Workflow, error) {
	req.Normalize()
	if err := content.ValidateRequest(req); err != nil {
		return Workflow{}, err
	}

	now := time.Now()
	state := &workflowState{
		wf: &Workflow{
			ID:        uuid.NewString(),
			Status:    StatusPending,
			Request:   req,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ledger: ledger.New(r.prices),
	}

	r.mu.Lock()
	r.workflows[state.wf.ID] = state
	r.order = append(r.order, state.wf.ID)

	queued := r.running >= r.cfg.Pipeline.ConcurrentWorkflows
	if queued {
		state.wf.Status = StatusQueued
		r.queue = append(r.queue, state.wf.ID)
	} else {
		r.running++
		r.dispatchLocked(state)
	}
	snap := state.wf.snapshot()
	r.mu.Unlock()

	r.stats.RecordCreated(queued)
	r.log.Info("workflow accepted",
		"workflow_id", snap.ID,
		"keyword", req.Keyword,
		"status", snap.Status,
	)
	return snap, nil
}

// dispatchLocked arms the workflow's cancel context and launches its run
// goroutine. Caller holds r.mu and has already claimed a slot.
func (r *Runner) dispatchLocked(state *workflowState) {
	ctx, cancel := context.WithCancel(context.Background())
	state.cancel = cancel
	state.started = time.Now()
	go r.run(ctx, state)
}

// Get returns a snapshot of one workflow.
func (r *Runner) Get(id string) (Workflow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.workflows[id]
	if !ok {
		return Workflow{}, false
	}
	return state.wf.snapshot(), true
}

// ListFilter narrows List results. A zero filter returns everything.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// List returns snapshots of matching workflows in creation order.
func (r *Runner) List(filter ListFilter) []Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Workflow, 0, len(r.order))
	for _, id := range r.order {
		wf := r.workflows[id].wf
		if filter.Status != "" && wf.Status != filter.Status {
			continue
		}
		out = append(out, wf.snapshot())
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []Workflow{}
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}

// Content returns the assembled markdown for a completed workflow.
func (r *Runner) Content(id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.workflows[id]
	if !ok {
		return "", ErrUnknownWorkflow
	}
	if state.wf.Generated == nil {
		return "", fmt.Errorf("workflow %s has no generated content (status %s)", id, state.wf.Status)
	}
	return state.wf.Generated.FullContent(), nil
}

// Cancel stops a workflow that has not finished. Queued workflows are
// removed from the queue; running ones have their context cancelled. Both
// end failed with a cancellation record. Returns false for unknown IDs and
// workflows already terminal.
func (r *Runner) Cancel(id string) bool {
	r.mu.Lock()
	state, ok := r.workflows[id]
	if !ok || state.wf.Status.Terminal() {
		r.mu.Unlock()
		return false
	}

	if state.wf.Status == StatusQueued {
		for i, queuedID := range r.queue {
			if queuedID == id {
				r.queue = append(r.queue[:i], r.queue[i+1:]...)
				break
			}
		}
	} else if state.cancel != nil {
		state.cancel()
	}

	r.failLocked(state, "cancel", errors.New(cancelledMessage))
	r.mu.Unlock()

	r.stats.RecordCancelled()
	r.log.Info("workflow cancelled", "workflow_id", id)
	return true
}

// Usage merges every workflow's ledger report into one aggregate view.
func (r *Runner) Usage() ledger.Report {
	r.mu.Lock()
	reports := make([]ledger.Report, 0, len(r.order))
	for _, id := range r.order {
		reports = append(reports, r.workflows[id].ledger.Report())
	}
	r.mu.Unlock()

	return ledger.MergeReports(reports...)
}

// WorkflowUsage returns the usage report for a single workflow.
func (r *Runner) WorkflowUsage(id string) (ledger.Report, error) {
	r.mu.Lock()
	state, ok := r.workflows[id]
	r.mu.Unlock()

	if !ok {
		return ledger.Report{}, ErrUnknownWorkflow
	}
	return state.ledger.Report(), nil
}

// Stats exposes the runner's statistics store.
func (r *Runner) Stats() *metrics.Store {
	return r.stats
}

// run drives one workflow through the fixed stage sequence. It owns the
// slot it was dispatched with and releases it (starting the next queued
// workflow, if any) on the way out.
func (r *Runner) run(ctx context.Context, state *workflowState) {
	defer r.releaseSlot()

	for _, stage := range Stages() {
		if err := r.runStage(ctx, state, stage); err != nil {
			r.mu.Lock()
			failed := r.failLocked(state, string(stage), err)
			r.mu.Unlock()

			// Already terminal means Cancel got there first.
			if failed {
				r.stats.RecordFailed()
				r.log.Error("workflow failed",
					"workflow_id", state.wf.ID,
					"stage", stage,
					"error", err,
				)
			}
			return
		}
	}

	r.finish(state)
}

// runStage executes one stage with retry, attaches its output, and records
// its usage. A nil return means the stage's complete status has been set.
func (r *Runner) runStage(ctx context.Context, state *workflowState, stage Stage) error {
	r.mu.Lock()
	if state.wf.Status.Terminal() {
		r.mu.Unlock()
		return llm.NewError(llm.KindCancelled, "", context.Canceled)
	}
	r.setStatusLocked(state, stage.InProgress())
	sc := StageContext{
		WorkflowID: state.wf.ID,
		Request:    state.wf.Request,
		Research:   state.wf.Research,
		Brief:      state.wf.Brief,
		Facts:      state.wf.Facts,
	}
	r.mu.Unlock()

	if stage == StageResearch && r.research != nil {
		if cached, ok := r.research.Get(cache.Key(sc.Request.Keyword)); ok {
			r.log.Info("research cache hit",
				"workflow_id", state.wf.ID,
				"keyword", sc.Request.Keyword,
			)
			return r.attach(state, stage, StageResult{Output: cached})
		}
	}

	started := time.Now()
	result, retries, err := callWithRetry(ctx, r.cfg.Retry, func(ctx context.Context) (StageResult, error) {
		callCtx := ctx
		if r.cfg.Pipeline.StageTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.cfg.Pipeline.StageTimeout)
			defer cancel()
		}
		return r.exec.Execute(callCtx, stage, sc)
	})
	r.stats.RecordStage(time.Since(started), retries)
	if err != nil {
		return err
	}
	if retries > 0 {
		r.log.Warn("stage recovered after retries",
			"workflow_id", state.wf.ID,
			"stage", stage,
			"retries", retries,
		)
	}

	record := state.ledger.TrackStep(string(stage), result.Provider, result.Model, result.InputText, result.OutputText)
	r.stats.RecordUsage(record.InputTokens, record.OutputTokens, record.TotalCost)

	return r.attach(state, stage, result)
}

// attach type-checks a stage result, stores it on the workflow, and
// advances the status. Research outputs also feed the keyword cache.
func (r *Runner) attach(state *workflowState, stage Stage, result StageResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state.wf.Status.Terminal() {
		return llm.NewError(llm.KindCancelled, "", context.Canceled)
	}

	switch stage {
	case StageResearch:
		out, ok := result.Output.(*content.ResearchOutput)
		if !ok {
			return badOutput(stage, result.Output)
		}
		if err := content.ValidateResearch(out); err != nil {
			return llm.NewError(llm.KindInvalidResponse, result.Model, err)
		}
		state.wf.Research = out
		if r.research != nil {
			r.research.Set(cache.Key(state.wf.Request.Keyword), out)
		}
	case StageBrief:
		out, ok := result.Output.(*content.Brief)
		if !ok {
			return badOutput(stage, result.Output)
		}
		if err := content.ValidateBrief(out); err != nil {
			return llm.NewError(llm.KindInvalidResponse, result.Model, err)
		}
		state.wf.Brief = out
	case StageFacts:
		out, ok := result.Output.(*content.FactsOutput)
		if !ok {
			return badOutput(stage, result.Output)
		}
		if err := content.ValidateFacts(out); err != nil {
			return llm.NewError(llm.KindInvalidResponse, result.Model, err)
		}
		state.wf.Facts = out
	case StageContent:
		out, ok := result.Output.(*content.GeneratedContent)
		if !ok {
			return badOutput(stage, result.Output)
		}
		if err := content.ValidateGenerated(out); err != nil {
			return llm.NewError(llm.KindInvalidResponse, result.Model, err)
		}
		state.wf.Generated = out
	}

	r.setStatusLocked(state, stage.Complete())
	return nil
}

func badOutput(stage Stage, got any) error {
	return llm.NewError(llm.KindInvalidResponse, "",
		fmt.Errorf("stage %s returned %T", stage, got))
}

// finish validates the complete result and marks the workflow completed.
func (r *Runner) finish(state *workflowState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state.wf.Status.Terminal() {
		return
	}

	if err := ValidateResult(state.wf); err != nil {
		r.failLocked(state, "finalize", err)
		r.stats.RecordFailed()
		return
	}

	report := state.ledger.Report()
	state.wf.TokenUsage = &report
	state.wf.TotalExecutionTime = time.Since(state.wf.CreatedAt).Seconds()
	r.setStatusLocked(state, StatusCompleted)

	r.stats.RecordCompleted()
	r.log.Info("workflow completed",
		"workflow_id", state.wf.ID,
		"keyword", state.wf.Request.Keyword,
		"duration_seconds", state.wf.TotalExecutionTime,
		"total_cost", report.Usage[ledger.TotalKey].Cost,
	)
}

// failLocked records an error and moves the workflow to failed, reporting
// whether it transitioned. Stage outputs already attached are left in place
// for diagnostics. Caller holds r.mu. No-op when already terminal.
func (r *Runner) failLocked(state *workflowState, stage string, err error) bool {
	if state.wf.Status.Terminal() {
		return false
	}
	state.wf.Errors = append(state.wf.Errors, ErrorRecord{
		Stage:     stage,
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
	report := state.ledger.Report()
	state.wf.TokenUsage = &report
	if !state.started.IsZero() {
		state.wf.TotalExecutionTime = time.Since(state.wf.CreatedAt).Seconds()
	}
	r.setStatusLocked(state, StatusFailed)
	return true
}

func (r *Runner) setStatusLocked(state *workflowState, status Status) {
	state.wf.Status = status
	state.wf.UpdatedAt = time.Now()
}

// releaseSlot frees one concurrency slot and dispatches the oldest queued
// workflow, skipping any that were cancelled while waiting.
func (r *Runner) releaseSlot() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running--
	for len(r.queue) > 0 {
		id := r.queue[0]
		r.queue = r.queue[1:]
		state := r.workflows[id]
		if state.wf.Status != StatusQueued {
			continue
		}
		r.setStatusLocked(state, StatusPending)
		r.running++
		r.dispatchLocked(state)
		return
	}
}
