package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/park285/seo-pipeline-go/internal/content"
	"github.com/park285/seo-pipeline-go/internal/ledger"
)

// ErrorRecord is one failure note attached to a workflow.
type ErrorRecord struct {
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Workflow is the full state of one pipeline run. Later-stage outputs are
// populated only once the matching complete status has been reached; prior
// outputs survive a failure for diagnostics.
type Workflow struct {
	ID                 string                    `json:"id"`
	Status             Status                    `json:"status"`
	Request            content.Request           `json:"request"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
	Research           *content.ResearchOutput   `json:"research_output,omitempty"`
	Brief              *content.Brief            `json:"content_brief,omitempty"`
	Facts              *content.FactsOutput      `json:"facts_output,omitempty"`
	Generated          *content.GeneratedContent `json:"generated_content,omitempty"`
	TotalExecutionTime float64                   `json:"total_execution_time,omitempty"`
	Errors             []ErrorRecord             `json:"errors,omitempty"`
	TokenUsage         *ledger.Report            `json:"token_usage,omitempty"`
}

// snapshot returns an independent copy safe to hand to callers. Stage
// outputs are attached once and never mutated afterwards, so sharing the
// pointers is safe.
func (w *Workflow) snapshot() Workflow {
	copied := *w
	copied.Errors = append([]ErrorRecord(nil), w.Errors...)
	return copied
}

// ValidateResult enforces the stage/output-presence invariant: an output may
// only be present when every earlier stage's output is present, and a status
// at or past a stage's complete milestone requires that stage's output.
// Completion validation runs once before a workflow is reported completed.
func ValidateResult(w *Workflow) error {
	if w == nil {
		return errors.New("workflow is nil")
	}

	if w.Brief != nil && w.Research == nil {
		return errors.New("content_brief present without research_output")
	}
	if w.Facts != nil && w.Brief == nil {
		return errors.New("facts_output present without content_brief")
	}
	if w.Generated != nil && w.Facts == nil {
		return errors.New("generated_content present without facts_output")
	}

	if w.Status == StatusFailed {
		return nil
	}

	type milestone struct {
		status Status
		ok     bool
		field  string
	}
	milestones := []milestone{
		{StatusResearchComplete, w.Research != nil, "research_output"},
		{StatusBriefComplete, w.Brief != nil, "content_brief"},
		{StatusFactsComplete, w.Facts != nil, "facts_output"},
		{StatusContentComplete, w.Generated != nil, "generated_content"},
	}
	for _, m := range milestones {
		if w.Status.reached(m.status) && !m.ok {
			return fmt.Errorf("status %s requires %s", w.Status, m.field)
		}
	}
	return nil
}
