package pipeline

import (
	"context"

	"github.com/park285/seo-pipeline-go/internal/content"
	"github.com/park285/seo-pipeline-go/internal/llm"
)

// StageContext carries the original request plus every prior stage's output
// into a stage call.
type StageContext struct {
	WorkflowID string
	Request    content.Request
	Research   *content.ResearchOutput
	Brief      *content.Brief
	Facts      *content.FactsOutput
}

// StageResult is what a stage executor hands back: the typed output for the
// stage plus the raw texts and model identity needed for usage accounting.
type StageResult struct {
	Output     any
	Provider   llm.Provider
	Model      string
	InputText  string
	OutputText string
}

// Executor runs one pipeline stage against the agent/model layer. The
// runner neither knows nor cares whether the call goes over HTTP, an SDK,
// or a test fake; it only requires classified errors (llm.Classify).
type Executor interface {
	Execute(ctx context.Context, stage Stage, sc StageContext) (StageResult, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, stage Stage, sc StageContext) (StageResult, error)

// Execute implements Executor.
func (f ExecutorFunc) Execute(ctx context.Context, stage Stage, sc StageContext) (StageResult, error) {
	return f(ctx, stage, sc)
}
