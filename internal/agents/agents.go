// Package agents implements the four pipeline stage executors on top of
// the provider clients.
package agents

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/park285/seo-pipeline-go/internal/config"
	"github.com/park285/seo-pipeline-go/internal/content"
	"github.com/park285/seo-pipeline-go/internal/llm"
	"github.com/park285/seo-pipeline-go/internal/pipeline"
	"github.com/park285/seo-pipeline-go/internal/prompt"
)

//go:embed prompts/*.yml
var promptFS embed.FS

// Set wires one llm client per stage and turns model responses into typed
// stage outputs. It implements pipeline.Executor.
type Set struct {
	registry *llm.Registry
	cfg      config.AgentsConfig
	prompts  *prompt.Bundle
	log      *slog.Logger
}

// New loads the embedded prompts and builds the executor set.
func New(registry *llm.Registry, cfg config.AgentsConfig, log *slog.Logger) (*Set, error) {
	bundle, err := prompt.LoadBundle(promptFS, "prompts")
	if err != nil {
		return nil, fmt.Errorf("load agent prompts: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Set{registry: registry, cfg: cfg, prompts: bundle, log: log}, nil
}

// Execute runs one stage: assemble the prompt, call the configured
// provider, and decode the response into the stage's output type.
func (s *Set) Execute(ctx context.Context, stage pipeline.Stage, sc pipeline.StageContext) (pipeline.StageResult, error) {
	agent := s.cfg.ForStage(string(stage))

	client, ok := s.registry.Client(agent.Provider)
	if !ok {
		return pipeline.StageResult{}, llm.NewError(llm.KindValidation, agent.Model,
			fmt.Errorf("no client configured for provider %s", agent.Provider))
	}

	values, err := s.promptValues(stage, sc)
	if err != nil {
		return pipeline.StageResult{}, llm.NewError(llm.KindValidation, agent.Model, err)
	}
	system, err := s.prompts.System(string(stage))
	if err != nil {
		return pipeline.StageResult{}, llm.NewError(llm.KindValidation, agent.Model, err)
	}
	user, err := s.prompts.User(string(stage), values)
	if err != nil {
		return pipeline.StageResult{}, llm.NewError(llm.KindValidation, agent.Model, err)
	}

	resp, err := client.Complete(ctx, llm.Request{
		Model:        agent.Model,
		SystemPrompt: system,
		Messages:     []llm.Message{{Role: "user", Content: user}},
		Temperature:  agent.Temperature,
		MaxTokens:    agent.MaxTokens,
	})
	if err != nil {
		return pipeline.StageResult{}, llm.Classify(err, agent.Model)
	}

	output, err := s.decodeStage(stage, sc, resp.Text)
	if err != nil {
		return pipeline.StageResult{}, llm.NewError(llm.KindInvalidResponse, agent.Model, err)
	}

	model := resp.Model
	if model == "" {
		model = agent.Model
	}
	s.log.Debug("stage call finished",
		"workflow_id", sc.WorkflowID,
		"stage", stage,
		"provider", agent.Provider,
		"model", model,
	)
	return pipeline.StageResult{
		Output:     output,
		Provider:   agent.Provider,
		Model:      model,
		InputText:  system + "\n" + user,
		OutputText: resp.Text,
	}, nil
}

// promptValues builds the template substitutions for a stage from the
// request and the prior stage outputs.
func (s *Set) promptValues(stage pipeline.Stage, sc pipeline.StageContext) (map[string]string, error) {
	req := sc.Request
	values := map[string]string{
		"keyword":            req.Keyword,
		"secondary_keywords": strings.Join(req.SecondaryKeywords, ", "),
		"content_type":       req.ContentType,
		"target_audience":    orDefault(req.TargetAudience, "general readers"),
		"tone":               req.Tone,
		"word_count":         strconv.Itoa(req.WordCount),
		"brand_voice":        orDefault(req.BrandVoice, "none specified"),
		"extra_instructions": orDefault(req.ExtraInstructions, "none"),
	}

	switch stage {
	case pipeline.StageBrief:
		blob, err := marshalForPrompt(sc.Research)
		if err != nil {
			return nil, err
		}
		values["research_json"] = blob
	case pipeline.StageFacts:
		blob, err := marshalForPrompt(sc.Brief)
		if err != nil {
			return nil, err
		}
		values["brief_json"] = blob
	case pipeline.StageContent:
		briefBlob, err := marshalForPrompt(sc.Brief)
		if err != nil {
			return nil, err
		}
		factsBlob, err := marshalForPrompt(sc.Facts)
		if err != nil {
			return nil, err
		}
		values["brief_json"] = briefBlob
		values["facts_json"] = factsBlob
	}
	return values, nil
}

// decodeStage parses the model response into the stage's typed output and
// back-fills fields models commonly omit or misname.
func (s *Set) decodeStage(stage pipeline.Stage, sc pipeline.StageContext, raw string) (any, error) {
	keyword := sc.Request.Keyword

	switch stage {
	case pipeline.StageResearch:
		out, _, err := decodePayload[content.ResearchOutput](raw)
		if err != nil {
			return nil, err
		}
		if out.Keyword == "" {
			out.Keyword = keyword
		}
		return out, nil
	case pipeline.StageBrief:
		out, payload, err := decodePayload[content.Brief](raw)
		if err != nil {
			return nil, err
		}
		if out.Keyword == "" {
			out.Keyword = keyword
		}
		if out.TargetWordCount == 0 {
			out.TargetWordCount = sc.Request.WordCount
		}
		if out.SearchIntent == "" && sc.Research != nil {
			out.SearchIntent = sc.Research.SearchIntent
		}
		if out.GapAnalysis == "" {
			out.GapAnalysis = stringList(payload, "gaps")
		}
		return out, nil
	case pipeline.StageFacts:
		out, _, err := decodePayload[content.FactsOutput](raw)
		if err != nil {
			return nil, err
		}
		if out.Keyword == "" {
			out.Keyword = keyword
		}
		return out, nil
	default:
		out, _, err := decodePayload[content.GeneratedContent](raw)
		if err != nil {
			return nil, err
		}
		if out.WordCount == 0 {
			total := 0
			for _, section := range out.Sections {
				total += len(strings.Fields(section.Body))
			}
			out.WordCount = total
		}
		return out, nil
	}
}

func marshalForPrompt(v any) (string, error) {
	blob, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal prior stage output: %w", err)
	}
	return string(blob), nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
