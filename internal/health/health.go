// Package health reports component status for the health endpoint.
package health

import (
	"time"

	"github.com/park285/seo-pipeline-go/internal/config"
	"github.com/park285/seo-pipeline-go/internal/llm"
)

var startTime = time.Now()

// Component is one named part of the health report.
type Component struct {
	Status string         `json:"status"`
	Detail map[string]any `json:"detail"`
}

// Response is the health endpoint body.
type Response struct {
	Status     string               `json:"status"`
	Components map[string]Component `json:"components"`
}

// Collect builds the health report. The overall status degrades when any
// stage's provider has no API key configured.
func Collect(cfg *config.Config) Response {
	components := map[string]Component{
		"app":       buildAppStatus(),
		"providers": buildProvidersStatus(cfg),
		"pipeline":  buildPipelineStatus(cfg),
	}

	overall := "ok"
	for _, component := range components {
		if component.Status != "ok" {
			overall = "degraded"
			break
		}
	}

	return Response{
		Status:     overall,
		Components: components,
	}
}

func buildAppStatus() Component {
	return Component{
		Status: "ok",
		Detail: map[string]any{
			"uptime_seconds": int(time.Since(startTime).Seconds()),
		},
	}
}

func buildProvidersStatus(cfg *config.Config) Component {
	detail := make(map[string]any, len(llm.KnownProviders()))
	status := "ok"

	required := requiredProviders(cfg)
	for _, provider := range llm.KnownProviders() {
		keyPresent := cfg != nil && cfg.Providers.Key(provider) != ""
		detail[string(provider)] = map[string]any{
			"api_key_present": keyPresent,
			"required":        required[provider],
		}
		if required[provider] && !keyPresent {
			status = "degraded"
		}
	}

	return Component{Status: status, Detail: detail}
}

func buildPipelineStatus(cfg *config.Config) Component {
	detail := map[string]any{}
	if cfg != nil {
		detail["concurrent_workflows"] = cfg.Pipeline.ConcurrentWorkflows
		detail["stage_timeout_seconds"] = int(cfg.Pipeline.StageTimeout.Seconds())
		detail["max_retries"] = cfg.Retry.MaxRetries
		detail["cache_results"] = cfg.Pipeline.CacheResults
	}
	return Component{Status: "ok", Detail: detail}
}

// requiredProviders lists providers some pipeline stage actually uses.
func requiredProviders(cfg *config.Config) map[llm.Provider]bool {
	required := make(map[llm.Provider]bool)
	if cfg == nil {
		return required
	}
	for _, agent := range []config.AgentConfig{
		cfg.Agents.Research,
		cfg.Agents.Brief,
		cfg.Agents.Facts,
		cfg.Agents.Content,
	} {
		required[agent.Provider] = true
	}
	return required
}
