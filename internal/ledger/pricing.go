package ledger

import (
	"strings"

	"github.com/park285/seo-pipeline-go/internal/llm"
)

// ModelPrice is the USD price per 1K input and output tokens.
type ModelPrice struct {
	Input  float64 `json:"input" yaml:"input"`
	Output float64 `json:"output" yaml:"output"`
}

// PriceTable maps provider -> model -> price. Override tables merge over
// the defaults entry by entry; untouched providers and models keep the
// default prices.
type PriceTable map[llm.Provider]map[string]ModelPrice

// Generic fallback pricing for providers outside the built-in set.
const (
	genericInputPricePer1K  = 0.001
	genericOutputPricePer1K = 0.002
)

// defaultPrices returns the built-in price table, per 1K tokens.
func defaultPrices() PriceTable {
	return PriceTable{
		llm.ProviderOpenAI: {
			"gpt-3.5-turbo": {Input: 0.0005, Output: 0.0015},
			"gpt-4o":        {Input: 0.005, Output: 0.015},
			"gpt-4-turbo":   {Input: 0.01, Output: 0.03},
			"gpt-4":         {Input: 0.03, Output: 0.06},
		},
		llm.ProviderAnthropic: {
			"claude-3-sonnet":          {Input: 0.003, Output: 0.015},
			"claude-3-sonnet-20240229": {Input: 0.003, Output: 0.015},
			"claude-3-opus":            {Input: 0.015, Output: 0.075},
			"claude-3-haiku":           {Input: 0.00025, Output: 0.00125},
			"claude-3.5-sonnet":        {Input: 0.003, Output: 0.015},
			"claude-3.7-sonnet":        {Input: 0.003, Output: 0.015},
		},
		llm.ProviderDeepSeek: {
			"deepseek-chat":     {Input: 0.00027, Output: 0.0011},
			"deepseek-reasoner": {Input: 0.00055, Output: 0.00219},
		},
		llm.ProviderXAI: {
			"grok-1": {Input: 0.0005, Output: 0.0015},
		},
		llm.ProviderOpenRouter: {
			"o3-mini":    {Input: 0.0015, Output: 0.002},
			"o3-preview": {Input: 0.003, Output: 0.004},
			"gpt-4o":     {Input: 0.005, Output: 0.015},
		},
	}
}

// defaultModels maps each built-in provider to the model whose price is used
// when a model is missing from the table.
var defaultModels = map[llm.Provider]string{
	llm.ProviderOpenAI:     "gpt-3.5-turbo",
	llm.ProviderAnthropic:  "claude-3-sonnet",
	llm.ProviderDeepSeek:   "deepseek-chat",
	llm.ProviderXAI:        "grok-1",
	llm.ProviderOpenRouter: "o3-mini",
}

// mergePrices applies override entries over base in place.
func mergePrices(base PriceTable, overrides PriceTable) {
	for provider, models := range overrides {
		if base[provider] == nil {
			base[provider] = make(map[string]ModelPrice, len(models))
		}
		for model, price := range models {
			base[provider][model] = price
		}
	}
}

// normalizeModel strips provider-qualifier prefixes from a model id, e.g.
// "openai/o3-mini" -> "o3-mini" and "vendor:model" -> "model".
func normalizeModel(model string) string {
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		model = model[idx+1:]
	}
	if idx := strings.LastIndex(model, ":"); idx >= 0 {
		model = model[idx+1:]
	}
	return model
}

// resolvePrice looks up the price for provider+model, falling back to the
// provider's default model, then to generic pricing.
func (t PriceTable) resolvePrice(provider llm.Provider, model string) ModelPrice {
	models := t[provider]
	if models != nil {
		if price, ok := models[normalizeModel(model)]; ok {
			return price
		}
		if fallback, ok := defaultModels[provider]; ok {
			if price, ok := models[fallback]; ok {
				return price
			}
		}
	}
	return ModelPrice{Input: genericInputPricePer1K, Output: genericOutputPricePer1K}
}
