package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/park285/seo-pipeline-go/internal/llm"
)

// TotalKey is the synthetic usage entry aggregating across all providers.
// It is updated in the same critical section as every per-provider update,
// so total.X == sum(provider.X) holds at every observable point.
const TotalKey = "total"

// Totals accumulates token counts and cost for one provider.
type Totals struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost"`
	Calls        int64   `json:"calls"`
}

// Record is one priced token-count entry for a single model call.
// Immutable once created.
type Record struct {
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	InputCost    float64   `json:"input_cost"`
	OutputCost   float64   `json:"output_cost"`
	TotalCost    float64   `json:"total_cost"`
	Timestamp    time.Time `json:"timestamp"`
}

// Ledger accumulates priced token usage per provider and per pipeline step.
// Each pipeline run should own its own instance; a shared ledger is safe for
// concurrent use but contended.
type Ledger struct {
	mu           sync.Mutex
	prices       PriceTable
	usage        map[string]*Totals
	stepOrder    []string
	steps        map[string][]Record
	sessionStart time.Time
	lastTracked  time.Time
}

// New creates a fresh ledger. Override prices merge over the defaults;
// untouched entries keep default pricing.
func New(overrides PriceTable) *Ledger {
	prices := defaultPrices()
	mergePrices(prices, overrides)

	ledger := &Ledger{
		prices:       prices,
		usage:        make(map[string]*Totals),
		steps:        make(map[string][]Record),
		sessionStart: time.Now(),
	}
	ledger.initTotalsLocked()
	return ledger
}

func (l *Ledger) initTotalsLocked() {
	for _, provider := range llm.KnownProviders() {
		l.usage[string(provider)] = &Totals{}
	}
	l.usage[TotalKey] = &Totals{}
}

// TrackOpenAI records one OpenAI call.
func (l *Ledger) TrackOpenAI(model string, inputTokens, outputTokens int64) (Record, error) {
	return l.trackKnown(llm.ProviderOpenAI, model, inputTokens, outputTokens)
}

// TrackAnthropic records one Anthropic call.
func (l *Ledger) TrackAnthropic(model string, inputTokens, outputTokens int64) (Record, error) {
	return l.trackKnown(llm.ProviderAnthropic, model, inputTokens, outputTokens)
}

// TrackDeepSeek records one DeepSeek call.
func (l *Ledger) TrackDeepSeek(model string, inputTokens, outputTokens int64) (Record, error) {
	return l.trackKnown(llm.ProviderDeepSeek, model, inputTokens, outputTokens)
}

// TrackXAI records one xAI call.
func (l *Ledger) TrackXAI(model string, inputTokens, outputTokens int64) (Record, error) {
	return l.trackKnown(llm.ProviderXAI, model, inputTokens, outputTokens)
}

// TrackOpenRouter records one OpenRouter call.
func (l *Ledger) TrackOpenRouter(model string, inputTokens, outputTokens int64) (Record, error) {
	return l.trackKnown(llm.ProviderOpenRouter, model, inputTokens, outputTokens)
}

// TrackGeneric records one call for an arbitrary provider with explicit
// pricing. An unseen provider gets a zeroed usage entry on first use.
func (l *Ledger) TrackGeneric(provider, model string, inputTokens, outputTokens int64, inputPrice, outputPrice float64) (Record, error) {
	if err := checkTokens(inputTokens, outputTokens); err != nil {
		return Record{}, err
	}
	price := ModelPrice{Input: inputPrice, Output: outputPrice}
	return l.apply(provider, model, inputTokens, outputTokens, price), nil
}

func (l *Ledger) trackKnown(provider llm.Provider, model string, inputTokens, outputTokens int64) (Record, error) {
	if err := checkTokens(inputTokens, outputTokens); err != nil {
		return Record{}, err
	}
	price := l.prices.resolvePrice(provider, model)
	return l.apply(string(provider), model, inputTokens, outputTokens, price), nil
}

func checkTokens(inputTokens, outputTokens int64) error {
	if inputTokens < 0 || outputTokens < 0 {
		return fmt.Errorf("negative token count: input=%d output=%d", inputTokens, outputTokens)
	}
	return nil
}

// apply performs the provider+total dual update in one critical section and
// returns the immutable record. Costs stay unrounded here; rounding is a
// display concern.
func (l *Ledger) apply(provider, model string, inputTokens, outputTokens int64, price ModelPrice) Record {
	inputCost := float64(inputTokens) / 1000 * price.Input
	outputCost := float64(outputTokens) / 1000 * price.Output
	totalCost := inputCost + outputCost

	l.mu.Lock()
	defer l.mu.Unlock()

	totals := l.usage[provider]
	if totals == nil {
		totals = &Totals{}
		l.usage[provider] = totals
	}
	totals.InputTokens += inputTokens
	totals.OutputTokens += outputTokens
	totals.Cost += totalCost
	totals.Calls++

	grand := l.usage[TotalKey]
	grand.InputTokens += inputTokens
	grand.OutputTokens += outputTokens
	grand.Cost += totalCost
	grand.Calls++

	l.lastTracked = time.Now()

	return Record{
		Provider:     provider,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		TotalCost:    totalCost,
		Timestamp:    l.lastTracked,
	}
}

// TrackStep is the pipeline entry point: estimates tokens from the raw step
// texts, prices them for the provider, and appends the record to the step
// log. Unrecognized providers degrade to generic flat pricing; nothing here
// fails the caller.
func (l *Ledger) TrackStep(step string, provider llm.Provider, model, inputText, outputText string) Record {
	inputTokens := int64(EstimateTokens(inputText, model))
	outputTokens := int64(EstimateTokens(outputText, model))

	var record Record
	if provider.Known() {
		record, _ = l.trackKnown(provider, model, inputTokens, outputTokens)
	} else {
		record, _ = l.TrackGeneric(string(provider), model, inputTokens, outputTokens,
			genericInputPricePer1K, genericOutputPricePer1K)
	}

	l.mu.Lock()
	if _, seen := l.steps[step]; !seen {
		l.stepOrder = append(l.stepOrder, step)
	}
	l.steps[step] = append(l.steps[step], record)
	l.mu.Unlock()

	return record
}

// Reset zeroes all totals, clears the step log, and restarts the session
// clock. Lets one ledger instance isolate consecutive pipeline runs.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.usage = make(map[string]*Totals)
	l.initTotalsLocked()
	l.steps = make(map[string][]Record)
	l.stepOrder = nil
	l.sessionStart = time.Now()
	l.lastTracked = time.Time{}
}
