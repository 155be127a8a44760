package ledger

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/park285/seo-pipeline-go/internal/llm"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func checkSumInvariant(t *testing.T, l *Ledger) {
	t.Helper()
	report := l.Report()
	var sum Totals
	for provider, totals := range report.Usage {
		if provider == TotalKey {
			continue
		}
		sum.InputTokens += totals.InputTokens
		sum.OutputTokens += totals.OutputTokens
		sum.Cost += totals.Cost
		sum.Calls += totals.Calls
	}
	grand := report.Usage[TotalKey]
	if sum.InputTokens != grand.InputTokens || sum.OutputTokens != grand.OutputTokens ||
		sum.Calls != grand.Calls || !almostEqual(sum.Cost, grand.Cost) {
		t.Fatalf("total invariant broken: sum=%+v total=%+v", sum, grand)
	}
}

func TestTrackAccumulation(t *testing.T) {
	l := New(nil)

	if _, err := l.TrackOpenAI("gpt-4", 1000, 500); err != nil {
		t.Fatalf("track openai: %v", err)
	}
	checkSumInvariant(t, l)

	if _, err := l.TrackAnthropic("claude-3-sonnet", 2000, 1000); err != nil {
		t.Fatalf("track anthropic: %v", err)
	}
	checkSumInvariant(t, l)

	report := l.Report()
	grand := report.Usage[TotalKey]
	if grand.InputTokens != 3000 || grand.OutputTokens != 1500 || grand.Calls != 2 {
		t.Fatalf("unexpected totals: %+v", grand)
	}

	openai := report.Usage["openai"]
	if !almostEqual(openai.Cost, 0.06) {
		t.Fatalf("unexpected openai cost: %f", openai.Cost)
	}
}

func TestTrackRejectsNegativeTokens(t *testing.T) {
	l := New(nil)
	if _, err := l.TrackOpenAI("gpt-4", -1, 10); err == nil {
		t.Fatalf("expected error for negative input tokens")
	}
	if _, err := l.TrackGeneric("mistral", "mistral-large", 10, -1, 0.001, 0.002); err == nil {
		t.Fatalf("expected error for negative output tokens")
	}
}

func TestModelPrefixStripping(t *testing.T) {
	l := New(nil)

	record, err := l.TrackOpenAI("openai/o3-mini", 1000, 1000)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	// "o3-mini" is not an openai table entry, so pricing falls back to
	// gpt-3.5-turbo; the point is the prefix must not defeat lookup.
	if record.Model != "openai/o3-mini" {
		t.Fatalf("record should keep the original model id: %s", record.Model)
	}

	record, err = l.TrackOpenRouter("openrouter/o3-mini", 1000, 1000)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if !almostEqual(record.InputCost, 0.0015) || !almostEqual(record.OutputCost, 0.002) {
		t.Fatalf("prefix not stripped for pricing: %+v", record)
	}

	if got := normalizeModel("vendor:model"); got != "model" {
		t.Fatalf("unexpected normalization: %s", got)
	}
	if got := normalizeModel("openai/o3-mini"); got != "o3-mini" {
		t.Fatalf("unexpected normalization: %s", got)
	}
}

func TestUnknownModelFallsBackToDefault(t *testing.T) {
	l := New(nil)
	record, err := l.TrackAnthropic("claude-9-hyper", 1000, 1000)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	// claude-3-sonnet default pricing.
	if !almostEqual(record.InputCost, 0.003) || !almostEqual(record.OutputCost, 0.015) {
		t.Fatalf("expected default-model pricing: %+v", record)
	}
}

func TestPriceOverrides(t *testing.T) {
	overrides := PriceTable{
		llm.ProviderOpenAI: {
			"gpt-4": {Input: 0.01, Output: 0.02},
		},
	}
	l := New(overrides)

	record, err := l.TrackOpenAI("gpt-4", 1000, 1000)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if !almostEqual(record.TotalCost, 0.03) {
		t.Fatalf("override not applied: %+v", record)
	}

	// Untouched models keep defaults.
	record, err = l.TrackOpenAI("gpt-4o", 1000, 1000)
	if err != nil {
		t.Fatalf("track: %v", err)
	}
	if !almostEqual(record.TotalCost, 0.02) {
		t.Fatalf("default pricing lost: %+v", record)
	}
}

func TestTrackGenericLazyProvider(t *testing.T) {
	l := New(nil)

	before := l.Report()
	if _, ok := before.Usage["mistral"]; ok {
		t.Fatalf("unexpected mistral entry before tracking")
	}

	if _, err := l.TrackGeneric("mistral", "mistral-large", 500, 500, 0.001, 0.002); err != nil {
		t.Fatalf("track generic: %v", err)
	}
	checkSumInvariant(t, l)

	after := l.Report()
	totals, ok := after.Usage["mistral"]
	if !ok || totals.Calls != 1 {
		t.Fatalf("mistral entry not created: %+v", after.Usage)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("", "gpt-4"); got != 0 {
		t.Fatalf("empty text must estimate zero, got %d", got)
	}
	if got := EstimateTokens("", "not/a/real::model"); got != 0 {
		t.Fatalf("empty text must estimate zero, got %d", got)
	}
	if got := EstimateTokens("hello world", "???"); got < 1 {
		t.Fatalf("non-empty text must estimate at least one token, got %d", got)
	}
	// Text without word boundaries uses the chars/4 fallback.
	if got := EstimateTokens("        ", "gpt-4"); got != 2 {
		t.Fatalf("unexpected fallback estimate: %d", got)
	}
	// Word/char blend: 4 words, 23 chars -> (4+5)/2.
	if got := EstimateTokens("the quick brown foxes!!", "gpt-4"); got != 4 {
		t.Fatalf("unexpected blended estimate: %d", got)
	}
}

func TestTrackStep(t *testing.T) {
	l := New(nil)

	l.TrackStep("research", llm.ProviderOpenAI, "gpt-4", "some input text here", "model output text")
	l.TrackStep("brief", llm.ProviderAnthropic, "claude-3-sonnet", "brief input", "brief output")
	l.TrackStep("research", llm.ProviderOpenAI, "gpt-4", "second call", "second output")
	l.TrackStep("facts", llm.Provider("mistral"), "mistral-large", "facts input", "facts output")
	checkSumInvariant(t, l)

	report := l.Report()
	if len(report.StepUsage) != 3 {
		t.Fatalf("expected 3 step entries, got %d", len(report.StepUsage))
	}
	if report.StepUsage[0].Step != "research" || report.StepUsage[1].Step != "brief" || report.StepUsage[2].Step != "facts" {
		t.Fatalf("step order not preserved: %+v", report.StepUsage)
	}
	if len(report.StepUsage[0].Records) != 2 {
		t.Fatalf("expected 2 research records, got %d", len(report.StepUsage[0].Records))
	}

	// Unknown provider degraded to generic pricing and a lazy entry.
	if _, ok := report.Usage["mistral"]; !ok {
		t.Fatalf("generic provider not tracked")
	}
}

func TestReportIdempotentAndIsolated(t *testing.T) {
	l := New(nil)
	if _, err := l.TrackDeepSeek("deepseek-chat", 100, 100); err != nil {
		t.Fatalf("track: %v", err)
	}

	first := l.Report()
	second := l.Report()
	if first.Usage[TotalKey] != second.Usage[TotalKey] {
		t.Fatalf("reports differ without intervening tracking")
	}

	// Mutating the snapshot must not corrupt the ledger.
	first.Usage[TotalKey] = Totals{InputTokens: 999999}
	first.StepUsage = append(first.StepUsage, StepEntry{Step: "bogus"})
	third := l.Report()
	if third.Usage[TotalKey].InputTokens != 100 || len(third.StepUsage) != 0 {
		t.Fatalf("snapshot mutation leaked into ledger: %+v", third)
	}
}

func TestProviderReport(t *testing.T) {
	l := New(nil)
	if _, err := l.TrackXAI("grok-1", 10, 10); err != nil {
		t.Fatalf("track: %v", err)
	}

	report, ok := l.ProviderReport("xai")
	if !ok || report.Totals.Calls != 1 {
		t.Fatalf("unexpected provider report: %+v ok=%v", report, ok)
	}
	if _, ok := l.ProviderReport("nonexistent"); ok {
		t.Fatalf("expected miss for unknown provider")
	}
}

func TestReset(t *testing.T) {
	l := New(nil)
	l.TrackStep("research", llm.ProviderOpenAI, "gpt-4", "input", "output")

	l.Reset()

	report := l.Report()
	for provider, totals := range report.Usage {
		if totals != (Totals{}) {
			t.Fatalf("provider %s not zeroed after reset: %+v", provider, totals)
		}
	}
	if len(report.StepUsage) != 0 {
		t.Fatalf("step usage not cleared after reset")
	}
}

func TestSaveReportRoundTrip(t *testing.T) {
	l := New(nil)
	if _, err := l.TrackOpenRouter("o3-mini", 1000, 500); err != nil {
		t.Fatalf("track: %v", err)
	}
	l.TrackStep("content", llm.ProviderOpenRouter, "o3-mini", "in", "out")

	filename := filepath.Join(t.TempDir(), "nested", "report.json")
	written, err := l.SaveReportToFile(filename)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if written != filename {
		t.Fatalf("unexpected filename: %s", written)
	}

	payload, err := os.ReadFile(written)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var loaded Report
	if err := json.Unmarshal(payload, &loaded); err != nil {
		t.Fatalf("decode: %v", err)
	}

	current := l.Report()
	if loaded.Usage[TotalKey] != current.Usage[TotalKey] {
		t.Fatalf("round-trip totals differ: %+v vs %+v", loaded.Usage[TotalKey], current.Usage[TotalKey])
	}
	if len(loaded.StepUsage) != len(current.StepUsage) {
		t.Fatalf("round-trip step count differs")
	}
	for i := range loaded.StepUsage {
		if loaded.StepUsage[i].Step != current.StepUsage[i].Step {
			t.Fatalf("round-trip step order differs")
		}
	}
}

func TestConcurrentTrackingKeepsInvariant(t *testing.T) {
	l := New(nil)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				switch worker % 4 {
				case 0:
					l.TrackStep("research", llm.ProviderOpenAI, "gpt-4", "input text", "output text")
				case 1:
					l.TrackStep("brief", llm.ProviderAnthropic, "claude-3-sonnet", "input text", "output text")
				case 2:
					_, _ = l.TrackDeepSeek("deepseek-chat", 10, 10)
				default:
					_, _ = l.TrackGeneric("mistral", "mistral-large", 5, 5, 0.001, 0.002)
				}
			}
		}(worker)
	}
	wg.Wait()

	checkSumInvariant(t, l)
	report := l.Report()
	if report.Usage[TotalKey].Calls != 400 {
		t.Fatalf("expected 400 calls, got %d", report.Usage[TotalKey].Calls)
	}
}

func TestMergeReports(t *testing.T) {
	first := New(nil)
	first.TrackStep("research", llm.ProviderOpenAI, "gpt-4", "input", "output")

	second := New(nil)
	second.TrackStep("brief", llm.ProviderAnthropic, "claude-3-sonnet", "input", "output")
	second.TrackStep("research", llm.ProviderOpenAI, "gpt-4", "more", "output")

	merged := MergeReports(first.Report(), second.Report())
	if merged.Usage[TotalKey].Calls != 3 {
		t.Fatalf("expected 3 merged calls, got %d", merged.Usage[TotalKey].Calls)
	}
	if len(merged.StepUsage) != 2 {
		t.Fatalf("expected 2 merged steps, got %d", len(merged.StepUsage))
	}
	if merged.StepUsage[0].Step != "research" || len(merged.StepUsage[0].Records) != 2 {
		t.Fatalf("merge order or grouping wrong: %+v", merged.StepUsage)
	}
}
