package ledger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// StepEntry holds the ordered records tracked under one step name.
type StepEntry struct {
	Step    string   `json:"step"`
	Records []Record `json:"records"`
}

// Report is a deep snapshot of ledger state. Mutating it never touches the
// ledger.
type Report struct {
	Usage           map[string]Totals `json:"usage"`
	StepUsage       []StepEntry       `json:"step_usage"`
	SessionStart    time.Time         `json:"session_start"`
	SessionDuration string            `json:"session_duration"`
}

// ProviderReport is the single-provider view of Report.
type ProviderReport struct {
	Provider        string    `json:"provider"`
	Totals          Totals    `json:"totals"`
	SessionStart    time.Time `json:"session_start"`
	SessionDuration string    `json:"session_duration"`
}

// Report returns a snapshot of all provider totals and the step log, in step
// first-appearance order.
func (l *Ledger) Report() Report {
	l.mu.Lock()
	defer l.mu.Unlock()

	usage := make(map[string]Totals, len(l.usage))
	for provider, totals := range l.usage {
		usage[provider] = *totals
	}

	steps := make([]StepEntry, 0, len(l.stepOrder))
	for _, step := range l.stepOrder {
		records := append([]Record(nil), l.steps[step]...)
		steps = append(steps, StepEntry{Step: step, Records: records})
	}

	return Report{
		Usage:           usage,
		StepUsage:       steps,
		SessionStart:    l.sessionStart,
		SessionDuration: time.Since(l.sessionStart).String(),
	}
}

// ProviderReport returns the totals of a single provider, or false if the
// provider has never been tracked.
func (l *Ledger) ProviderReport(provider string) (ProviderReport, bool) {
	return ProviderView(l.Report(), provider)
}

// ProviderView extracts a single provider's totals from a report, merged or
// otherwise. The second return is false when the provider was never tracked.
func ProviderView(report Report, provider string) (ProviderReport, bool) {
	totals, ok := report.Usage[provider]
	if !ok {
		return ProviderReport{}, false
	}
	return ProviderReport{
		Provider:        provider,
		Totals:          totals,
		SessionStart:    report.SessionStart,
		SessionDuration: report.SessionDuration,
	}, true
}

// PrintReport writes a human-readable usage summary. Pure presentation over
// Report.
func (l *Ledger) PrintReport(w io.Writer) {
	report := l.Report()

	fmt.Fprintln(w, "===== TOKEN USAGE REPORT =====")
	fmt.Fprintf(w, "Session started: %s\n", report.SessionStart.Format(time.RFC3339))
	fmt.Fprintf(w, "Session duration: %s\n", report.SessionDuration)

	providers := make([]string, 0, len(report.Usage))
	for provider := range report.Usage {
		if provider != TotalKey {
			providers = append(providers, provider)
		}
	}
	sort.Strings(providers)

	for _, provider := range providers {
		totals := report.Usage[provider]
		if totals.Calls == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", provider)
		fmt.Fprintf(w, "  Calls: %d\n", totals.Calls)
		fmt.Fprintf(w, "  Input tokens: %d\n", totals.InputTokens)
		fmt.Fprintf(w, "  Output tokens: %d\n", totals.OutputTokens)
		fmt.Fprintf(w, "  Cost: $%.4f\n", totals.Cost)
	}

	grand := report.Usage[TotalKey]
	fmt.Fprintln(w, "\nTOTAL USAGE:")
	fmt.Fprintf(w, "  Calls: %d\n", grand.Calls)
	fmt.Fprintf(w, "  Input tokens: %d\n", grand.InputTokens)
	fmt.Fprintf(w, "  Output tokens: %d\n", grand.OutputTokens)
	fmt.Fprintf(w, "  Total cost: $%.6f\n", grand.Cost)

	if len(report.StepUsage) > 0 {
		fmt.Fprintln(w, "\nUSAGE BY STEP:")
		for _, entry := range report.StepUsage {
			var cost float64
			var tokens int64
			for _, record := range entry.Records {
				cost += record.TotalCost
				tokens += record.InputTokens + record.OutputTokens
			}
			fmt.Fprintf(w, "  %s: calls=%d tokens=%d cost=$%.4f\n", entry.Step, len(entry.Records), tokens, cost)
		}
	}
	fmt.Fprintln(w, "==============================")
}

// SaveReportToFile writes this ledger's JSON report via SaveReport.
func (l *Ledger) SaveReportToFile(filename string) (string, error) {
	return SaveReport(l.Report(), filename)
}

// SaveReport writes a report as JSON. An empty filename defaults to
// storage/token_usage/tokens_<YYYYMMDD_HHMMSS>.json; parent directories are
// created as needed. Returns the filename written.
func SaveReport(report Report, filename string) (string, error) {
	if filename == "" {
		filename = filepath.Join("storage", "token_usage",
			fmt.Sprintf("tokens_%s.json", time.Now().Format("20060102_150405")))
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create report dir: %w", err)
		}
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(filename, payload, 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return filename, nil
}

// MergeReports combines per-run reports into one aggregate view. Provider
// totals sum; step entries keep the first-appearance order across the inputs;
// the earliest session start wins.
func MergeReports(reports ...Report) Report {
	merged := Report{Usage: map[string]Totals{TotalKey: {}}}
	stepIndex := make(map[string]int)

	for _, report := range reports {
		for provider, totals := range report.Usage {
			current := merged.Usage[provider]
			current.InputTokens += totals.InputTokens
			current.OutputTokens += totals.OutputTokens
			current.Cost += totals.Cost
			current.Calls += totals.Calls
			merged.Usage[provider] = current
		}
		for _, entry := range report.StepUsage {
			idx, seen := stepIndex[entry.Step]
			if !seen {
				stepIndex[entry.Step] = len(merged.StepUsage)
				merged.StepUsage = append(merged.StepUsage, StepEntry{Step: entry.Step})
				idx = len(merged.StepUsage) - 1
			}
			merged.StepUsage[idx].Records = append(merged.StepUsage[idx].Records, entry.Records...)
		}
		if merged.SessionStart.IsZero() || (!report.SessionStart.IsZero() && report.SessionStart.Before(merged.SessionStart)) {
			merged.SessionStart = report.SessionStart
		}
	}

	if !merged.SessionStart.IsZero() {
		merged.SessionDuration = time.Since(merged.SessionStart).String()
	}
	return merged
}
