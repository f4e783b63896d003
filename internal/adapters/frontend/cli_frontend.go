package frontend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/explain"
	"github.com/mikey/phishguard/internal/features"
	"github.com/mikey/phishguard/internal/status"
)

// CLIFrontend prints scan results for one-shot command line use
type CLIFrontend struct {
	service *core.ScanService
	logger  *zap.Logger
	out     io.Writer
	verbose bool
	asJSON  bool
}

// NewCLIFrontend creates a new CLI front end
func NewCLIFrontend(service *core.ScanService, logger *zap.Logger, out io.Writer, verbose, asJSON bool) *CLIFrontend {
	return &CLIFrontend{
		service: service,
		logger:  logger,
		out:     out,
		verbose: verbose,
		asJSON:  asJSON,
	}
}

// Start is a no-op for the CLI front end
func (f *CLIFrontend) Start() error {
	return nil
}

// Stop is a no-op for the CLI front end
func (f *CLIFrontend) Stop() error {
	return nil
}

// Scan scans an address and prints the verdict
func (f *CLIFrontend) Scan(ctx context.Context, address string, rescan bool) (*core.Verdict, error) {
	f.logger.Debug("Scanning address", zap.String("address", address))

	start := time.Now()
	scan := f.service.Scan
	if rescan {
		scan = f.service.Rescan
	}
	verdict, err := scan(ctx, address)
	if err != nil {
		return nil, err
	}
	duration := time.Since(start)

	if f.asJSON {
		return verdict, f.printJSON(verdict)
	}

	fmt.Fprintf(f.out, "\n=== Verdict ===\n")
	fmt.Fprintf(f.out, "Address: %s\n", verdict.Address)
	fmt.Fprintf(f.out, "Threat: %t\n", verdict.IsThreat)
	fmt.Fprintf(f.out, "Risk level: %s\n", verdict.RiskLevel)
	fmt.Fprintf(f.out, "Score: %.4f\n", verdict.Score)
	fmt.Fprintf(f.out, "Model score: %.4f\n", verdict.ModelScore)
	fmt.Fprintf(f.out, "Confidence: %.4f\n", verdict.Confidence)
	fmt.Fprintf(f.out, "Source: %s\n", verdict.Source)
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)

	if len(verdict.Reasons) > 0 {
		fmt.Fprintf(f.out, "\n=== Reasons ===\n")
		for _, reason := range verdict.Reasons {
			fmt.Fprintf(f.out, "- %s\n", reason)
		}
	}

	if f.verbose {
		f.printAttributions(verdict.Explanations)
		for _, h := range verdict.Highlights {
			fmt.Fprintf(f.out, "Highlight: %s (%s)\n", h.Description, h.Element)
		}
	}
	return verdict, nil
}

// Explain prints the local weighted model assessment of an address
func (f *CLIFrontend) Explain(address string, signals *features.ContentSignals) (*core.LocalReport, error) {
	report := f.service.Assess(address, signals)

	if f.asJSON {
		return report, f.printJSON(report)
	}

	fmt.Fprintf(f.out, "\n=== Local assessment ===\n")
	fmt.Fprintf(f.out, "Address: %s\n", report.Address)
	fmt.Fprintf(f.out, "Phishing: %t\n", report.Assessment.IsPhishing)
	fmt.Fprintf(f.out, "Risk level: %s\n", report.Assessment.RiskLevel)
	fmt.Fprintf(f.out, "Score: %.4f\n", report.Assessment.Score)
	fmt.Fprintf(f.out, "Confidence: %.4f\n", report.Assessment.Confidence)

	f.printAttributions(report.Explanations)

	if f.verbose {
		fmt.Fprintf(f.out, "\n=== Features ===\n")
		for _, name := range features.All() {
			fmt.Fprintf(f.out, "%-22s %.2f\n", name, report.Features.Get(name))
		}
	}
	return report, nil
}

// Stats prints the aggregate counters
func (f *CLIFrontend) Stats(ctx context.Context) (core.Stats, error) {
	stats, err := f.service.Stats(ctx)
	if err != nil {
		return stats, err
	}
	if f.asJSON {
		return stats, f.printJSON(stats)
	}
	fmt.Fprintf(f.out, "Total scans: %d\nSafe: %d\nThreats: %d\n", stats.TotalScans, stats.SafeCount, stats.ThreatCount)
	return stats, nil
}

// Status prints the presentation status of an address
func (f *CLIFrontend) Status(ctx context.Context, address string) (status.Status, error) {
	st, verdict, err := status.Current(ctx, f.service, address)
	if err != nil {
		return status.Unknown, err
	}
	if f.asJSON {
		return st, f.printJSON(statusResponse{Address: address, Status: st, Verdict: verdict})
	}
	fmt.Fprintf(f.out, "%s: %s\n", address, st)
	return st, nil
}

// List prints the cached safe addresses and threat verdicts
func (f *CLIFrontend) List(ctx context.Context) error {
	safe, err := f.service.SafeAddresses(ctx)
	if err != nil {
		return err
	}
	threats, err := f.service.ThreatVerdicts(ctx)
	if err != nil {
		return err
	}
	if f.asJSON {
		return f.printJSON(map[string]interface{}{"safe": safe, "threats": threats})
	}

	fmt.Fprintf(f.out, "=== Threats (%d) ===\n", len(threats))
	for _, v := range threats {
		fmt.Fprintf(f.out, "%-6s %.2f %s\n", v.RiskLevel, v.Score, v.Address)
	}
	fmt.Fprintf(f.out, "\n=== Safe (%d) ===\n", len(safe))
	for _, address := range safe {
		fmt.Fprintln(f.out, address)
	}
	return nil
}

// Clear empties the verdict cache
func (f *CLIFrontend) Clear(ctx context.Context) error {
	if err := f.service.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(f.out, "Verdict cache cleared")
	return nil
}

// Feedback records whether the cached verdict for an address was right
func (f *CLIFrontend) Feedback(ctx context.Context, address string, isCorrect bool, comments string) (*core.Feedback, error) {
	fb, err := f.service.SubmitFeedback(ctx, address, isCorrect, comments)
	if err != nil {
		return nil, err
	}
	if f.asJSON {
		return fb, f.printJSON(fb)
	}
	fmt.Fprintf(f.out, "Feedback %s recorded for %s (verdict correct: %t)\n", fb.ID, fb.Address, fb.IsCorrect)
	return fb, nil
}

func (f *CLIFrontend) printAttributions(attributions []explain.Attribution) {
	fmt.Fprintf(f.out, "\n=== Attribution ===\n")
	if len(attributions) == 0 {
		fmt.Fprintf(f.out, "No contributing features\n")
		return
	}
	for _, a := range attributions {
		bar := strings.Repeat("#", int(a.Percent/5))
		fmt.Fprintf(f.out, "%-28s %6.2f%% %s\n", a.Description, a.Percent, bar)
	}
}

func (f *CLIFrontend) printJSON(v interface{}) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
