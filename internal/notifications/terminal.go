package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/azure/carbon-dashboard/internal/metrics"
	"github.com/azure/carbon-dashboard/internal/models"
)

// TerminalService prints digests to a writer and optionally saves them as JSON.
// Used by the one-shot report command.
type TerminalService struct {
	out     io.Writer
	saveDir string
}

var _ NotificationInterface = (*TerminalService)(nil)

// NewTerminalService writes to out; an empty saveDir skips the JSON copy
func NewTerminalService(out io.Writer, saveDir string) *TerminalService {
	return &TerminalService{out: out, saveDir: saveDir}
}

func (t *TerminalService) SendReport(ctx context.Context, report *models.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rule := strings.Repeat("=", 70)
	fmt.Fprintln(t.out, "\n"+rule)
	fmt.Fprintln(t.out, "🌍 CARBON EMISSIONS DIGEST")
	fmt.Fprintln(t.out, rule)
	fmt.Fprintf(t.out, "📅 Period: %s\n", report.Period)
	fmt.Fprintf(t.out, "🕒 Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC"))

	if m := report.Metrics; m != nil {
		fmt.Fprintf(t.out, "🏭 Total Emissions: %s\n", metrics.FormatEmissions(float64(m.TotalEmissions)))
		fmt.Fprintf(t.out, "📊 Average per Company: %s\n", metrics.FormatEmissions(float64(m.AverageEmissions)))
		fmt.Fprintf(t.out, "📈 Trend: %s (%s)\n", metrics.FormatPercentage(m.TrendPercentage), metrics.TrendLevelOf(m.TrendPercentage))
		fmt.Fprintf(t.out, "🔝 Top Emitter: %s\n", m.TopEmittingCompany)
	}
	fmt.Fprintf(t.out, "📝 Posts: %d\n", report.TotalPosts)

	if len(report.Companies) > 0 {
		fmt.Fprintln(t.out, "\n🏢 Companies:")
		for _, c := range report.Companies {
			fmt.Fprintf(t.out, "   • %-25s %-3s %14s  trend %7s  efficiency %.2f\n",
				c.Name, c.Country, metrics.FormatEmissions(c.Emissions), metrics.FormatPercentage(c.Trend), c.Efficiency)
		}
	}

	if report.Error != "" {
		fmt.Fprintf(t.out, "\n⚠️  Load errors: %s\n", report.Error)
	}

	if t.saveDir != "" {
		path, err := t.saveReport(report)
		if err != nil {
			fmt.Fprintf(t.out, "\n⚠️  Warning: could not save report: %v\n", err)
		} else {
			fmt.Fprintf(t.out, "\n💾 Report saved to: %s\n", path)
		}
	}

	fmt.Fprintln(t.out, rule)
	return nil
}

func (t *TerminalService) SendAlert(ctx context.Context, alert *models.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fmt.Fprintln(t.out, "\n🚨 ALERT")
	fmt.Fprintf(t.out, "Type: %s\n", alert.Type)
	fmt.Fprintf(t.out, "Title: %s\n", alert.Title)
	fmt.Fprintf(t.out, "Message: %s\n", alert.Message)
	return nil
}

func (t *TerminalService) saveReport(report *models.Report) (string, error) {
	if err := os.MkdirAll(t.saveDir, 0755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("emissions_digest_%s.json", report.GeneratedAt.Format("2006-01-02_15-04-05"))
	path := filepath.Join(t.saveDir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	return path, nil
}
