package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"power-price-tracker/internal/monitor"
	"power-price-tracker/internal/storage"
)

// Status builds and renders the system health report.
func (a *App) Status(ctx context.Context, opts StatusOptions) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}

	mirror, closeMirror, err := a.openMirror(ctx)
	if err != nil {
		// A broken mirror should not block the health view; it just
		// loses attempt-level stats.
		a.Logger.Error().Err(err).Msg("mirror unavailable for status")
		mirror = nil
	}
	if closeMirror != nil {
		defer closeMirror()
	}

	var stats storage.ScrapeStatsSource
	if mirror != nil {
		stats = mirror
	}

	scan := a.newScanner(store).Scan()
	report := a.newReporter(store, stats).BuildReport(ctx, scan)

	if opts.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	renderStatus(report)
	return nil
}

func renderStatus(report monitor.Report) {
	fmt.Fprintf(os.Stdout, "System status: %s (generated %s)\n",
		report.Overall, report.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(os.Stdout, "Observations today: %d (data collection %s)\n\n",
		report.UpdatesToday, report.DataCollection)

	if len(report.Retailers) > 0 {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Retailer", "Attempts", "Successes", "Rejected", "Success %", "Last scrape", "Status"})

		retailers := make([]string, 0, len(report.Retailers))
		for name := range report.Retailers {
			retailers = append(retailers, name)
		}
		sort.Strings(retailers)

		for _, name := range retailers {
			r := report.Retailers[name]
			last := ""
			if !r.LastScrape.IsZero() {
				last = r.LastScrape.UTC().Format(time.RFC3339)
			}
			t.AppendRow(table.Row{name, r.Attempts, r.Successes, r.Rejected,
				fmt.Sprintf("%.1f", r.SuccessRate), last, string(r.Status)})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	if report.AnomalyCount > 0 {
		fmt.Fprintf(os.Stdout, "\nAnomalies: %d (%d high severity)\n", report.AnomalyCount, report.HighSeverity)
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Type", "Product", "Retailer", "Severity", "Date"})
		for _, anom := range report.Anomalies {
			t.AppendRow(table.Row{string(anom.Type), anom.ProductID, anom.Retailer, string(anom.Severity), anom.Date})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	}

	if len(report.StalePairs) > 0 {
		fmt.Fprintln(os.Stdout, "\nStale pairs:")
		for _, pair := range report.StalePairs {
			fmt.Fprintf(os.Stdout, "  - %s @ %s (last seen %s)\n",
				pair.ProductID, pair.Retailer, pair.LastSeen.UTC().Format(time.RFC3339))
		}
	}

	if len(report.CriticalIssues) > 0 {
		fmt.Fprintln(os.Stdout, "\nCritical issues:")
		for _, issue := range report.CriticalIssues {
			fmt.Fprintf(os.Stdout, "  - %s\n", issue)
		}
	}

	if len(report.Recommendations) > 0 {
		fmt.Fprintln(os.Stdout, "\nRecommendations:")
		for _, rec := range report.Recommendations {
			fmt.Fprintf(os.Stdout, "  - %s\n", rec)
		}
	}
}
