package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
)

// Scan runs the batch anomaly scan over the lookback window and prints the
// report.
func (a *App) Scan(_ context.Context, opts ScanOptions) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}

	if opts.Days > 0 {
		a.Config.Scanner.LookbackDays = opts.Days
	}

	report := a.newScanner(store).Scan()

	if opts.JSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	if len(report.Anomalies) == 0 {
		fmt.Fprintf(os.Stdout, "no anomalies in the last %d days\n", report.LookbackDays)
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Type\tProduct\tRetailer\tSeverity\tDate\tDetail")
	for _, anom := range report.Anomalies {
		detail := ""
		switch {
		case anom.PreviousPrice != nil && anom.CurrentPrice != nil:
			detail = fmt.Sprintf("£%s -> £%s (%.1f%%)",
				anom.PreviousPrice.StringFixed(2), anom.CurrentPrice.StringFixed(2), anom.ChangePct)
		case anom.PointsStatic > 0:
			detail = fmt.Sprintf("£%s across %d points", anom.Price.StringFixed(2), anom.PointsStatic)
		case anom.Price != nil:
			detail = fmt.Sprintf("£%s vs average £%.2f", anom.Price.StringFixed(2), anom.AveragePrice)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\n",
			anom.Type, anom.ProductID, anom.Retailer, anom.Severity, anom.Date, detail)
	}
	writer.Flush()
	return nil
}
