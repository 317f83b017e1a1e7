package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
)

// Collect runs a single collection pass and prints a per-retailer summary.
func (a *App) Collect(ctx context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}

	mirror, closeMirror, err := a.openMirror(ctx)
	if err != nil {
		return err
	}
	if closeMirror != nil {
		defer closeMirror()
	}

	svc := a.newService(store, mirror, nil)

	stats, err := svc.RunOnce(ctx)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Retailer\tAttempts\tSuccesses\tNot found\tRejected\tErrors")
	retailers := make([]string, 0, len(stats.Retailers))
	for retailer := range stats.Retailers {
		retailers = append(retailers, retailer)
	}
	sort.Strings(retailers)
	for _, retailer := range retailers {
		tally := stats.Retailers[retailer]
		fmt.Fprintf(writer, "%s\t%d\t%d\t%d\t%d\t%d\n",
			retailer, tally.Attempts, tally.Successes, tally.NotFound, tally.Rejected, tally.Errors)
	}
	totals := stats.Totals()
	fmt.Fprintf(writer, "TOTAL\t%d\t%d\t%d\t%d\t%d\n",
		totals.Attempts, totals.Successes, totals.NotFound, totals.Rejected, totals.Errors)
	writer.Flush()

	return nil
}
