package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"power-price-tracker/internal/storage"
)

// Show prints the most recent observations from the latest partition.
func (a *App) Show(_ context.Context, opts ShowOptions) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}

	date, ok := store.LatestPartitionDate()
	if !ok {
		fmt.Fprintln(os.Stdout, "no observations found")
		return nil
	}

	var all []storage.Observation
	for _, entries := range store.ReadPartition(date) {
		all = append(all, entries...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ScrapedAt.After(all[j].ScrapedAt) })
	if opts.Limit > 0 && len(all) > opts.Limit {
		all = all[:opts.Limit]
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Time (UTC)\tProduct\tRetailer\tPrice\tStock\n")
	for _, obs := range all {
		stock := "in stock"
		if !obs.InStock {
			stock = "out of stock"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t£%s\t%s\n",
			obs.ScrapedAt.UTC().Format(time.RFC3339),
			obs.ProductID,
			obs.Retailer,
			obs.Price.StringFixed(2),
			stock,
		)
	}
	writer.Flush()
	return nil
}
