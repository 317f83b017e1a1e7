package cli

import (
	"github.com/spf13/cobra"

	"power-price-tracker/internal/app"
)

var (
	scanDays int
	scanJSON bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan recent price history for anomalies",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Scan(cmd.Context(), app.ScanOptions{
			Days: scanDays,
			JSON: scanJSON,
		})
	},
}

func init() {
	scanCmd.Flags().IntVar(&scanDays, "days", 0, "Lookback window in days (defaults to config)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Emit the report as JSON")
}
