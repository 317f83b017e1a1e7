package cli

import (
	"github.com/spf13/cobra"

	"power-price-tracker/internal/app"
)

var (
	exportProduct   string
	exportRetailer  string
	exportDays      int
	exportCSVPath   string
	exportPNGPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a price series as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(cmd.Context(), app.ExportOptions{
			ProductID: exportProduct,
			Retailer:  exportRetailer,
			Days:      exportDays,
			CSVPath:   exportCSVPath,
			PNGPath:   exportPNGPath,
			MaxPoints: exportMaxPoints,
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportProduct, "product", "", "Product id to export")
	exportCmd.Flags().StringVar(&exportRetailer, "retailer", "", "Retailer to export")
	exportCmd.Flags().IntVar(&exportDays, "days", 30, "Lookback window in days")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
