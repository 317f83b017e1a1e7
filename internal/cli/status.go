package cli

import (
	"github.com/spf13/cobra"

	"power-price-tracker/internal/app"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a health report of collection freshness and data quality",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Status(cmd.Context(), app.StatusOptions{JSON: statusJSON})
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Emit the report as JSON")
}
