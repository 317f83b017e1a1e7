package cli

import (
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the static price catalogue from the latest data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Generate(cmd.Context())
	},
}
