package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"power-price-tracker/internal/app"
)

var (
	validateProduct  string
	validateRetailer string
	validatePrice    string
	validateCategory string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the validation pipeline for a single price",
	RunE: func(cmd *cobra.Command, args []string) error {
		price, err := decimal.NewFromString(validatePrice)
		if err != nil {
			return fmt.Errorf("invalid --price value: %w", err)
		}

		return getApp().Validate(cmd.Context(), app.ValidateOptions{
			ProductID: validateProduct,
			Retailer:  validateRetailer,
			Price:     price,
			Category:  validateCategory,
		})
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateProduct, "product", "", "Product id to validate against")
	validateCmd.Flags().StringVar(&validateRetailer, "retailer", "", "Retailer reporting the price")
	validateCmd.Flags().StringVar(&validatePrice, "price", "", "Price in GBP, e.g. 799.00")
	validateCmd.Flags().StringVar(&validateCategory, "category", "", "Category override (defaults to the product's configured category)")
	_ = validateCmd.MarkFlagRequired("product")
	_ = validateCmd.MarkFlagRequired("retailer")
	_ = validateCmd.MarkFlagRequired("price")
}
