package app

import (
	"context"
	"errors"
	"fmt"
)

// Validate runs the validation pipeline once for a manually supplied price
// and prints the verdict. Useful when investigating why the service rejected
// a scraped value.
func (a *App) Validate(_ context.Context, opts ValidateOptions) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}

	category := opts.Category
	if category == "" {
		for _, product := range a.Config.Products {
			if product.ID == opts.ProductID {
				category = product.Category
				break
			}
		}
	}

	verdict := a.newValidator(store).Validate(opts.ProductID, opts.Retailer, opts.Price, category)

	if verdict.Accepted {
		fmt.Printf("ACCEPTED: %s\n", verdict.Reason)
	} else {
		fmt.Printf("REJECTED: %s\n", verdict.Reason)
	}
	for _, warning := range verdict.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}

	if !verdict.Accepted {
		return errors.New("price rejected")
	}
	return nil
}
