package app

import (
	"context"

	"power-price-tracker/internal/site"
)

// Generate renders the static price catalogue from the latest partition.
func (a *App) Generate(_ context.Context) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}

	return site.New(store, a.Config.Site, a.Config.Products, a.Logger).Generate()
}
