// Package collector acquires raw price observations from retailer product
// pages. Per-site heuristics live in configuration (CSS selectors and
// out-of-stock markers); the fetching and extraction mechanics are shared.
package collector

import (
	"context"
	"errors"

	"power-price-tracker/internal/storage"
)

var (
	// ErrPriceNotFound indicates the page loaded but no price could be
	// extracted. Distinct from a fetch error: the page layout changed or
	// the product is gone, not the network.
	ErrPriceNotFound = errors.New("collector: price not found on page")
)

// Product identifies one catalogue entry to collect.
type Product struct {
	ID       string
	Category string
	URL      string
}

// Collector produces observations for one retailer.
type Collector interface {
	Retailer() string
	Collect(ctx context.Context, product Product) (storage.Observation, error)
}
