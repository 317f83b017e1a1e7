package storage

import (
	"github.com/shopspring/decimal"
)

// Read-side views over the partition files. These hold no state of their own;
// every call re-derives its answer from whatever is durably on disk, so a
// partial day or a missing partition degrades the answer rather than breaking
// it.

// LatestPricePerRetailer returns, for each retailer, the chronologically last
// price in the most recent partition containing the product. Ties within a
// day are broken by insertion order, last wins.
func (s *Store) LatestPricePerRetailer(productID string) map[string]decimal.Decimal {
	dates := s.PartitionDates()
	for i := len(dates) - 1; i >= 0; i-- {
		entries := s.ReadPartition(dates[i])[productID]
		if len(entries) == 0 {
			continue
		}
		latest := make(map[string]decimal.Decimal, len(entries))
		for _, obs := range entries {
			latest[obs.Retailer] = obs.Price
		}
		return latest
	}
	return map[string]decimal.Decimal{}
}

// SeriesPoints returns the dated (product, retailer) price series over
// [today-daysBack, today], oldest first. Missing partitions contribute
// nothing.
func (s *Store) SeriesPoints(productID, retailer string, daysBack int) []PricePoint {
	var points []PricePoint
	today := s.Today()
	for i := daysBack; i >= 0; i-- {
		for _, obs := range s.ReadPartition(today.AddDays(-i))[productID] {
			if obs.Retailer == retailer {
				points = append(points, PricePoint{ScrapedAt: obs.ScrapedAt, Price: obs.Price})
			}
		}
	}
	return points
}

// PriceSeries is SeriesPoints without the timestamps, for variance analysis.
func (s *Store) PriceSeries(productID, retailer string, daysBack int) []decimal.Decimal {
	points := s.SeriesPoints(productID, retailer, daysBack)
	prices := make([]decimal.Decimal, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	return prices
}

// SameDayCrossRetailerPrices returns the latest price per retailer restricted
// to today's partition. Used for cross-retailer comparison at validation
// time, which must be "as of now", not historical.
func (s *Store) SameDayCrossRetailerPrices(productID string) map[string]decimal.Decimal {
	prices := map[string]decimal.Decimal{}
	for _, obs := range s.ReadPartition(s.Today())[productID] {
		prices[obs.Retailer] = obs.Price
	}
	return prices
}

// Window returns every (product, retailer) series over
// [today-daysBack, today] in chronological order. The anomaly scanner's
// input.
func (s *Store) Window(daysBack int) map[string]map[string][]Observation {
	window := map[string]map[string][]Observation{}
	today := s.Today()
	for i := daysBack; i >= 0; i-- {
		for productID, entries := range s.ReadPartition(today.AddDays(-i)) {
			byRetailer := window[productID]
			if byRetailer == nil {
				byRetailer = map[string][]Observation{}
				window[productID] = byRetailer
			}
			for _, obs := range entries {
				byRetailer[obs.Retailer] = append(byRetailer[obs.Retailer], obs)
			}
		}
	}
	return window
}

// CountDay returns the total observation count in one day's partition.
func (s *Store) CountDay(date Date) int {
	total := 0
	for _, entries := range s.ReadPartition(date) {
		total += len(entries)
	}
	return total
}
