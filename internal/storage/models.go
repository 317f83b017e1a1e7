package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Partition files persist prices as JSON numbers, matching the data
	// already on disk from earlier deployments.
	decimal.MarshalJSONWithoutQuotes = true
}

// Observation is one scrape result: a price seen for a product at a retailer
// at a point in time. Observations are immutable once stored; corrections are
// new observations.
type Observation struct {
	ProductID string          `json:"-"`
	Retailer  string          `json:"retailer"`
	Price     decimal.Decimal `json:"price"`
	InStock   bool            `json:"in_stock"`
	ScrapedAt time.Time       `json:"scraped_at"`
	URL       string          `json:"url"`
}

// PricePoint is one dated price in a (product, retailer) series.
type PricePoint struct {
	ScrapedAt time.Time
	Price     decimal.Decimal
}

const dayLayout = "2006-01-02"

// Date keys one calendar-day partition, formatted YYYY-MM-DD (UTC).
type Date string

// DateOf returns the partition date for a timestamp.
func DateOf(t time.Time) Date {
	return Date(t.UTC().Format(dayLayout))
}

// Time returns midnight UTC of the partition day.
func (d Date) Time() time.Time {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return time.Time{}
	}
	return t
}

// AddDays shifts the date by n calendar days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) valid() bool {
	_, err := time.Parse(dayLayout, string(d))
	return err == nil
}
