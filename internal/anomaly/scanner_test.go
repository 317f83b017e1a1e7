package anomaly

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"power-price-tracker/internal/storage"
)

type fakeSource struct {
	window map[string]map[string][]storage.Observation
}

func (f *fakeSource) Window(daysBack int) map[string]map[string][]storage.Observation {
	return f.window
}

func seriesOf(productID, retailer string, prices ...float64) []storage.Observation {
	base := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	series := make([]storage.Observation, len(prices))
	for i, p := range prices {
		series[i] = storage.Observation{
			ProductID: productID,
			Retailer:  retailer,
			Price:     decimal.NewFromFloat(p),
			InStock:   true,
			ScrapedAt: base.AddDate(0, 0, i),
		}
	}
	return series
}

func newTestScanner(window map[string]map[string][]storage.Observation) *Scanner {
	return New(&fakeSource{window: window}, Options{}, zerolog.Nop())
}

func countType(report Report, typ Type) int {
	n := 0
	for _, a := range report.Anomalies {
		if a.Type == typ {
			n++
		}
	}
	return n
}

func TestScanStablePricingIsClean(t *testing.T) {
	scanner := newTestScanner(map[string]map[string][]storage.Observation{
		"p1": {"amazon": seriesOf("p1", "amazon", 800, 790, 810, 795)},
	})

	report := scanner.Scan()
	if len(report.Anomalies) != 0 {
		t.Fatalf("small fluctuations should produce no anomalies, got %+v", report.Anomalies)
	}
	if report.Anomalies == nil {
		t.Fatal("report should carry an empty slice, not nil")
	}
}

func TestScanShortSeriesSkipped(t *testing.T) {
	scanner := newTestScanner(map[string]map[string][]storage.Observation{
		"p1": {"amazon": seriesOf("p1", "amazon", 800, 200)},
	})

	if report := scanner.Scan(); len(report.Anomalies) != 0 {
		t.Fatalf("series shorter than 3 must be skipped, got %+v", report.Anomalies)
	}
}

func TestScanLargePriceChange(t *testing.T) {
	scanner := newTestScanner(map[string]map[string][]storage.Observation{
		"p1": {"amazon": seriesOf("p1", "amazon", 800, 380, 380)},
	})

	report := scanner.Scan()
	if got := countType(report, TypeLargePriceChange); got != 1 {
		t.Fatalf("expected 1 large_price_change (800->380 is a 52.5%% drop), got %d: %+v", got, report.Anomalies)
	}

	var jump Anomaly
	for _, a := range report.Anomalies {
		if a.Type == TypeLargePriceChange {
			jump = a
		}
	}
	if jump.Severity != SeverityMedium {
		t.Fatalf("a change between 50%% and 75%% should be medium severity, got %s", jump.Severity)
	}
	if jump.PreviousPrice == nil || !jump.PreviousPrice.Equal(decimal.NewFromInt(800)) {
		t.Fatalf("previous price should be 800, got %v", jump.PreviousPrice)
	}
	if jump.CurrentPrice == nil || !jump.CurrentPrice.Equal(decimal.NewFromInt(380)) {
		t.Fatalf("current price should be 380, got %v", jump.CurrentPrice)
	}
}

func TestScanLargePriceChangeHighSeverity(t *testing.T) {
	scanner := newTestScanner(map[string]map[string][]storage.Observation{
		"p1": {"amazon": seriesOf("p1", "amazon", 800, 150, 160)},
	})

	report := scanner.Scan()
	if got := countType(report, TypeLargePriceChange); got != 1 {
		t.Fatalf("expected 1 large_price_change, got %d", got)
	}
	for _, a := range report.Anomalies {
		if a.Type == TypeLargePriceChange && a.Severity != SeverityHigh {
			t.Fatalf("an 81%% drop should be high severity, got %s", a.Severity)
		}
	}
}

func TestScanStaticPricingExactlyOncePerSeries(t *testing.T) {
	scanner := newTestScanner(map[string]map[string][]storage.Observation{
		"p1": {"amazon": seriesOf("p1", "amazon", 800, 800, 800, 800, 800)},
	})

	report := scanner.Scan()
	if got := countType(report, TypeStaticPricing); got != 1 {
		t.Fatalf("flat 5-point series should yield exactly one static_pricing, got %d: %+v", got, report.Anomalies)
	}
	for _, a := range report.Anomalies {
		if a.Type == TypeStaticPricing {
			if a.PointsStatic != 5 {
				t.Fatalf("points_static should be 5, got %d", a.PointsStatic)
			}
			if a.Severity != SeverityMedium {
				t.Fatalf("static_pricing should be medium severity, got %s", a.Severity)
			}
		}
	}
}

func TestScanStaticPricingNeedsMinLength(t *testing.T) {
	scanner := newTestScanner(map[string]map[string][]storage.Observation{
		"p1": {"amazon": seriesOf("p1", "amazon", 800, 800, 800, 800)},
	})

	if report := scanner.Scan(); countType(report, TypeStaticPricing) != 0 {
		t.Fatalf("4 identical points are below the static threshold, got %+v", report.Anomalies)
	}
}

func TestScanUnrealisticPrice(t *testing.T) {
	// Mean of (800, 805, 8, 810) is ~605; 8 < 0.1*605, so one point flags.
	scanner := newTestScanner(map[string]map[string][]storage.Observation{
		"p1": {"amazon": seriesOf("p1", "amazon", 800, 805, 8, 810)},
	})

	report := scanner.Scan()
	if got := countType(report, TypeUnrealisticPrice); got != 1 {
		t.Fatalf("expected 1 unrealistic_price, got %d: %+v", got, report.Anomalies)
	}
	for _, a := range report.Anomalies {
		if a.Type == TypeUnrealisticPrice {
			if a.Severity != SeverityHigh {
				t.Fatalf("unrealistic_price should be high severity, got %s", a.Severity)
			}
			if a.Price == nil || !a.Price.Equal(decimal.NewFromInt(8)) {
				t.Fatalf("flagged price should be 8, got %v", a.Price)
			}
		}
	}
}

func TestScanMultipleRetailersIndependent(t *testing.T) {
	scanner := newTestScanner(map[string]map[string][]storage.Observation{
		"p1": {
			"amazon": seriesOf("p1", "amazon", 800, 805, 810),
			"currys": seriesOf("p1", "currys", 400, 400, 400, 400, 400),
		},
	})

	report := scanner.Scan()
	if got := countType(report, TypeStaticPricing); got != 1 {
		t.Fatalf("only the currys series is static, got %d static anomalies", got)
	}
	for _, a := range report.Anomalies {
		if a.Retailer != "currys" {
			t.Fatalf("anomaly attributed to wrong retailer: %+v", a)
		}
	}
}
