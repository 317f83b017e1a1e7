package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"power-price-tracker/internal/anomaly"
	"power-price-tracker/internal/storage"
)

type fakeStore struct {
	today    storage.Date
	countDay int
	window   map[string]map[string][]storage.Observation
}

func (f *fakeStore) Today() storage.Date            { return f.today }
func (f *fakeStore) CountDay(date storage.Date) int { return f.countDay }

func (f *fakeStore) Window(daysBack int) map[string]map[string][]storage.Observation {
	return f.window
}

type fakeStats struct {
	stats map[string]storage.ScrapeStats
	err   error
}

func (f *fakeStats) RetailerScrapeStats(ctx context.Context, since time.Time) (map[string]storage.ScrapeStats, error) {
	return f.stats, f.err
}

var reportNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func seriesAt(productID, retailer string, last time.Time, prices ...float64) []storage.Observation {
	series := make([]storage.Observation, len(prices))
	for i, p := range prices {
		series[i] = storage.Observation{
			ProductID: productID,
			Retailer:  retailer,
			Price:     decimal.NewFromFloat(p),
			InStock:   true,
			ScrapedAt: last.Add(-time.Duration(len(prices)-1-i) * time.Hour),
		}
	}
	return series
}

func emptyScan() anomaly.Report {
	return anomaly.Report{Anomalies: []anomaly.Anomaly{}}
}

func newTestReporter(store *fakeStore, stats storage.ScrapeStatsSource) *Reporter {
	return New(store, stats, Options{}, zerolog.Nop()).WithNow(func() time.Time { return reportNow })
}

func TestBuildReportFreshnessFloors(t *testing.T) {
	cases := []struct {
		name     string
		count    int
		overall  Status
		dataColl Status
	}{
		{"critical below 20", 19, StatusCritical, StatusCritical},
		{"degraded below 50", 49, StatusDegraded, StatusDegraded},
		{"healthy at 50", 50, StatusHealthy, StatusHealthy},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{today: "2026-08-30", countDay: tc.count}
			report := newTestReporter(store, nil).BuildReport(context.Background(), emptyScan())

			if report.UpdatesToday != tc.count {
				t.Fatalf("updates today: expected %d, got %d", tc.count, report.UpdatesToday)
			}
			if report.DataCollection != tc.dataColl {
				t.Fatalf("data collection: expected %s, got %s", tc.dataColl, report.DataCollection)
			}
			if report.Overall != tc.overall {
				t.Fatalf("overall: expected %s, got %s", tc.overall, report.Overall)
			}
		})
	}
}

func TestBuildReportRetailerSuccessRate(t *testing.T) {
	store := &fakeStore{
		today:    "2026-08-30",
		countDay: 100,
		window: map[string]map[string][]storage.Observation{
			"p1": {
				"amazon": seriesAt("p1", "amazon", reportNow, 800, 805, 790),
				"currys": seriesAt("p1", "currys", reportNow, 810),
			},
		},
	}
	stats := &fakeStats{stats: map[string]storage.ScrapeStats{
		"amazon": {Attempts: 4, Successes: 3, Rejected: 1, LastScrape: reportNow},
		"currys": {Attempts: 10, Successes: 1, LastScrape: reportNow},
	}}

	report := newTestReporter(store, stats).BuildReport(context.Background(), emptyScan())

	amazon := report.Retailers["amazon"]
	if amazon.Attempts != 4 || amazon.Successes != 3 || amazon.Rejected != 1 {
		t.Fatalf("amazon counts wrong: %+v", amazon)
	}
	if amazon.SuccessRate != 75 || amazon.Status != StatusHealthy {
		t.Fatalf("75%% success rate should be healthy, got %+v", amazon)
	}
	if amazon.MinPrice != 790 || amazon.MaxPrice != 805 {
		t.Fatalf("amazon price range wrong: %+v", amazon)
	}

	currys := report.Retailers["currys"]
	if currys.SuccessRate != 10 || currys.Status != StatusDegraded {
		t.Fatalf("10%% success rate should be degraded, got %+v", currys)
	}
	if report.Overall != StatusDegraded {
		t.Fatalf("a degraded retailer should degrade the overall status, got %s", report.Overall)
	}
}

func TestBuildReportScrapeStatsFailureFallsBack(t *testing.T) {
	store := &fakeStore{
		today:    "2026-08-30",
		countDay: 100,
		window: map[string]map[string][]storage.Observation{
			"p1": {"amazon": seriesAt("p1", "amazon", reportNow, 800, 805)},
		},
	}
	stats := &fakeStats{err: errors.New("connection refused")}

	report := newTestReporter(store, stats).BuildReport(context.Background(), emptyScan())

	amazon := report.Retailers["amazon"]
	if amazon.Attempts != 2 || amazon.Successes != 2 {
		t.Fatalf("fallback should equate attempts with successes, got %+v", amazon)
	}
	if amazon.SuccessRate != 100 || amazon.Status != StatusHealthy {
		t.Fatalf("fallback success rate should be 100%%, got %+v", amazon)
	}
}

func TestBuildReportAttemptsNeverBelowSuccesses(t *testing.T) {
	store := &fakeStore{
		today:    "2026-08-30",
		countDay: 100,
		window: map[string]map[string][]storage.Observation{
			"p1": {"amazon": seriesAt("p1", "amazon", reportNow, 800, 805, 790)},
		},
	}
	// A lagging scrape log reports fewer attempts than the partitions hold.
	stats := &fakeStats{stats: map[string]storage.ScrapeStats{
		"amazon": {Attempts: 1, Successes: 1, LastScrape: reportNow},
	}}

	report := newTestReporter(store, stats).BuildReport(context.Background(), emptyScan())

	amazon := report.Retailers["amazon"]
	if amazon.Attempts != 3 {
		t.Fatalf("attempts should be clamped up to the 3 observed successes, got %+v", amazon)
	}
	if amazon.SuccessRate != 100 {
		t.Fatalf("clamped rate should be 100%%, got %+v", amazon)
	}
}

func TestBuildReportStalePairs(t *testing.T) {
	staleAt := reportNow.Add(-72 * time.Hour)
	store := &fakeStore{
		today:    "2026-08-30",
		countDay: 100,
		window: map[string]map[string][]storage.Observation{
			"p1": {
				"amazon": seriesAt("p1", "amazon", staleAt, 800),
				"currys": seriesAt("p1", "currys", reportNow, 810),
			},
		},
	}

	report := newTestReporter(store, nil).BuildReport(context.Background(), emptyScan())

	if len(report.StalePairs) != 1 {
		t.Fatalf("expected 1 stale pair, got %+v", report.StalePairs)
	}
	pair := report.StalePairs[0]
	if pair.ProductID != "p1" || pair.Retailer != "amazon" || !pair.LastSeen.Equal(staleAt) {
		t.Fatalf("unexpected stale pair: %+v", pair)
	}
}

func TestBuildReportHighSeverityAnomaliesDegrade(t *testing.T) {
	store := &fakeStore{today: "2026-08-30", countDay: 100}
	scan := anomaly.Report{Anomalies: []anomaly.Anomaly{
		{Type: anomaly.TypeStaticPricing, Severity: anomaly.SeverityMedium},
		{Type: anomaly.TypeUnrealisticPrice, Severity: anomaly.SeverityHigh},
	}}

	report := newTestReporter(store, nil).BuildReport(context.Background(), scan)

	if report.AnomalyCount != 2 || report.HighSeverity != 1 {
		t.Fatalf("anomaly counts wrong: count=%d high=%d", report.AnomalyCount, report.HighSeverity)
	}
	if report.Overall != StatusDegraded {
		t.Fatalf("a high severity anomaly should degrade a healthy system, got %s", report.Overall)
	}
	if len(report.Recommendations) == 0 {
		t.Fatal("a non-healthy report should carry recommendations")
	}
}

func TestBuildReportRetailerWithNoObservations(t *testing.T) {
	store := &fakeStore{today: "2026-08-30", countDay: 100}
	stats := &fakeStats{stats: map[string]storage.ScrapeStats{
		"jackery": {Attempts: 6, Errors: 6, LastScrape: reportNow},
	}}

	report := newTestReporter(store, stats).BuildReport(context.Background(), emptyScan())

	entry, ok := report.Retailers["jackery"]
	if !ok {
		t.Fatalf("retailer with only failed attempts should still appear, got %+v", report.Retailers)
	}
	if entry.Status != StatusDegraded || entry.Attempts != 6 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if report.Overall != StatusDegraded {
		t.Fatalf("overall should be degraded, got %s", report.Overall)
	}
}
