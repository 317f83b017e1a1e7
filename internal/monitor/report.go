package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"power-price-tracker/internal/anomaly"
	"power-price-tracker/internal/config"
	"power-price-tracker/internal/storage"
)

// Status grades a component or the whole system.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// RetailerReport summarises one retailer's recent collection performance.
type RetailerReport struct {
	Attempts    int64     `json:"attempts"`
	Successes   int64     `json:"successes"`
	Rejected    int64     `json:"rejected"`
	SuccessRate float64   `json:"success_rate"`
	MinPrice    float64   `json:"min_price"`
	MaxPrice    float64   `json:"max_price"`
	LastScrape  time.Time `json:"last_scrape"`
	Status      Status    `json:"status"`
}

// StalePair flags a (product, retailer) whose latest observation is old
// enough to suggest the scraper has stopped seeing live prices.
type StalePair struct {
	ProductID string    `json:"product_id"`
	Retailer  string    `json:"retailer"`
	LastSeen  time.Time `json:"last_seen"`
}

// Report is the aggregated health view. Pure aggregation over the store, the
// scrape log, and the anomaly scan; no decisions beyond threshold
// comparisons.
type Report struct {
	GeneratedAt     time.Time                 `json:"generated_at"`
	Overall         Status                    `json:"overall_status"`
	UpdatesToday    int                       `json:"updates_today"`
	DataCollection  Status                    `json:"data_collection"`
	Retailers       map[string]RetailerReport `json:"retailers"`
	StalePairs      []StalePair               `json:"stale_pairs,omitempty"`
	AnomalyCount    int                       `json:"anomaly_count"`
	HighSeverity    int                       `json:"high_severity_anomalies"`
	Anomalies       []anomaly.Anomaly         `json:"anomalies,omitempty"`
	CriticalIssues  []string                  `json:"critical_issues,omitempty"`
	Recommendations []string                  `json:"recommendations,omitempty"`
}

// StoreView is the subset of the store the reporter reads.
type StoreView interface {
	Today() storage.Date
	CountDay(date storage.Date) int
	Window(daysBack int) map[string]map[string][]storage.Observation
}

// Options hold the report thresholds.
type Options struct {
	CriticalFloor   int
	DegradedFloor   int
	MinSuccessRate  float64
	StaleAfter      time.Duration
	PerformanceDays int
}

// OptionsFromConfig maps the monitor config block.
func OptionsFromConfig(cfg config.MonitorConfig) Options {
	return Options{
		CriticalFloor:  cfg.CriticalFloor,
		DegradedFloor:  cfg.DegradedFloor,
		MinSuccessRate: cfg.MinSuccessRate,
		StaleAfter:     cfg.StaleAfter,
	}
}

// Reporter builds health reports. The scrape stats source is optional; JSON
// partitions record successes only, so without it attempt counts fall back
// to max(attempts, successes) per retailer.
type Reporter struct {
	store  StoreView
	stats  storage.ScrapeStatsSource
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Reporter. stats may be nil.
func New(store StoreView, stats storage.ScrapeStatsSource, opts Options, logger zerolog.Logger) *Reporter {
	if opts.CriticalFloor <= 0 {
		opts.CriticalFloor = 20
	}
	if opts.DegradedFloor <= 0 {
		opts.DegradedFloor = 50
	}
	if opts.MinSuccessRate <= 0 {
		opts.MinSuccessRate = 75
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 48 * time.Hour
	}
	if opts.PerformanceDays <= 0 {
		opts.PerformanceDays = 7
	}
	return &Reporter{
		store:  store,
		stats:  stats,
		opts:   opts,
		logger: logger.With().Str("component", "monitor").Logger(),
		now:    time.Now,
	}
}

// WithNow overrides the reporter's clock. Test hook.
func (r *Reporter) WithNow(now func() time.Time) *Reporter {
	r.now = now
	return r
}

// BuildReport assembles the current health view. Failures reading the scrape
// log degrade the report's attempt counts, never the report itself.
func (r *Reporter) BuildReport(ctx context.Context, scan anomaly.Report) Report {
	now := r.now().UTC()
	report := Report{
		GeneratedAt: now,
		Overall:     StatusHealthy,
		Retailers:   map[string]RetailerReport{},
	}

	// Freshness: today's observation count against the floors.
	report.UpdatesToday = r.store.CountDay(r.store.Today())
	switch {
	case report.UpdatesToday < r.opts.CriticalFloor:
		report.DataCollection = StatusCritical
		report.Overall = StatusCritical
		report.CriticalIssues = append(report.CriticalIssues,
			fmt.Sprintf("very low data collection activity today (%d observations)", report.UpdatesToday))
	case report.UpdatesToday < r.opts.DegradedFloor:
		report.DataCollection = StatusDegraded
		report.Overall = StatusDegraded
		report.Recommendations = append(report.Recommendations, "data collection below optimal levels")
	default:
		report.DataCollection = StatusHealthy
	}

	r.fillRetailers(ctx, &report)
	r.fillStalePairs(&report, now)

	report.Anomalies = scan.Anomalies
	report.AnomalyCount = len(scan.Anomalies)
	for _, a := range scan.Anomalies {
		if a.Severity == anomaly.SeverityHigh {
			report.HighSeverity++
		}
	}
	if report.HighSeverity > 0 && report.Overall == StatusHealthy {
		report.Overall = StatusDegraded
	}

	if report.Overall != StatusHealthy {
		report.Recommendations = append(report.Recommendations,
			"check scraper logs for specific error patterns",
			"verify network connectivity to retailer sites",
			"review anti-scraping measures on failing sites",
		)
	}

	return report
}

func (r *Reporter) fillRetailers(ctx context.Context, report *Report) {
	// Successes and observed price ranges come from the partitions.
	type acc struct {
		successes int64
		min, max  float64
		last      time.Time
	}
	byRetailer := map[string]*acc{}
	for _, retailers := range r.store.Window(r.opts.PerformanceDays) {
		for retailer, series := range retailers {
			a := byRetailer[retailer]
			if a == nil {
				a = &acc{}
				byRetailer[retailer] = a
			}
			for _, obs := range series {
				p := obs.Price.InexactFloat64()
				if a.successes == 0 || p < a.min {
					a.min = p
				}
				if p > a.max {
					a.max = p
				}
				a.successes++
				if obs.ScrapedAt.After(a.last) {
					a.last = obs.ScrapedAt
				}
			}
		}
	}

	// Attempt counts from the relational scrape log when available.
	var logged map[string]storage.ScrapeStats
	if r.stats != nil {
		since := r.now().UTC().AddDate(0, 0, -r.opts.PerformanceDays)
		var err error
		logged, err = r.stats.RetailerScrapeStats(ctx, since)
		if err != nil {
			r.logger.Error().Err(err).Msg("scrape stats unavailable; falling back to partition successes")
			logged = nil
		}
	}

	for retailer, a := range byRetailer {
		entry := RetailerReport{
			Successes:  a.successes,
			MinPrice:   a.min,
			MaxPrice:   a.max,
			LastScrape: a.last,
		}
		entry.Attempts = a.successes
		if s, ok := logged[retailer]; ok {
			entry.Attempts = s.Attempts
			entry.Rejected = s.Rejected
			if s.LastScrape.After(entry.LastScrape) {
				entry.LastScrape = s.LastScrape
			}
		}
		if entry.Attempts < entry.Successes {
			entry.Attempts = entry.Successes
		}
		if entry.Attempts > 0 {
			entry.SuccessRate = float64(entry.Successes) / float64(entry.Attempts) * 100
		}

		entry.Status = StatusHealthy
		if entry.SuccessRate < r.opts.MinSuccessRate {
			entry.Status = StatusDegraded
			if report.Overall == StatusHealthy {
				report.Overall = StatusDegraded
			}
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("retailer %s success rate %.1f%% is below %.0f%%", retailer, entry.SuccessRate, r.opts.MinSuccessRate))
		}
		report.Retailers[retailer] = entry
	}

	// Retailers that logged attempts but produced no observations at all.
	for retailer, s := range logged {
		if _, seen := report.Retailers[retailer]; seen {
			continue
		}
		entry := RetailerReport{
			Attempts:   s.Attempts,
			Rejected:   s.Rejected,
			LastScrape: s.LastScrape,
			Status:     StatusDegraded,
		}
		if report.Overall == StatusHealthy {
			report.Overall = StatusDegraded
		}
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("retailer %s logged %d attempts with no accepted observations", retailer, s.Attempts))
		report.Retailers[retailer] = entry
	}
}

func (r *Reporter) fillStalePairs(report *Report, now time.Time) {
	cutoff := now.Add(-r.opts.StaleAfter)
	// Three days of lookback is enough: anything older is already covered
	// by the freshness floors.
	for productID, retailers := range r.store.Window(3) {
		for retailer, series := range retailers {
			last := series[len(series)-1].ScrapedAt
			if last.Before(cutoff) {
				report.StalePairs = append(report.StalePairs, StalePair{
					ProductID: productID,
					Retailer:  retailer,
					LastSeen:  last,
				})
			}
		}
	}
	sort.Slice(report.StalePairs, func(i, j int) bool {
		if report.StalePairs[i].ProductID != report.StalePairs[j].ProductID {
			return report.StalePairs[i].ProductID < report.StalePairs[j].ProductID
		}
		return report.StalePairs[i].Retailer < report.StalePairs[j].Retailer
	})
	if len(report.StalePairs) > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d product/retailer pairs have not updated within %s", len(report.StalePairs), r.opts.StaleAfter))
	}
}
