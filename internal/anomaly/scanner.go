package anomaly

import (
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"power-price-tracker/internal/config"
	"power-price-tracker/internal/storage"
)

// Type classifies a detected anomaly.
type Type string

const (
	TypeLargePriceChange Type = "large_price_change"
	TypeStaticPricing    Type = "static_pricing"
	TypeUnrealisticPrice Type = "unrealistic_price"
)

// Severity grades how urgently an anomaly needs a human look.
type Severity string

const (
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Anomaly is one flagged pattern in a (product, retailer) series. Produced
// fresh on each scan, never persisted: a report is a pure function of the
// store's contents over the lookback window.
type Anomaly struct {
	Type          Type             `json:"type"`
	ProductID     string           `json:"product_id"`
	Retailer      string           `json:"retailer"`
	Severity      Severity         `json:"severity"`
	Date          string           `json:"date"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	PreviousPrice *decimal.Decimal `json:"previous_price,omitempty"`
	CurrentPrice  *decimal.Decimal `json:"current_price,omitempty"`
	ChangePct     float64          `json:"change_percent,omitempty"`
	PointsStatic  int              `json:"points_static,omitempty"`
	AveragePrice  float64          `json:"average_price,omitempty"`
}

// Report is the JSON-serializable scan output consumed by CLI tooling.
type Report struct {
	GeneratedAt  time.Time `json:"generated_at"`
	LookbackDays int       `json:"lookback_days"`
	Anomalies    []Anomaly `json:"anomalies"`
}

// SeriesSource is the store view the scanner reads.
type SeriesSource interface {
	Window(daysBack int) map[string]map[string][]storage.Observation
}

// Options tune the scan thresholds.
type Options struct {
	LookbackDays     int
	JumpThresholdPct float64
	HighJumpPct      float64
	StaticMinLength  int
	UnrealisticLow   float64
	UnrealisticHigh  float64
}

// OptionsFromConfig maps the scanner config block.
func OptionsFromConfig(cfg config.ScannerConfig) Options {
	return Options{
		LookbackDays:     cfg.LookbackDays,
		JumpThresholdPct: cfg.JumpThresholdPct,
		HighJumpPct:      cfg.HighJumpPct,
		StaticMinLength:  cfg.StaticMinLength,
		UnrealisticLow:   cfg.UnrealisticLow,
		UnrealisticHigh:  cfg.UnrealisticHigh,
	}
}

// Scanner runs batch, backward-looking analysis over accepted data. It
// deliberately overlaps the validator's concerns at a different temporal
// granularity: the validator judges one new point against history, the
// scanner judges whole recent series for drift each individual point hid
// (a 10%/day creep is always individually acceptable but adds up).
type Scanner struct {
	source SeriesSource
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scanner.
func New(source SeriesSource, opts Options, logger zerolog.Logger) *Scanner {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 14
	}
	if opts.JumpThresholdPct <= 0 {
		opts.JumpThresholdPct = 50
	}
	if opts.HighJumpPct <= 0 {
		opts.HighJumpPct = 75
	}
	if opts.StaticMinLength <= 0 {
		opts.StaticMinLength = 5
	}
	if opts.UnrealisticLow <= 0 {
		opts.UnrealisticLow = 0.1
	}
	if opts.UnrealisticHigh <= 0 {
		opts.UnrealisticHigh = 5
	}
	return &Scanner{
		source: source,
		opts:   opts,
		logger: logger.With().Str("component", "anomaly_scanner").Logger(),
	}
}

// Scan analyses every (product, retailer) series with at least 3 points over
// the lookback window.
func (s *Scanner) Scan() Report {
	report := Report{
		GeneratedAt:  time.Now().UTC(),
		LookbackDays: s.opts.LookbackDays,
		Anomalies:    []Anomaly{},
	}

	for productID, retailers := range s.source.Window(s.opts.LookbackDays) {
		for retailer, series := range retailers {
			if len(series) < 3 {
				continue
			}
			report.Anomalies = append(report.Anomalies, s.scanSeries(productID, retailer, series)...)
		}
	}

	s.logger.Info().
		Int("lookback_days", s.opts.LookbackDays).
		Int("anomalies", len(report.Anomalies)).
		Msg("anomaly scan complete")
	return report
}

func (s *Scanner) scanSeries(productID, retailer string, series []storage.Observation) []Anomaly {
	var found []Anomaly

	// Large jumps between adjacent points.
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Price
		curr := series[i].Price
		if prev.Sign() <= 0 {
			continue
		}
		changePct := curr.Sub(prev).Div(prev).Abs().InexactFloat64() * 100
		if changePct > s.opts.JumpThresholdPct {
			severity := SeverityMedium
			if changePct > s.opts.HighJumpPct {
				severity = SeverityHigh
			}
			prevCopy, currCopy := prev, curr
			found = append(found, Anomaly{
				Type:          TypeLargePriceChange,
				ProductID:     productID,
				Retailer:      retailer,
				Severity:      severity,
				Date:          string(storage.DateOf(series[i].ScrapedAt)),
				PreviousPrice: &prevCopy,
				CurrentPrice:  &currCopy,
				ChangePct:     round1(changePct),
			})
		}
	}

	// Static pricing: a long, perfectly flat series means the scraper is
	// returning cached or stale content rather than live prices.
	if len(series) >= s.opts.StaticMinLength && allEqual(series) {
		price := series[0].Price
		found = append(found, Anomaly{
			Type:         TypeStaticPricing,
			ProductID:    productID,
			Retailer:     retailer,
			Severity:     SeverityMedium,
			Date:         string(storage.DateOf(series[len(series)-1].ScrapedAt)),
			Price:        &price,
			PointsStatic: len(series),
		})
	}

	// Unrealistic points relative to the series mean.
	sum := decimal.Zero
	for _, obs := range series {
		sum = sum.Add(obs.Price)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(series)))).InexactFloat64()
	low := avg * s.opts.UnrealisticLow
	high := avg * s.opts.UnrealisticHigh
	for _, obs := range series {
		p := obs.Price.InexactFloat64()
		if p < low || p > high {
			price := obs.Price
			found = append(found, Anomaly{
				Type:         TypeUnrealisticPrice,
				ProductID:    productID,
				Retailer:     retailer,
				Severity:     SeverityHigh,
				Date:         string(storage.DateOf(obs.ScrapedAt)),
				Price:        &price,
				AveragePrice: round2(avg),
			})
		}
	}

	return found
}

func allEqual(series []storage.Observation) bool {
	for _, obs := range series[1:] {
		if !obs.Price.Equal(series[0].Price) {
			return false
		}
	}
	return true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
