package validation

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"power-price-tracker/internal/config"
)

// CategoryRange bounds plausible prices for one product category (GBP).
// Min/Max are intentionally wide and catch only gross errors; TypicalMin/
// TypicalMax mark the "unusual but plausible" band.
type CategoryRange struct {
	Min        decimal.Decimal
	Max        decimal.Decimal
	TypicalMin decimal.Decimal
	TypicalMax decimal.Decimal
}

// Verdict is the outcome of validating one observation. Never persisted;
// reasons feed the logs and the health reporter.
type Verdict struct {
	Accepted bool     `json:"accepted"`
	Reason   string   `json:"reason"`
	Warnings []string `json:"warnings,omitempty"`
}

// HistoryReader is the store view the validator depends on.
type HistoryReader interface {
	PriceSeries(productID, retailer string, daysBack int) []decimal.Decimal
	SameDayCrossRetailerPrices(productID string) map[string]decimal.Decimal
}

// Options hold the validator's tunables.
type Options struct {
	HistoryDays     int
	DefaultCategory string
	Categories      map[string]CategoryRange
	PromoDenylist   []decimal.Decimal
}

// OptionsFromConfig converts the float-typed config block into decimals.
func OptionsFromConfig(cfg config.ValidationConfig) Options {
	opts := Options{
		HistoryDays:     cfg.HistoryDays,
		DefaultCategory: cfg.DefaultCategory,
		Categories:      make(map[string]CategoryRange, len(cfg.Categories)),
	}
	for name, r := range cfg.Categories {
		opts.Categories[name] = CategoryRange{
			Min:        decimal.NewFromFloat(r.Min),
			Max:        decimal.NewFromFloat(r.Max),
			TypicalMin: decimal.NewFromFloat(r.TypicalMin),
			TypicalMax: decimal.NewFromFloat(r.TypicalMax),
		}
	}
	for _, p := range cfg.PromoDenylist {
		opts.PromoDenylist = append(opts.PromoDenylist, decimal.NewFromFloat(p))
	}
	return opts
}

// Validator decides, per scraped observation, whether a number pulled out of
// an HTML page is a trustworthy price or scraper noise. Pure decision over
// current store state; no side effects beyond logging.
type Validator struct {
	history HistoryReader
	opts    Options
	logger  zerolog.Logger
}

// New constructs a Validator.
func New(history HistoryReader, opts Options, logger zerolog.Logger) *Validator {
	if opts.HistoryDays <= 0 {
		opts.HistoryDays = 30
	}
	return &Validator{
		history: history,
		opts:    opts,
		logger:  logger.With().Str("component", "validator").Logger(),
	}
}

// Validate runs the decision pipeline, short-circuiting on the first failing
// check. Order matters: cheapest and most certain checks first.
func (v *Validator) Validate(productID, retailer string, price decimal.Decimal, category string) Verdict {
	catRange := v.categoryRange(category)

	var warnings []string
	var notes []string

	// 1. Absolute range.
	if price.LessThan(catRange.Min) {
		return v.reject(productID, retailer, fmt.Sprintf(
			"price £%s below category minimum £%s", price.StringFixed(2), catRange.Min.StringFixed(2)))
	}
	if price.GreaterThan(catRange.Max) {
		return v.reject(productID, retailer, fmt.Sprintf(
			"price £%s above category maximum £%s", price.StringFixed(2), catRange.Max.StringFixed(2)))
	}

	// 2. Promotional denylist. Exact match is deliberately narrow:
	// promotional banners repeat round numbers (e.g. 700) that are
	// implausible as long-tail product prices, and anything wider would
	// reject genuine prices that happen to be round.
	for _, promo := range v.opts.PromoDenylist {
		if price.Equal(promo) {
			return v.reject(productID, retailer, fmt.Sprintf(
				"price £%s matches known promotional false positive", price.StringFixed(2)))
		}
	}

	// 3. Historical variance.
	series := v.history.PriceSeries(productID, retailer, v.opts.HistoryDays)
	if len(series) < 3 {
		notes = append(notes, "insufficient historical data for variance check")
	} else {
		if verdict, warning, ok := v.checkHistoricalVariance(productID, retailer, price, series); !ok {
			return verdict
		} else if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	// 4. Cross-retailer variance.
	others := otherRetailerPrices(v.history.SameDayCrossRetailerPrices(productID), retailer)
	if len(others) < 2 {
		notes = append(notes, "fewer than 2 other retailers reported today")
	} else {
		if verdict, warning, ok := v.checkCrossRetailerVariance(productID, retailer, price, others); !ok {
			return verdict
		} else if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	// 5. Soft typical range: unusual but plausible, never blocks.
	if price.LessThan(catRange.TypicalMin) {
		warnings = append(warnings, fmt.Sprintf(
			"price £%s is unusually low but within range (typical minimum £%s)",
			price.StringFixed(2), catRange.TypicalMin.StringFixed(2)))
	}
	if price.GreaterThan(catRange.TypicalMax) {
		warnings = append(warnings, fmt.Sprintf(
			"price £%s is unusually high but within range (typical maximum £%s)",
			price.StringFixed(2), catRange.TypicalMax.StringFixed(2)))
	}

	reason := "price validation passed"
	if len(notes) > 0 {
		reason = "accepted: " + strings.Join(notes, "; ")
	}

	for _, w := range warnings {
		v.logger.Warn().Str("product", productID).Str("retailer", retailer).Msg(w)
	}

	return Verdict{Accepted: true, Reason: reason, Warnings: warnings}
}

// checkHistoricalVariance compares a new price against its own 30-day
// series. Rejection boundary: |p - median| > max(3*stddev, 0.5*median),
// allowing genuine sales and restocks while catching 10x / 0.1x scraper
// garbage. A tighter bound max(2*stddev, 0.3*median) flags "worth a human
// look" without blocking.
func (v *Validator) checkHistoricalVariance(productID, retailer string, price decimal.Decimal, series []decimal.Decimal) (Verdict, string, bool) {
	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.InexactFloat64()
	}

	med := median(values)
	sd := stddev(values)
	if sd == 0 {
		// Degenerate variance (an all-identical series): assume 10% of
		// the median rather than treating any change as infinite sigma.
		sd = med * 0.1
	}

	p := price.InexactFloat64()
	diff := p - med
	if diff < 0 {
		diff = -diff
	}

	maxVariance := sd * 3
	if half := med * 0.5; half > maxVariance {
		maxVariance = half
	}

	if diff > maxVariance {
		variancePct := diff / med * 100
		verdict := v.reject(productID, retailer, fmt.Sprintf(
			"price £%s differs by %.1f%% from %d-day median £%.2f",
			price.StringFixed(2), variancePct, v.opts.HistoryDays, med))
		return verdict, "", false
	}

	warnVariance := sd * 2
	if third := med * 0.3; third > warnVariance {
		warnVariance = third
	}
	if diff > warnVariance {
		variancePct := diff / med * 100
		return Verdict{}, fmt.Sprintf(
			"price £%s is %.1f%% from %d-day median £%.2f",
			price.StringFixed(2), variancePct, v.opts.HistoryDays, med), true
	}

	return Verdict{}, "", true
}

// checkCrossRetailerVariance compares a price against what other retailers
// reported today. Outside the competitive band, only deviations beyond 50%
// of the others' median reject; smaller ones are good deals or premium
// pricing, logged and accepted.
func (v *Validator) checkCrossRetailerVariance(productID, retailer string, price decimal.Decimal, others []float64) (Verdict, string, bool) {
	medOther := median(others)
	minOther, maxOther := minMax(others)

	competitiveMin := medOther * 0.7
	if floor := minOther * 0.95; floor < competitiveMin {
		competitiveMin = floor
	}
	competitiveMax := medOther * 1.3
	if ceil := maxOther * 1.05; ceil > competitiveMax {
		competitiveMax = ceil
	}

	p := price.InexactFloat64()

	if p < competitiveMin {
		discountPct := (medOther - p) / medOther * 100
		if discountPct > 50 {
			verdict := v.reject(productID, retailer, fmt.Sprintf(
				"price £%s is %.1f%% below other retailers (median £%.2f)",
				price.StringFixed(2), discountPct, medOther))
			return verdict, "", false
		}
		return Verdict{}, fmt.Sprintf(
			"good deal: price £%s is %.1f%% below cross-retailer median £%.2f",
			price.StringFixed(2), discountPct, medOther), true
	}

	if p > competitiveMax {
		premiumPct := (p - medOther) / medOther * 100
		if premiumPct > 50 {
			verdict := v.reject(productID, retailer, fmt.Sprintf(
				"price £%s is %.1f%% above other retailers (median £%.2f)",
				price.StringFixed(2), premiumPct, medOther))
			return verdict, "", false
		}
		return Verdict{}, fmt.Sprintf(
			"premium pricing: price £%s is %.1f%% above cross-retailer median £%.2f",
			price.StringFixed(2), premiumPct, medOther), true
	}

	return Verdict{}, "", true
}

func (v *Validator) categoryRange(category string) CategoryRange {
	if r, ok := v.opts.Categories[category]; ok {
		return r
	}
	return v.opts.Categories[v.opts.DefaultCategory]
}

func (v *Validator) reject(productID, retailer, reason string) Verdict {
	v.logger.Info().
		Str("product", productID).
		Str("retailer", retailer).
		Str("reason", reason).
		Msg("observation rejected")
	return Verdict{Accepted: false, Reason: reason}
}

func otherRetailerPrices(current map[string]decimal.Decimal, retailer string) []float64 {
	others := make([]float64, 0, len(current))
	for r, p := range current {
		if r != retailer {
			others = append(others, p.InexactFloat64())
		}
	}
	return others
}
