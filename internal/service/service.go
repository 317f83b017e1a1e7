package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"power-price-tracker/internal/collector"
	"power-price-tracker/internal/config"
	"power-price-tracker/internal/scheduler"
	"power-price-tracker/internal/storage"
	"power-price-tracker/internal/validation"
)

// RetailerRunStats tallies one retailer's outcomes within a run.
type RetailerRunStats struct {
	Attempts  int      `json:"attempts"`
	Successes int      `json:"successes"`
	NotFound  int      `json:"not_found"`
	Rejected  int      `json:"rejected"`
	Errors    int      `json:"errors"`
	Reasons   []string `json:"rejection_reasons,omitempty"`
}

// RunStats summarises one collection run.
type RunStats struct {
	StartedAt  time.Time                    `json:"started_at"`
	FinishedAt time.Time                    `json:"finished_at"`
	Retailers  map[string]*RetailerRunStats `json:"retailers"`
}

// Totals sums the per-retailer tallies.
func (s RunStats) Totals() RetailerRunStats {
	var total RetailerRunStats
	for _, r := range s.Retailers {
		total.Attempts += r.Attempts
		total.Successes += r.Successes
		total.NotFound += r.NotFound
		total.Rejected += r.Rejected
		total.Errors += r.Errors
	}
	return total
}

// Service orchestrates one collection run: fetch each configured
// (retailer, product) page, validate the observation, and append accepted
// ones to the store. Rejections are logged and discarded; only the single
// observation is affected, never the run.
type Service struct {
	store      *storage.Store
	validator  *validation.Validator
	collectors map[string]collector.Collector
	mirror     storage.ObservationMirror
	scrapeLog  storage.ScrapeLogger
	products   []config.ProductConfig
	delay      time.Duration
	sched      *scheduler.Scheduler
	logger     zerolog.Logger
}

// Options wire the service's collaborators. Mirror and ScrapeLog may be nil.
type Options struct {
	Store      *storage.Store
	Validator  *validation.Validator
	Collectors map[string]collector.Collector
	Mirror     storage.ObservationMirror
	ScrapeLog  storage.ScrapeLogger
	Products   []config.ProductConfig
	Delay      time.Duration
	Scheduler  *scheduler.Scheduler
}

// New constructs the collection service.
func New(opts Options, logger zerolog.Logger) *Service {
	return &Service{
		store:      opts.Store,
		validator:  opts.Validator,
		collectors: opts.Collectors,
		mirror:     opts.Mirror,
		scrapeLog:  opts.ScrapeLog,
		products:   opts.Products,
		delay:      opts.Delay,
		sched:      opts.Scheduler,
		logger:     logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the scheduled collection loop.
func (s *Service) Run(ctx context.Context) error {
	if s.sched == nil {
		return errors.New("scheduler not configured")
	}
	return s.sched.Run(ctx, func(ctx context.Context, _ time.Time) error {
		_, err := s.RunOnce(ctx)
		return err
	})
}

// RunOnce executes a single collection pass over every configured
// (retailer, product) pair.
func (s *Service) RunOnce(ctx context.Context) (RunStats, error) {
	stats := RunStats{
		StartedAt: time.Now().UTC(),
		Retailers: map[string]*RetailerRunStats{},
	}

	retailers := make([]string, 0, len(s.collectors))
	for name := range s.collectors {
		retailers = append(retailers, name)
	}
	sort.Strings(retailers)

	for _, retailer := range retailers {
		col := s.collectors[retailer]
		tally := &RetailerRunStats{}
		stats.Retailers[retailer] = tally

		for _, product := range s.products {
			url, ok := product.URLs[retailer]
			if !ok {
				continue
			}
			if err := s.pause(ctx); err != nil {
				stats.FinishedAt = time.Now().UTC()
				return stats, err
			}

			tally.Attempts++
			s.collectOne(ctx, col, product, url, tally)
		}
	}

	stats.FinishedAt = time.Now().UTC()
	totals := stats.Totals()
	s.logger.Info().
		Int("attempts", totals.Attempts).
		Int("successes", totals.Successes).
		Int("rejected", totals.Rejected).
		Int("errors", totals.Errors).
		Msg("collection run complete")
	return stats, nil
}

func (s *Service) collectOne(ctx context.Context, col collector.Collector, product config.ProductConfig, url string, tally *RetailerRunStats) {
	retailer := col.Retailer()

	obs, err := col.Collect(ctx, collector.Product{
		ID:       product.ID,
		Category: product.Category,
		URL:      url,
	})
	if err != nil {
		if errors.Is(err, collector.ErrPriceNotFound) {
			tally.NotFound++
			s.logScrape(ctx, retailer, product.ID, "not_found", err.Error())
		} else {
			tally.Errors++
			s.logger.Error().Err(err).
				Str("product", product.ID).
				Str("retailer", retailer).
				Msg("collection failed")
			s.logScrape(ctx, retailer, product.ID, "error", err.Error())
		}
		return
	}

	verdict := s.validator.Validate(obs.ProductID, obs.Retailer, obs.Price, product.Category)
	if !verdict.Accepted {
		// Expected outcome, not an error: the observation is discarded
		// and the run continues.
		tally.Rejected++
		tally.Reasons = append(tally.Reasons, verdict.Reason)
		s.logScrape(ctx, retailer, product.ID, "rejected", verdict.Reason)
		return
	}

	if err := s.store.Append(obs); err != nil {
		tally.Errors++
		s.logger.Error().Err(err).
			Str("product", product.ID).
			Str("retailer", retailer).
			Msg("failed to persist observation")
		s.logScrape(ctx, retailer, product.ID, "error", err.Error())
		return
	}

	tally.Successes++
	s.logScrape(ctx, retailer, product.ID, "success", "")

	if s.mirror != nil {
		if err := s.mirror.InsertObservation(ctx, obs); err != nil {
			// Mirror writes are best effort; the JSON partition is
			// authoritative.
			s.logger.Error().Err(err).
				Str("product", product.ID).
				Str("retailer", retailer).
				Msg("failed to mirror observation")
		}
	}

	s.logger.Info().
		Str("product", product.ID).
		Str("retailer", retailer).
		Str("price", obs.Price.StringFixed(2)).
		Bool("in_stock", obs.InStock).
		Msg("observation recorded")
}

func (s *Service) logScrape(ctx context.Context, retailer, productID, status, detail string) {
	if s.scrapeLog == nil {
		return
	}
	err := s.scrapeLog.InsertScrapeResult(ctx, storage.ScrapeResult{
		Retailer:  retailer,
		ProductID: productID,
		Status:    status,
		Error:     detail,
		ScrapedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("retailer", retailer).Msg("failed to log scrape result")
	}
}

// pause rate-limits between page fetches, honouring cancellation.
func (s *Service) pause(ctx context.Context) error {
	if s.delay <= 0 {
		return nil
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
