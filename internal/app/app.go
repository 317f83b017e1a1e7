package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"power-price-tracker/internal/anomaly"
	"power-price-tracker/internal/collector"
	"power-price-tracker/internal/config"
	"power-price-tracker/internal/monitor"
	"power-price-tracker/internal/scheduler"
	"power-price-tracker/internal/service"
	"power-price-tracker/internal/storage"
	"power-price-tracker/internal/validation"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore() (*storage.Store, error) {
	return storage.NewStore(a.Config.Store.DataDir, a.Logger)
}

// openMirror returns a nil mirror when no DSN is configured; the JSON
// partitions alone are a fully functional deployment.
func (a *App) openMirror(ctx context.Context) (*storage.Mirror, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewMirrorPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	mirror := storage.NewMirror(pool)
	return mirror, mirror.Close, nil
}

func (a *App) newValidator(store *storage.Store) *validation.Validator {
	return validation.New(store, validation.OptionsFromConfig(a.Config.Validation), a.Logger)
}

func (a *App) newScanner(store *storage.Store) *anomaly.Scanner {
	return anomaly.New(store, anomaly.OptionsFromConfig(a.Config.Scanner), a.Logger)
}

func (a *App) newReporter(store *storage.Store, stats storage.ScrapeStatsSource) *monitor.Reporter {
	return monitor.New(store, stats, monitor.OptionsFromConfig(a.Config.Monitor), a.Logger)
}

func (a *App) newCollectors() map[string]collector.Collector {
	collectors := make(map[string]collector.Collector, len(a.Config.Retailers))
	for name, cfg := range a.Config.Retailers {
		collectors[name] = collector.NewSiteCollector(name, cfg, a.Config.Collect, a.Logger)
	}
	return collectors
}

func (a *App) newService(store *storage.Store, mirror *storage.Mirror, sched *scheduler.Scheduler) *service.Service {
	opts := service.Options{
		Store:      store,
		Validator:  a.newValidator(store),
		Collectors: a.newCollectors(),
		Products:   a.Config.Products,
		Delay:      a.Config.Collect.RequestDelay,
		Scheduler:  sched,
	}
	if mirror != nil {
		opts.Mirror = mirror
		opts.ScrapeLog = mirror
	}
	return service.New(opts, a.Logger)
}

// Run executes the long-running scheduled collection service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := a.openStore()
	if err != nil {
		return err
	}

	mirror, closeMirror, err := a.openMirror(ctx)
	if err != nil {
		return err
	}
	if mirror == nil {
		a.Logger.Warn().Msg("database.dsn not configured; relational mirror disabled")
	}
	if closeMirror != nil {
		defer closeMirror()
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToStart,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := a.newService(store, mirror, sched)

	a.Logger.Info().Msg("starting collection service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("collection service stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ScanOptions configure the anomaly scan command.
type ScanOptions struct {
	Days int
	JSON bool
}

// StatusOptions configure the status command.
type StatusOptions struct {
	JSON bool
}

// ExportOptions hold parameters for exporting a price series.
type ExportOptions struct {
	ProductID string
	Retailer  string
	Days      int
	CSVPath   string
	PNGPath   string
	MaxPoints int
}

// ValidateOptions configure the one-off validate command.
type ValidateOptions struct {
	ProductID string
	Retailer  string
	Price     decimal.Decimal
	Category  string
}
