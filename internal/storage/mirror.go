package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"power-price-tracker/internal/config"
)

var (
	// ErrNotConfigured indicates the mirror pool was not initialised.
	ErrNotConfigured = errors.New("storage: mirror pool not configured")
)

const (
	insertPriceHistorySQL = `INSERT INTO price_history (
        product_id,
        retailer,
        price,
        in_stock,
        url,
        scraped_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6
    );`

	insertScrapeLogSQL = `INSERT INTO scrape_log (
        retailer,
        product_id,
        status,
        error_message,
        scraped_at
    ) VALUES (
        $1,$2,$3,$4,$5
    );`

	retailerScrapeStatsSQL = `SELECT
        retailer,
        COUNT(*) AS total,
        SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END) AS successful,
        SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END) AS rejected,
        SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END) AS errored,
        MAX(scraped_at) AS last_scrape
    FROM scrape_log
    WHERE scraped_at >= $1
    GROUP BY retailer
    ORDER BY last_scrape DESC;`

	countPriceHistorySQL = `SELECT COUNT(*) FROM price_history;`
)

// ObservationMirror receives a relational copy of every accepted observation.
type ObservationMirror interface {
	InsertObservation(ctx context.Context, obs Observation) error
}

// ScrapeLogger records per-attempt outcomes for success-rate reporting.
type ScrapeLogger interface {
	InsertScrapeResult(ctx context.Context, result ScrapeResult) error
}

// ScrapeStatsSource aggregates logged attempts per retailer.
type ScrapeStatsSource interface {
	RetailerScrapeStats(ctx context.Context, since time.Time) (map[string]ScrapeStats, error)
}

// ScrapeResult is one collection attempt's outcome.
type ScrapeResult struct {
	Retailer  string
	ProductID string
	Status    string // success, not_found, rejected, error
	Error     string
	ScrapedAt time.Time
}

// ScrapeStats aggregates attempts for one retailer over a window.
type ScrapeStats struct {
	Attempts   int64
	Successes  int64
	Rejected   int64
	Errors     int64
	LastScrape time.Time
}

// Mirror copies accepted observations and scrape outcomes into PostgreSQL.
// The JSON partitions stay authoritative; the mirror exists for ad-hoc SQL
// and for attempt-level success rates the files cannot provide.
type Mirror struct {
	pool *pgxpool.Pool
}

// NewMirrorPool configures a PostgreSQL connection pool from runtime settings.
func NewMirrorPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// NewMirror wires a pgx pool into a Mirror.
func NewMirror(pool *pgxpool.Pool) *Mirror {
	return &Mirror{pool: pool}
}

// Close releases the underlying pool resources.
func (m *Mirror) Close() {
	if m == nil || m.pool == nil {
		return
	}
	m.pool.Close()
}

func (m *Mirror) getPool() (*pgxpool.Pool, error) {
	if m == nil || m.pool == nil {
		return nil, ErrNotConfigured
	}
	return m.pool, nil
}

// InsertObservation mirrors one accepted observation.
func (m *Mirror) InsertObservation(ctx context.Context, obs Observation) error {
	pool, err := m.getPool()
	if err != nil {
		return err
	}

	_, execErr := pool.Exec(ctx, insertPriceHistorySQL,
		obs.ProductID,
		obs.Retailer,
		obs.Price.String(),
		obs.InStock,
		obs.URL,
		obs.ScrapedAt,
	)
	if execErr != nil {
		return fmt.Errorf("insert price history: %w", execErr)
	}
	return nil
}

// InsertScrapeResult records one attempt outcome.
func (m *Mirror) InsertScrapeResult(ctx context.Context, result ScrapeResult) error {
	pool, err := m.getPool()
	if err != nil {
		return err
	}

	var errMsg any
	if result.Error != "" {
		errMsg = result.Error
	}

	_, execErr := pool.Exec(ctx, insertScrapeLogSQL,
		result.Retailer,
		result.ProductID,
		result.Status,
		errMsg,
		result.ScrapedAt,
	)
	if execErr != nil {
		return fmt.Errorf("insert scrape log: %w", execErr)
	}
	return nil
}

// RetailerScrapeStats aggregates attempt outcomes per retailer since a cutoff.
func (m *Mirror) RetailerScrapeStats(ctx context.Context, since time.Time) (map[string]ScrapeStats, error) {
	pool, err := m.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, retailerScrapeStatsSQL, since)
	if queryErr != nil {
		return nil, fmt.Errorf("retailer scrape stats: %w", queryErr)
	}
	defer rows.Close()

	stats := make(map[string]ScrapeStats)
	for rows.Next() {
		var retailer string
		var entry ScrapeStats
		if err := rows.Scan(&retailer, &entry.Attempts, &entry.Successes, &entry.Rejected, &entry.Errors, &entry.LastScrape); err != nil {
			return nil, err
		}
		stats[retailer] = entry
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return stats, nil
}

// CountObservations counts mirrored price history rows.
func (m *Mirror) CountObservations(ctx context.Context) (int64, error) {
	pool, err := m.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countPriceHistorySQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count price history: %w", scanErr)
	}
	return count, nil
}

var _ ObservationMirror = (*Mirror)(nil)
var _ ScrapeLogger = (*Mirror)(nil)
var _ ScrapeStatsSource = (*Mirror)(nil)
