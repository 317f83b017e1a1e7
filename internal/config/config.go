package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"power-price-tracker/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig                 `mapstructure:"app"`
	Logging    logging.Config            `mapstructure:"logging"`
	Store      StoreConfig               `mapstructure:"store"`
	Database   DatabaseConfig            `mapstructure:"database"`
	Scheduler  SchedulerConfig           `mapstructure:"scheduler"`
	Collect    CollectConfig             `mapstructure:"collect"`
	Validation ValidationConfig          `mapstructure:"validation"`
	Scanner    ScannerConfig             `mapstructure:"scanner"`
	Monitor    MonitorConfig             `mapstructure:"monitor"`
	Site       SiteConfig                `mapstructure:"site"`
	Export     ExportConfig              `mapstructure:"export"`
	Retailers  map[string]RetailerConfig `mapstructure:"retailers"`
	Products   []ProductConfig           `mapstructure:"products"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StoreConfig locates the daily price partition files.
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// DatabaseConfig encapsulates the optional PostgreSQL mirror.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs collection cadence for the run command.
type SchedulerConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	AlignToStart bool          `mapstructure:"align_to_start"`
	StartupDelay time.Duration `mapstructure:"startup_delay"`
}

// CollectConfig tunes retailer page fetching.
type CollectConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RequestDelay   time.Duration `mapstructure:"request_delay"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// CategoryRangeConfig bounds plausible prices for one product category (GBP).
type CategoryRangeConfig struct {
	Min        float64 `mapstructure:"min"`
	Max        float64 `mapstructure:"max"`
	TypicalMin float64 `mapstructure:"typical_min"`
	TypicalMax float64 `mapstructure:"typical_max"`
}

// ValidationConfig drives the price validator.
type ValidationConfig struct {
	HistoryDays     int                            `mapstructure:"history_days"`
	DefaultCategory string                         `mapstructure:"default_category"`
	Categories      map[string]CategoryRangeConfig `mapstructure:"categories"`
	// PromoDenylist holds literal prices known to be promotional banner
	// values rather than product prices. Deployment data, not a constant:
	// the defaults fit UK power-station marketing copy and do not
	// generalise to other categories or currencies.
	PromoDenylist []float64 `mapstructure:"promo_denylist"`
}

// ScannerConfig tunes the batch anomaly scan.
type ScannerConfig struct {
	LookbackDays     int     `mapstructure:"lookback_days"`
	JumpThresholdPct float64 `mapstructure:"jump_threshold_pct"`
	HighJumpPct      float64 `mapstructure:"high_jump_pct"`
	StaticMinLength  int     `mapstructure:"static_min_length"`
	UnrealisticLow   float64 `mapstructure:"unrealistic_low_ratio"`
	UnrealisticHigh  float64 `mapstructure:"unrealistic_high_ratio"`
}

// MonitorConfig sets health report thresholds.
type MonitorConfig struct {
	CriticalFloor  int           `mapstructure:"critical_floor"`
	DegradedFloor  int           `mapstructure:"degraded_floor"`
	MinSuccessRate float64       `mapstructure:"min_success_rate"`
	StaleAfter     time.Duration `mapstructure:"stale_after"`
}

// SiteConfig controls static catalogue generation.
type SiteConfig struct {
	OutputDir   string `mapstructure:"output_dir"`
	Name        string `mapstructure:"name"`
	URL         string `mapstructure:"url"`
	Description string `mapstructure:"description"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// RetailerConfig describes how to pull a price off one retailer's pages.
type RetailerConfig struct {
	Name              string   `mapstructure:"name"`
	BaseURL           string   `mapstructure:"base_url"`
	PriceSelector     string   `mapstructure:"price_selector"`
	StockSelector     string   `mapstructure:"stock_selector"`
	OutOfStockMarkers []string `mapstructure:"out_of_stock_markers"`
}

// ProductConfig maps a catalogue product to its page per retailer.
type ProductConfig struct {
	ID       string            `mapstructure:"id"`
	Name     string            `mapstructure:"name"`
	Category string            `mapstructure:"category"`
	URLs     map[string]string `mapstructure:"urls"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("POWERTRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "powertracker")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("store.data_dir", "data/prices")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("scheduler.interval", "24h")
	v.SetDefault("scheduler.align_to_start", true)
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("collect.request_timeout", "10s")
	v.SetDefault("collect.request_delay", "2s")
	v.SetDefault("collect.user_agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	v.SetDefault("validation.history_days", 30)
	v.SetDefault("validation.default_category", "power-stations")
	v.SetDefault("validation.categories", map[string]any{
		"power-stations": map[string]any{
			"min":         80.0,
			"max":         6000.0,
			"typical_min": 150.0,
			"typical_max": 3500.0,
		},
	})
	v.SetDefault("validation.promo_denylist", []float64{700, 500, 200, 100})

	v.SetDefault("scanner.lookback_days", 14)
	v.SetDefault("scanner.jump_threshold_pct", 50.0)
	v.SetDefault("scanner.high_jump_pct", 75.0)
	v.SetDefault("scanner.static_min_length", 5)
	v.SetDefault("scanner.unrealistic_low_ratio", 0.1)
	v.SetDefault("scanner.unrealistic_high_ratio", 5.0)

	v.SetDefault("monitor.critical_floor", 20)
	v.SetDefault("monitor.degraded_floor", 50)
	v.SetDefault("monitor.min_success_rate", 75.0)
	v.SetDefault("monitor.stale_after", "48h")

	v.SetDefault("site.output_dir", "public")
	v.SetDefault("site.name", "Power Station Price Tracker")
	v.SetDefault("site.description", "Track prices for portable power stations across UK retailers")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Store.DataDir == "" {
		return fmt.Errorf("store.data_dir is required")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Validation.HistoryDays <= 0 {
		return fmt.Errorf("validation.history_days must be greater than zero")
	}
	if c.Validation.DefaultCategory == "" {
		return fmt.Errorf("validation.default_category is required")
	}
	if _, ok := c.Validation.Categories[c.Validation.DefaultCategory]; !ok {
		return fmt.Errorf("validation.categories missing default category %q", c.Validation.DefaultCategory)
	}
	for name, r := range c.Validation.Categories {
		if !(r.Min < r.TypicalMin && r.TypicalMin < r.TypicalMax && r.TypicalMax < r.Max) {
			return fmt.Errorf("validation.categories.%s: require min < typical_min < typical_max < max", name)
		}
	}
	if c.Scanner.LookbackDays <= 0 {
		return fmt.Errorf("scanner.lookback_days must be greater than zero")
	}
	if c.Scanner.HighJumpPct < c.Scanner.JumpThresholdPct {
		return fmt.Errorf("scanner.high_jump_pct must not be below scanner.jump_threshold_pct")
	}
	if c.Monitor.DegradedFloor < c.Monitor.CriticalFloor {
		return fmt.Errorf("monitor.degraded_floor must not be below monitor.critical_floor")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	for id, p := range c.Products {
		if p.ID == "" {
			return fmt.Errorf("products[%d]: id is required", id)
		}
		for retailer := range p.URLs {
			if _, ok := c.Retailers[retailer]; !ok {
				return fmt.Errorf("product %s references unknown retailer %q", p.ID, retailer)
			}
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
