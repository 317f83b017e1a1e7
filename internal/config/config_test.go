package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if cfg.Store.DataDir != "data/prices" {
		t.Fatalf("default data dir wrong: %q", cfg.Store.DataDir)
	}
	if cfg.Scheduler.Interval != 24*time.Hour {
		t.Fatalf("default interval wrong: %v", cfg.Scheduler.Interval)
	}
	if cfg.Validation.HistoryDays != 30 {
		t.Fatalf("default history days wrong: %d", cfg.Validation.HistoryDays)
	}

	r, ok := cfg.Validation.Categories["power-stations"]
	if !ok {
		t.Fatalf("default category missing: %+v", cfg.Validation.Categories)
	}
	if r.Min != 80 || r.Max != 6000 || r.TypicalMin != 150 || r.TypicalMax != 3500 {
		t.Fatalf("default category bounds wrong: %+v", r)
	}

	if len(cfg.Validation.PromoDenylist) != 4 {
		t.Fatalf("default promo denylist wrong: %v", cfg.Validation.PromoDenylist)
	}
	if cfg.Scanner.StaticMinLength != 5 || cfg.Scanner.LookbackDays != 14 {
		t.Fatalf("default scanner config wrong: %+v", cfg.Scanner)
	}
	if cfg.Monitor.CriticalFloor != 20 || cfg.Monitor.StaleAfter != 48*time.Hour {
		t.Fatalf("default monitor config wrong: %+v", cfg.Monitor)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
store:
  data_dir: /tmp/test-prices
scheduler:
  interval: 6h
retailers:
  amazon:
    name: Amazon UK
    price_selector: ".a-price .a-offscreen"
products:
  - id: jackery-1000
    name: Explorer 1000
    category: power-stations
    urls:
      amazon: https://amazon.test/p/jackery-1000
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Store.DataDir != "/tmp/test-prices" {
		t.Fatalf("file value not applied: %q", cfg.Store.DataDir)
	}
	if cfg.Scheduler.Interval != 6*time.Hour {
		t.Fatalf("duration not decoded: %v", cfg.Scheduler.Interval)
	}
	if len(cfg.Products) != 1 || cfg.Products[0].URLs["amazon"] == "" {
		t.Fatalf("products not decoded: %+v", cfg.Products)
	}
	// Defaults still apply underneath the file.
	if cfg.Validation.HistoryDays != 30 {
		t.Fatalf("defaults should survive partial config, got %d", cfg.Validation.HistoryDays)
	}
}

func TestLoadRejectsUnknownRetailerReference(t *testing.T) {
	content := `
products:
  - id: jackery-1000
    urls:
      nowhere: https://nowhere.test/p
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("product referencing an unconfigured retailer should fail validation")
	}
}

func TestValidateCategoryBounds(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	bad := cfg.Validation.Categories["power-stations"]
	bad.TypicalMin = bad.TypicalMax + 1
	cfg.Validation.Categories["power-stations"] = bad

	if err := cfg.Validate(); err == nil {
		t.Fatal("inverted typical bounds should fail validation")
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 500}}
	if got := cfg.ResolveMaxPoints(0); got != 500 {
		t.Fatalf("zero override should use config, got %d", got)
	}
	if got := cfg.ResolveMaxPoints(25); got != 25 {
		t.Fatalf("positive override should win, got %d", got)
	}
}
