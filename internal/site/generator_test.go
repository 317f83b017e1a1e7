package site

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"power-price-tracker/internal/config"
	"power-price-tracker/internal/storage"
)

func TestGenerateRendersCheapestInStockPrices(t *testing.T) {
	store, err := storage.NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	at := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	observations := []storage.Observation{
		{ProductID: "jackery-1000", Retailer: "amazon", Price: decimal.NewFromInt(799), InStock: true, ScrapedAt: at},
		{ProductID: "jackery-1000", Retailer: "currys", Price: decimal.NewFromInt(810), InStock: true, ScrapedAt: at},
		{ProductID: "jackery-1000", Retailer: "argos", Price: decimal.NewFromInt(750), InStock: false, ScrapedAt: at},
	}
	for _, obs := range observations {
		if err := store.Append(obs); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	outDir := t.TempDir()
	cfg := config.SiteConfig{OutputDir: outDir, Name: "Power Tracker", Description: "UK power station prices"}
	products := []config.ProductConfig{{ID: "jackery-1000", Name: "Explorer 1000"}}

	if err := New(store, cfg, products, zerolog.Nop()).Generate(); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	if err != nil {
		t.Fatalf("read index.html: %v", err)
	}
	html := string(data)

	if !strings.Contains(html, "Explorer 1000") {
		t.Fatal("page should use the configured product name")
	}
	if !strings.Contains(html, "799.00") || !strings.Contains(html, "810.00") {
		t.Fatalf("page should list in-stock prices, got:\n%s", html)
	}
	if strings.Contains(html, "750.00") {
		t.Fatal("out-of-stock prices must not be listed")
	}
	// Cheapest price row is flagged; amazon at 799 beats currys at 810.
	cheapestIdx := strings.Index(html, `class="cheapest"`)
	amazonIdx := strings.Index(html, "amazon")
	if cheapestIdx == -1 || amazonIdx == -1 || amazonIdx < cheapestIdx {
		t.Fatalf("amazon row should carry the cheapest flag, got:\n%s", html)
	}
}

func TestGenerateFailsWithoutData(t *testing.T) {
	store, err := storage.NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	gen := New(store, config.SiteConfig{OutputDir: t.TempDir(), Name: "x"}, nil, zerolog.Nop())
	if err := gen.Generate(); err == nil {
		t.Fatal("an empty store should refuse to render")
	}
}
