package collector

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"power-price-tracker/internal/config"
	"power-price-tracker/internal/storage"
)

// SiteOptions parameterise a selector-driven collector.
type SiteOptions struct {
	Retailer          string
	PriceSelector     string
	StockSelector     string
	OutOfStockMarkers []string
	UserAgent         string
	Timeout           time.Duration
}

// SiteCollector pulls one retailer's prices via HTTP GET and CSS selectors.
// One instance per retailer; the selectors are the only per-site knowledge.
type SiteCollector struct {
	opts   SiteOptions
	client *resty.Client
	logger zerolog.Logger
	now    func() time.Time
}

// NewSiteCollector constructs a collector from retailer config.
func NewSiteCollector(name string, cfg config.RetailerConfig, collect config.CollectConfig, logger zerolog.Logger) *SiteCollector {
	opts := SiteOptions{
		Retailer:          name,
		PriceSelector:     cfg.PriceSelector,
		StockSelector:     cfg.StockSelector,
		OutOfStockMarkers: cfg.OutOfStockMarkers,
		UserAgent:         collect.UserAgent,
		Timeout:           collect.RequestTimeout,
	}
	return NewSite(opts, logger)
}

// NewSite constructs a collector from explicit options.
func NewSite(opts SiteOptions, logger zerolog.Logger) *SiteCollector {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetHeader("Accept-Language", "en-GB,en;q=0.5")
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &SiteCollector{
		opts:   opts,
		client: client,
		logger: logger.With().Str("component", "collector").Str("retailer", opts.Retailer).Logger(),
		now:    time.Now,
	}
}

// WithNow overrides the collector's clock. Test hook.
func (c *SiteCollector) WithNow(now func() time.Time) *SiteCollector {
	c.now = now
	return c
}

// Retailer names the retailer this collector serves.
func (c *SiteCollector) Retailer() string {
	return c.opts.Retailer
}

// Collect fetches the product page and extracts one observation.
func (c *SiteCollector) Collect(ctx context.Context, product Product) (storage.Observation, error) {
	res, err := c.client.R().
		SetContext(ctx).
		Get(product.URL)
	if err != nil {
		return storage.Observation{}, fmt.Errorf("fetch %s: %w", product.URL, err)
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return storage.Observation{}, fmt.Errorf("fetch %s: status %d", product.URL, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return storage.Observation{}, fmt.Errorf("parse %s: %w", product.URL, err)
	}

	priceText := strings.TrimSpace(doc.Find(c.opts.PriceSelector).First().Text())
	if priceText == "" {
		return storage.Observation{}, ErrPriceNotFound
	}
	price, err := CleanPrice(priceText)
	if err != nil {
		return storage.Observation{}, fmt.Errorf("%w: %v", ErrPriceNotFound, err)
	}

	obs := storage.Observation{
		ProductID: product.ID,
		Retailer:  c.opts.Retailer,
		Price:     price,
		InStock:   c.extractAvailability(doc),
		ScrapedAt: c.now().UTC(),
		URL:       product.URL,
	}

	c.logger.Debug().
		Str("product", product.ID).
		Str("price", price.String()).
		Bool("in_stock", obs.InStock).
		Msg("collected observation")
	return obs, nil
}

// extractAvailability reads the stock selector when configured. Pages that
// lack the element, or collectors without a selector, default to in stock:
// retailers advertise absence ("out of stock", "sold out") far more reliably
// than presence.
func (c *SiteCollector) extractAvailability(doc *goquery.Document) bool {
	if c.opts.StockSelector == "" {
		return true
	}
	text := strings.ToLower(strings.TrimSpace(doc.Find(c.opts.StockSelector).First().Text()))
	if text == "" {
		return true
	}
	markers := c.opts.OutOfStockMarkers
	if len(markers) == 0 {
		markers = []string{"out of stock", "sold out", "unavailable"}
	}
	for _, marker := range markers {
		if strings.Contains(text, strings.ToLower(marker)) {
			return false
		}
	}
	return true
}

var _ Collector = (*SiteCollector)(nil)
