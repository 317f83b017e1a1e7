// Package site renders the static catalogue from the latest price data. The
// pages are plain HTML regenerated wholesale on each run; presentation only,
// no decisions.
package site

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"power-price-tracker/internal/config"
	"power-price-tracker/internal/storage"
)

// RetailerPrice is one retailer's latest price for a product card.
type RetailerPrice struct {
	Retailer string
	Price    decimal.Decimal
	Display  string
	Cheapest bool
}

// ProductView is one product card in the catalogue.
type ProductView struct {
	ID     string
	Name   string
	Prices []RetailerPrice
}

type pageData struct {
	SiteName    string
	Description string
	GeneratedAt string
	DataDate    string
	Products    []ProductView
}

// Generator renders index.html from the most recent partition.
type Generator struct {
	store  *storage.Store
	cfg    config.SiteConfig
	names  map[string]string
	logger zerolog.Logger
}

// New constructs a Generator. products supplies display names per id.
func New(store *storage.Store, cfg config.SiteConfig, products []config.ProductConfig, logger zerolog.Logger) *Generator {
	names := make(map[string]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return &Generator{
		store:  store,
		cfg:    cfg,
		names:  names,
		logger: logger.With().Str("component", "site").Logger(),
	}
}

// Generate writes the catalogue to the configured output directory using the
// most recent partition, whichever day that is: a quiet day must not blank
// the site.
func (g *Generator) Generate() error {
	date, ok := g.store.LatestPartitionDate()
	if !ok {
		return fmt.Errorf("no price data available to render")
	}

	partition := g.store.ReadPartition(date)
	products := g.buildViews(partition)

	data := pageData{
		SiteName:    g.cfg.Name,
		Description: g.cfg.Description,
		GeneratedAt: time.Now().UTC().Format(time.RFC1123),
		DataDate:    string(date),
		Products:    products,
	}

	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	out := filepath.Join(g.cfg.OutputDir, "index.html")
	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer file.Close()

	if err := indexTemplate.Execute(file, data); err != nil {
		return fmt.Errorf("render catalogue: %w", err)
	}

	g.logger.Info().
		Str("output", out).
		Str("data_date", string(date)).
		Int("products", len(products)).
		Msg("catalogue generated")
	return nil
}

func (g *Generator) buildViews(partition map[string][]storage.Observation) []ProductView {
	views := make([]ProductView, 0, len(partition))
	for productID, entries := range partition {
		latest := map[string]storage.Observation{}
		for _, obs := range entries {
			latest[obs.Retailer] = obs
		}

		view := ProductView{ID: productID, Name: g.names[productID]}
		if view.Name == "" {
			view.Name = productID
		}
		for retailer, obs := range latest {
			if !obs.InStock {
				continue
			}
			view.Prices = append(view.Prices, RetailerPrice{
				Retailer: retailer,
				Price:    obs.Price,
				Display:  obs.Price.StringFixed(2),
			})
		}
		if len(view.Prices) == 0 {
			continue
		}

		sort.Slice(view.Prices, func(i, j int) bool {
			return view.Prices[i].Price.LessThan(view.Prices[j].Price)
		})
		view.Prices[0].Cheapest = true
		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en-GB">
<head>
<meta charset="utf-8">
<title>{{.SiteName}}</title>
<meta name="description" content="{{.Description}}">
</head>
<body>
<h1>{{.SiteName}}</h1>
<p>Prices as of {{.DataDate}} &middot; generated {{.GeneratedAt}}</p>
{{range .Products}}
<section>
<h2>{{.Name}}</h2>
<table>
<tr><th>Retailer</th><th>Price</th></tr>
{{range .Prices}}<tr{{if .Cheapest}} class="cheapest"{{end}}><td>{{.Retailer}}</td><td>&pound;{{.Display}}</td></tr>
{{end}}</table>
</section>
{{end}}
</body>
</html>
`))
