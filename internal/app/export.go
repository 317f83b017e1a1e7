package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"power-price-tracker/internal/storage"
)

// Export writes a (product, retailer) price series as CSV and/or a PNG
// chart.
func (a *App) Export(_ context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}
	if opts.ProductID == "" || opts.Retailer == "" {
		return errors.New("--product and --retailer must be provided")
	}
	if opts.Days <= 0 {
		opts.Days = 30
	}
	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, err := a.openStore()
	if err != nil {
		return err
	}

	points := store.SeriesPoints(opts.ProductID, opts.Retailer, opts.Days)
	if len(points) == 0 {
		a.Logger.Info().
			Str("product", opts.ProductID).
			Str("retailer", opts.Retailer).
			Msg("no observations found for export window")
		return nil
	}

	downsampled := downsamplePoints(points, opts.MaxPoints)
	a.Logger.Info().Int("total", len(points)).Int("exported", len(downsampled)).Msg("exporting series")

	if opts.CSVPath != "" {
		if err := writeSeriesCSV(opts.CSVPath, opts.ProductID, opts.Retailer, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSeriesPNG(opts.PNGPath, opts.ProductID, opts.Retailer, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsamplePoints(points []storage.PricePoint, max int) []storage.PricePoint {
	if max <= 0 || len(points) <= max {
		return points
	}

	result := make([]storage.PricePoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

func writeSeriesCSV(path, productID, retailer string, points []storage.PricePoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"scraped_at", "product_id", "retailer", "price_gbp"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, point := range points {
		record := []string{
			point.ScrapedAt.UTC().Format(time.RFC3339),
			productID,
			retailer,
			point.Price.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSeriesPNG(path, productID, retailer string, points []storage.PricePoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(points))
	y := make([]float64, len(points))
	for i, point := range points {
		x[i] = point.ScrapedAt
		y[i] = point.Price.InexactFloat64()
	}

	graph := chart.Chart{
		Title: fmt.Sprintf("%s @ %s (GBP)", productID, retailer),
		XAxis: chart.XAxis{ValueFormatter: chart.TimeDateValueFormatter},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "price",
				XValues: x,
				YValues: y,
			},
		},
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
