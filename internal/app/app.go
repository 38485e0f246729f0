// Package app wires the catalog, its locale formatters and telemetry into the
// shop command.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/pm-catalog/internal/catalog"
	"github.com/xenking/pm-catalog/internal/domain/product"
	"github.com/xenking/pm-catalog/internal/ingest"
	"github.com/xenking/pm-catalog/internal/locale"
)

var _ catalog.Formatter = (*locale.Formatter)(nil)

type review struct {
	rating   product.Rating
	comments string
}

var teaReviews = []review{
	{product.FourStar, "Nice hot cup of tea"},
	{product.TwoStar, "Rather weak tea"},
	{product.FourStar, "Fine tea"},
	{product.FourStar, "Good tea"},
	{product.FiveStar, "Perfect tea"},
	{product.ThreeStar, "Just add some lemon"},
}

// Run builds the catalog, loads the data directory and runs the shop
// session: it registers and reviews a product, prints reports and discount
// totals and optionally round-trips the catalog through a snapshot.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	return run(ctx, lg, m.MeterProvider(), cfg, os.Stdout)
}

func run(ctx context.Context, lg *zap.Logger, mp metric.MeterProvider, cfg *Config, out io.Writer) error {
	registry, err := locale.NewDefaultRegistry()
	if err != nil {
		return errors.Wrap(err, "load locales")
	}
	f := registry.Lookup(cfg.Locale)
	if f.Tag() != cfg.Locale {
		lg.Warn("Unsupported locale, using fallback",
			zap.String("locale", cfg.Locale),
			zap.String("fallback", f.Tag()),
		)
	}
	lg.Info("Initializing",
		zap.String("locale", f.Tag()),
		zap.String("data_dir", cfg.DataDir),
	)

	pm, err := catalog.New(cfg.Catalog(), f,
		catalog.WithLogger(lg.Named("catalog")),
		catalog.WithMeterProvider(mp),
	)
	if err != nil {
		return errors.Wrap(err, "create catalog")
	}

	// A missing data directory leaves the catalog empty.
	if err := pm.LoadAllData(ctx); err != nil && ctx.Err() != nil {
		return errors.Wrap(err, "load data")
	}

	if len(cfg.Imports) > 0 {
		if _, err := ingest.Reviews(ctx, lg.Named("ingest"), pm, cfg.Imports, cfg.LoadWorkers); err != nil {
			return errors.Wrap(err, "import reviews")
		}
	}

	tea := pm.CreateDrink(101, "Tea", decimal.RequireFromString("1.99"), product.ThreeStar)
	pm.PrintProductReportByID(tea.ID())
	for _, r := range teaReviews {
		if _, ok := pm.ReviewProductByID(tea.ID(), r.rating, r.comments); !ok {
			return errors.Errorf("review product %d", tea.ID())
		}
	}
	pm.CreateFood(103, "Cake", decimal.RequireFromString("3.99"), product.FiveStar, time.Now().AddDate(0, 0, 2))

	for _, p := range pm.Products() {
		pm.PrintProductReportByID(p.ID())
	}

	if err := pm.PrintProducts(out, nil, compareByRating); err != nil {
		return errors.Wrap(err, "print products")
	}
	if err := printDiscounts(out, pm.Discounts()); err != nil {
		return errors.Wrap(err, "print discounts")
	}

	if cfg.Snapshot {
		if err := pm.DumpData(ctx); err != nil {
			return errors.Wrap(err, "dump data")
		}
		if err := pm.RestoreData(ctx); err != nil {
			return errors.Wrap(err, "restore data")
		}
	}
	if cfg.Export {
		if err := pm.ExportData(ctx); err != nil {
			return errors.Wrap(err, "export data")
		}
	}

	lg.Info("Done", zap.Int("products", pm.Len()))
	return nil
}

// compareByRating orders the best rated products first, then by id.
func compareByRating(a, b product.Product) int {
	if c := b.Rating().Level() - a.Rating().Level(); c != 0 {
		return c
	}
	return a.ID() - b.ID()
}

func printDiscounts(w io.Writer, discounts map[string]string) error {
	keys := make([]string, 0, len(discounts))
	for k := range discounts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", k, discounts[k]); err != nil {
			return err
		}
	}
	return nil
}
