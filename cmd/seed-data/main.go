package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/pm-catalog/db"
	"github.com/xenking/pm-catalog/internal/catalog"
	"github.com/xenking/pm-catalog/internal/domain/product"
	"github.com/xenking/pm-catalog/internal/locale"
)

type config struct {
	DataDir      string `default:"data" usage:"Directory receiving product and review files" flag:"data-dir"`
	ProductsFile string `usage:"Path to a products JSON file; the embedded seed catalog is used when empty" flag:"products-file"`
}

type productJSON struct {
	ID             int             `json:"id"`
	Type           string          `json:"type"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Rating         int             `json:"rating"`
	BestBeforeDays int             `json:"best_before_days"`
	Reviews        []struct {
		Rating   int    `json:"rating"`
		Comments string `json:"comments"`
	} `json:"reviews"`
}

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		var cfg config
		loader := aconfig.LoaderFor(&cfg, aconfig.Config{
			EnvPrefix: "SHOP",
			Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
			FileDecoders: map[string]aconfig.FileDecoder{
				".yaml": aconfigyaml.New(),
			},
		})
		if err := loader.Load(); err != nil {
			return errors.Wrap(err, "load config")
		}

		data := db.SeedProducts
		if cfg.ProductsFile != "" {
			lg.Info("Reading products file", zap.String("path", cfg.ProductsFile))
			b, err := os.ReadFile(cfg.ProductsFile)
			if err != nil {
				return errors.Wrap(err, "read products file")
			}
			data = b
		}

		if err := seed(ctx, data, cfg.DataDir, time.Now()); err != nil {
			return errors.Wrap(err, "seed")
		}
		lg.Info("Seed completed", zap.String("data_dir", cfg.DataDir))
		return nil
	})
}

// seed writes the products described by data, with their reviews, to
// dataDir. Food best-before dates are relative to now.
func seed(ctx context.Context, data []byte, dataDir string, now time.Time) error {
	lg := zctx.From(ctx)

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	registry, err := locale.NewDefaultRegistry()
	if err != nil {
		return errors.Wrap(err, "load locales")
	}
	pm, err := catalog.New(catalog.Config{DataDir: dataDir}, registry.Lookup(locale.DefaultFallback),
		catalog.WithLogger(lg),
		catalog.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		return errors.Wrap(err, "create catalog")
	}

	for _, p := range products {
		rating, err := product.FromLevel(p.Rating)
		if err != nil {
			return errors.Wrapf(err, "product %d", p.ID)
		}
		switch p.Type {
		case product.KindDrink.String():
			pm.CreateDrink(p.ID, p.Name, p.Price, rating)
		case product.KindFood.String():
			pm.CreateFood(p.ID, p.Name, p.Price, rating, now.AddDate(0, 0, p.BestBeforeDays))
		default:
			return errors.Errorf("product %d: unknown type %q", p.ID, p.Type)
		}

		for _, r := range p.Reviews {
			rating, err := product.FromLevel(r.Rating)
			if err != nil {
				return errors.Wrapf(err, "review of product %d", p.ID)
			}
			if _, ok := pm.ReviewProductByID(p.ID, rating, r.Comments); !ok {
				return errors.Errorf("review of product %d rejected", p.ID)
			}
		}
		lg.Info("Seeded product", zap.Int("id", p.ID), zap.String("name", p.Name), zap.Int("reviews", len(p.Reviews)))
	}

	return pm.ExportData(ctx)
}
