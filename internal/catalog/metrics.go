package catalog

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xenking/pm-catalog/internal/domain/product"
)

const meterName = "github.com/xenking/pm-catalog/internal/catalog"

type metrics struct {
	created metric.Int64Counter
	reviews metric.Int64Counter
	skipped metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider) (*metrics, error) {
	meter := mp.Meter(meterName)

	created, err := meter.Int64Counter("catalog.products.created",
		metric.WithDescription("Products added to the catalog"))
	if err != nil {
		return nil, err
	}
	reviews, err := meter.Int64Counter("catalog.reviews.added",
		metric.WithDescription("Reviews recorded"))
	if err != nil {
		return nil, err
	}
	skipped, err := meter.Int64Counter("catalog.load.skipped",
		metric.WithDescription("Files or lines skipped while loading data"))
	if err != nil {
		return nil, err
	}

	return &metrics{created: created, reviews: reviews, skipped: skipped}, nil
}

func (mt *metrics) productCreated(ctx context.Context, kind product.Kind) {
	mt.created.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind.String())))
}

func (mt *metrics) reviewAdded(ctx context.Context, rating product.Rating) {
	mt.reviews.Add(ctx, 1, metric.WithAttributes(attribute.Int("rating", rating.Level())))
}

func (mt *metrics) loadSkipped(ctx context.Context, what string) {
	mt.skipped.Add(ctx, 1, metric.WithAttributes(attribute.String("item", what)))
}
