package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/xenking/pm-catalog/internal/domain/product"
)

// ReviewProduct records a review for p, recomputes its rating as the rounded
// mean of all its reviews and replaces the stored product with the re-rated
// value, which is returned.
//
// p must equal the stored product (same id, name, price and rating);
// otherwise a *ProductNotFoundError is returned and nothing changes.
func (m *Manager) ReviewProduct(p product.Product, rating product.Rating, comments string) (product.Product, error) {
	if _, err := product.FromLevel(rating.Level()); err != nil {
		return product.Product{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookupLocked(p)
	if err != nil {
		return product.Product{}, err
	}
	return m.reviewLocked(e, rating, comments), nil
}

// ReviewProductByID is ReviewProduct for the current product with the given
// id. Failures are logged and reported as ok == false.
func (m *Manager) ReviewProductByID(id int, rating product.Rating, comments string) (p product.Product, ok bool) {
	if _, err := product.FromLevel(rating.Level()); err != nil {
		m.lg.Info("Review rejected", zap.Int("product_id", id), zap.Error(err))
		return product.Product{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, found := m.entries[id]
	if !found {
		m.lg.Info("Review skipped",
			zap.Int("product_id", id),
			zap.Error(&ProductNotFoundError{ProductID: id}),
		)
		return product.Product{}, false
	}
	return m.reviewLocked(e, rating, comments), true
}

func (m *Manager) reviewLocked(e *entry, rating product.Rating, comments string) product.Product {
	e.reviews = append(e.reviews, product.NewReview(rating, comments))
	e.product = e.product.ApplyRating(product.Average(product.Ratings(e.reviews)))

	m.metrics.reviewAdded(context.Background(), rating)
	m.lg.Debug("Product reviewed",
		zap.Int("product_id", e.product.ID()),
		zap.Int("reviews", len(e.reviews)),
		zap.Int("rating", e.product.Rating().Level()),
	)
	return e.product
}
