// Package catalog implements the product repository: it owns every product
// together with its reviews, keeps ratings in sync with the reviews, renders
// reports through a locale Formatter and persists the catalog to disk.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/pm-catalog/internal/domain/product"
	"github.com/xenking/pm-catalog/internal/storage/filestore"
)

// ProductNotFoundError indicates that no stored product matches a lookup.
type ProductNotFoundError struct {
	ProductID int
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product with id %d not found", e.ProductID)
}

// Unwrap lets callers match the error against product.ErrNotFound.
func (e *ProductNotFoundError) Unwrap() error { return product.ErrNotFound }

// Formatter renders catalog values for humans. See the locale package for
// the standard implementation.
type Formatter interface {
	FormatProduct(p product.Product) string
	FormatReview(r product.Review) string
	FormatMoney(v decimal.Decimal) string
	Text(key string) string
}

// textNoReviews is the Formatter text key printed for a product without
// reviews.
const textNoReviews = "no.reviews"

// Config holds the on-disk layout of the catalog.
type Config struct {
	// DataDir holds product and review files in the text line format.
	DataDir string
	// ReportsDir receives one report file per product.
	ReportsDir string
	// TempDir holds snapshot files written by DumpData.
	TempDir string

	// ProductFile, ReviewsFile and ReportFile are fmt patterns taking the
	// product id.
	ProductFile string
	ReviewsFile string
	ReportFile  string
	// ProductPrefix selects product files in DataDir when loading.
	ProductPrefix string
	// ReviewsPrefix selects review files in DataDir when looking for orphans.
	ReviewsPrefix string

	// LoadWorkers bounds the number of files parsed concurrently.
	LoadWorkers int
}

func (c *Config) setDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.ReportsDir == "" {
		c.ReportsDir = "reports"
	}
	if c.TempDir == "" {
		c.TempDir = "temp"
	}
	if c.ProductFile == "" {
		c.ProductFile = "product%d.txt"
	}
	if c.ReviewsFile == "" {
		c.ReviewsFile = "reviews%d.txt"
	}
	if c.ReportFile == "" {
		c.ReportFile = "product%d.txt"
	}
	if c.ProductPrefix == "" {
		c.ProductPrefix = "product"
	}
	if c.ReviewsPrefix == "" {
		c.ReviewsPrefix = "reviews"
	}
	if c.LoadWorkers <= 0 {
		c.LoadWorkers = 4
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. The default discards everything.
func WithLogger(lg *zap.Logger) Option {
	return func(m *Manager) { m.lg = lg }
}

// WithMeterProvider sets the meter provider used for catalog counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(m *Manager) { m.mp = mp }
}

// WithClock overrides the wall clock used for discounts and snapshot names.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// entry is the stored state of a single product.
type entry struct {
	product product.Product
	reviews []product.Review
}

// Manager is the product repository.
//
// Products are keyed by id. Every operation holds mu for its whole duration,
// so the read, re-rate and replace steps of a review are atomic.
type Manager struct {
	cfg Config

	mu        sync.Mutex
	entries   map[int]*entry
	order     []int
	formatter Formatter

	data    *filestore.Dir
	reports *filestore.Dir
	temp    *filestore.Dir

	lg      *zap.Logger
	mp      metric.MeterProvider
	metrics *metrics
	now     func() time.Time
}

// New returns an empty Manager. Call LoadAllData to populate it from disk.
func New(cfg Config, f Formatter, opts ...Option) (*Manager, error) {
	if f == nil {
		return nil, errors.New("formatter is required")
	}
	cfg.setDefaults()

	m := &Manager{
		cfg:       cfg,
		entries:   make(map[int]*entry),
		formatter: f,
		data:      filestore.New(cfg.DataDir),
		reports:   filestore.New(cfg.ReportsDir),
		temp:      filestore.New(cfg.TempDir),
		lg:        zap.NewNop(),
		mp:        noop.NewMeterProvider(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(m)
	}

	mt, err := newMetrics(m.mp)
	if err != nil {
		return nil, errors.Wrap(err, "init metrics")
	}
	m.metrics = mt

	return m, nil
}

// ChangeFormatter switches the formatter used by reports and discounts.
func (m *Manager) ChangeFormatter(f Formatter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.formatter = f
}

// CreateDrink registers a drink unless a product with the same id is already
// stored. The new value is returned either way.
func (m *Manager) CreateDrink(id int, name string, price decimal.Decimal, rating product.Rating) product.Product {
	return m.create(product.NewDrink(id, name, price, rating))
}

// CreateFood registers a food product unless a product with the same id is
// already stored. The new value is returned either way.
func (m *Manager) CreateFood(id int, name string, price decimal.Decimal, rating product.Rating, bestBefore time.Time) product.Product {
	return m.create(product.NewFood(id, name, price, rating, bestBefore))
}

func (m *Manager) create(p product.Product) product.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertLocked(p, nil) {
		m.metrics.productCreated(context.Background(), p.Kind())
	} else {
		m.lg.Debug("Product already exists", zap.Int("product_id", p.ID()))
	}
	return p
}

// insertLocked stores p with the given reviews if its id is free.
func (m *Manager) insertLocked(p product.Product, reviews []product.Review) bool {
	if _, ok := m.entries[p.ID()]; ok {
		return false
	}
	if reviews == nil {
		reviews = []product.Review{}
	}
	m.entries[p.ID()] = &entry{product: p, reviews: reviews}
	m.order = append(m.order, p.ID())
	return true
}

// resetLocked drops every stored product.
func (m *Manager) resetLocked() {
	m.entries = make(map[int]*entry)
	m.order = nil
}

// FindProduct returns the current value of the product with the given id.
func (m *Manager) FindProduct(id int) (product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return product.Product{}, &ProductNotFoundError{ProductID: id}
	}
	return e.product, nil
}

// lookupLocked returns the entry storing exactly p.
func (m *Manager) lookupLocked(p product.Product) (*entry, error) {
	e, ok := m.entries[p.ID()]
	if !ok || !e.product.Equal(p) {
		return nil, &ProductNotFoundError{ProductID: p.ID()}
	}
	return e, nil
}

// Reviews returns the reviews of the product with the given id, lowest
// rating first.
func (m *Manager) Reviews(id int) ([]product.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, &ProductNotFoundError{ProductID: id}
	}
	return sortedReviews(e.reviews), nil
}

// Products returns every stored product in insertion order.
func (m *Manager) Products() []product.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]product.Product, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.entries[id].product)
	}
	return out
}

// Len returns the number of stored products.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func sortedReviews(reviews []product.Review) []product.Review {
	out := slices.Clone(reviews)
	slices.SortStableFunc(out, product.CompareReviews)
	return out
}
