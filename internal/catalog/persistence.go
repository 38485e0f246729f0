package catalog

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pm-catalog/internal/domain/product"
	"github.com/xenking/pm-catalog/internal/storage/snapshot"
	"github.com/xenking/pm-catalog/internal/textformat"
)

// ErrNoSnapshot is returned by RestoreData when the temp directory holds no
// snapshot file.
var ErrNoSnapshot = errors.New("no snapshot found")

const snapshotSuffix = ".tmp"

type loaded struct {
	product product.Product
	reviews []product.Review
}

// LoadAllData replaces the catalog with the products and reviews found in
// the data directory. Unreadable files and malformed lines are logged and
// skipped; only a failure to list the directory or a cancelled context is
// returned.
func (m *Manager) LoadAllData(ctx context.Context) error {
	names, err := m.data.List(m.cfg.ProductPrefix, "")
	if err != nil {
		m.lg.Warn("Error loading data", zap.Error(err))
		return errors.Wrap(err, "list products")
	}

	results := make([]*loaded, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.LoadWorkers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := m.loadProduct(name)
			if err != nil {
				m.lg.Warn("Error loading product", zap.String("file", name), zap.Error(err))
				m.metrics.loadSkipped(gctx, "product")
				return nil
			}
			results[i] = &loaded{product: p, reviews: m.loadReviews(gctx, p.ID())}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "load products")
	}

	m.mu.Lock()
	m.resetLocked()
	for _, r := range results {
		if r == nil {
			continue
		}
		if !m.insertLocked(r.product, r.reviews) {
			m.lg.Warn("Duplicate product id", zap.Int("product_id", r.product.ID()))
			m.metrics.loadSkipped(ctx, "product")
		}
	}
	count := len(m.entries)
	ids := make([]int, 0, count)
	for id := range m.entries {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	m.reportOrphanReviews(ids)
	m.lg.Info("Data loaded", zap.Int("products", count), zap.Int("files", len(names)))
	return nil
}

func (m *Manager) loadProduct(name string) (product.Product, error) {
	line, err := m.data.FirstLine(name)
	if err != nil {
		return product.Product{}, err
	}
	return textformat.ParseProduct(line)
}

// loadReviews reads the review file of the product with the given id.
// A missing file means no reviews; an unreadable one is logged and dropped.
func (m *Manager) loadReviews(ctx context.Context, id int) []product.Review {
	name := fmt.Sprintf(m.cfg.ReviewsFile, id)
	reviews := []product.Review{}

	exists, err := m.data.Exists(name)
	if err != nil {
		m.lg.Warn("Error loading reviews", zap.String("file", name), zap.Error(err))
		m.metrics.loadSkipped(ctx, "reviews")
		return reviews
	}
	if !exists {
		return reviews
	}

	if err := m.data.ReadLines(name, func(line string) bool {
		r, err := textformat.ParseReview(line)
		if err != nil {
			m.lg.Warn("Error parsing review", zap.String("file", name), zap.Error(err))
			m.metrics.loadSkipped(ctx, "review")
			return true
		}
		reviews = append(reviews, r)
		return true
	}); err != nil {
		m.lg.Warn("Error loading reviews", zap.String("file", name), zap.Error(err))
		m.metrics.loadSkipped(ctx, "reviews")
		return []product.Review{}
	}
	return reviews
}

// reportOrphanReviews logs review files whose product was not loaded. A
// bloom filter of the loaded ids rejects most orphans without touching the
// id set; positives are confirmed exactly.
func (m *Manager) reportOrphanReviews(ids []int) {
	names, err := m.data.List(m.cfg.ReviewsPrefix, "")
	if err != nil || len(names) == 0 {
		return
	}

	known := make(map[int]struct{}, len(ids))
	filter := bloom.NewWithEstimates(uint(max(len(ids), 1)), 0.01)
	for _, id := range ids {
		known[id] = struct{}{}
		filter.AddString(strconv.Itoa(id))
	}

	for _, name := range names {
		var id int
		if _, err := fmt.Sscanf(name, m.cfg.ReviewsFile, &id); err != nil {
			continue
		}
		if filter.TestString(strconv.Itoa(id)) {
			if _, ok := known[id]; ok {
				continue
			}
		}
		m.lg.Warn("Orphan review file", zap.String("file", name), zap.Int("product_id", id))
	}
}

// ExportData writes every product and its reviews to the data directory in
// the text line format. Each file is attempted; the combined failures are
// returned.
func (m *Manager) ExportData(ctx context.Context) error {
	m.mu.Lock()
	entries := m.snapshotLocked()
	m.mu.Unlock()

	if err := m.data.MkdirAll(); err != nil {
		return err
	}

	var errs error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		id := e.Product.ID()

		line, err := textformat.FormatProduct(e.Product)
		if err == nil {
			err = m.data.WriteLines(fmt.Sprintf(m.cfg.ProductFile, id), []string{line})
		}
		if err != nil {
			m.lg.Warn("Error exporting product", zap.Int("product_id", id), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}

		lines := make([]string, 0, len(e.Reviews))
		for _, r := range e.Reviews {
			line, err := textformat.FormatReview(r)
			if err != nil {
				m.lg.Warn("Error exporting review", zap.Int("product_id", id), zap.Error(err))
				errs = multierr.Append(errs, err)
				continue
			}
			lines = append(lines, line)
		}
		if err := m.data.WriteLines(fmt.Sprintf(m.cfg.ReviewsFile, id), lines); err != nil {
			m.lg.Warn("Error exporting reviews", zap.Int("product_id", id), zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// SnapshotFileName returns the name DumpData uses on the current day.
func (m *Manager) SnapshotFileName() string {
	return m.now().Format(product.DateLayout) + snapshotSuffix
}

// DumpData writes the whole catalog to a snapshot file in the temp
// directory and then empties the catalog. On failure the catalog is kept.
func (m *Manager) DumpData(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name := m.SnapshotFileName()
	entries := m.snapshotLocked()
	if err := m.temp.WriteAtomic(name, func(w io.Writer) error {
		return snapshot.Encode(w, entries)
	}); err != nil {
		m.lg.Error("Error dumping data", zap.Error(err))
		return errors.Wrap(err, "dump data")
	}

	m.resetLocked()
	m.lg.Info("Data dumped", zap.String("file", m.temp.Path(name)), zap.Int("products", len(entries)))
	return nil
}

// RestoreData replaces the catalog with the first snapshot found in the temp
// directory and deletes that snapshot once it has been read.
func (m *Manager) RestoreData(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	names, err := m.temp.List("", snapshotSuffix)
	if err != nil {
		m.lg.Error("Error reading data", zap.Error(err))
		return errors.Wrap(err, "restore data")
	}
	if len(names) == 0 {
		m.lg.Error("Error reading data", zap.Error(ErrNoSnapshot))
		return ErrNoSnapshot
	}
	name := names[0]

	entries, err := m.readSnapshot(name)
	if err != nil {
		m.lg.Error("Error reading data", zap.String("file", name), zap.Error(err))
		return errors.Wrap(err, "restore data")
	}

	m.mu.Lock()
	m.resetLocked()
	for _, e := range entries {
		m.insertLocked(e.Product, e.Reviews)
	}
	m.mu.Unlock()

	if err := m.temp.Remove(name); err != nil {
		m.lg.Warn("Error removing snapshot", zap.String("file", name), zap.Error(err))
	}
	m.lg.Info("Data restored", zap.String("file", m.temp.Path(name)), zap.Int("products", len(entries)))
	return nil
}

func (m *Manager) readSnapshot(name string) ([]snapshot.Entry, error) {
	r, err := m.temp.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	return snapshot.Decode(r)
}

// snapshotLocked copies the catalog in insertion order.
func (m *Manager) snapshotLocked() []snapshot.Entry {
	out := make([]snapshot.Entry, 0, len(m.order))
	for _, id := range m.order {
		e := m.entries[id]
		out = append(out, snapshot.Entry{
			Product: e.product,
			Reviews: slices.Clone(e.reviews),
		})
	}
	return out
}
