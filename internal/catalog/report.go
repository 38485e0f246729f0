package catalog

import (
	"fmt"
	"io"
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/pm-catalog/internal/domain/product"
)

// WriteProductReport writes the report of p to w: the product line followed
// by its reviews, lowest rating first, or a "no reviews" line.
func (m *Manager) WriteProductReport(w io.Writer, p product.Product) error {
	m.mu.Lock()
	e, err := m.lookupLocked(p)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	current, reviews, f := e.product, sortedReviews(e.reviews), m.formatter
	m.mu.Unlock()

	return writeReport(w, f, current, reviews)
}

func writeReport(w io.Writer, f Formatter, p product.Product, reviews []product.Review) error {
	if _, err := fmt.Fprintln(w, f.FormatProduct(p)); err != nil {
		return err
	}
	if len(reviews) == 0 {
		_, err := fmt.Fprintln(w, f.Text(textNoReviews))
		return err
	}
	for _, r := range reviews {
		if _, err := fmt.Fprintln(w, f.FormatReview(r)); err != nil {
			return err
		}
	}
	return nil
}

// ReportFileName returns the report file name of the product with the
// given id.
func (m *Manager) ReportFileName(id int) string {
	return fmt.Sprintf(m.cfg.ReportFile, id)
}

// PrintProductReport writes the report of p to its file in the reports
// directory, replacing any previous report.
func (m *Manager) PrintProductReport(p product.Product) error {
	name := m.ReportFileName(p.ID())
	err := m.reports.WriteAtomic(name, func(w io.Writer) error {
		return m.WriteProductReport(w, p)
	})
	if err != nil {
		return errors.Wrapf(err, "report product %d", p.ID())
	}
	m.lg.Debug("Report written", zap.Int("product_id", p.ID()), zap.String("file", m.reports.Path(name)))
	return nil
}

// PrintProductReportByID writes the report of the product with the given id.
// Failures are logged, not returned.
func (m *Manager) PrintProductReportByID(id int) {
	p, err := m.FindProduct(id)
	if err != nil {
		m.lg.Info("Report skipped", zap.Int("product_id", id), zap.Error(err))
		return
	}
	if err := m.PrintProductReport(p); err != nil {
		m.lg.Error("Error printing product report", zap.Int("product_id", id), zap.Error(err))
	}
}

// PrintProducts writes one formatted line per product accepted by filter,
// ordered by cmp. A nil filter accepts everything; a nil cmp keeps
// insertion order.
func (m *Manager) PrintProducts(w io.Writer, filter func(product.Product) bool, cmp func(a, b product.Product) int) error {
	m.mu.Lock()
	f := m.formatter
	m.mu.Unlock()

	products := m.Products()
	if cmp != nil {
		slices.SortStableFunc(products, cmp)
	}
	for _, p := range products {
		if filter != nil && !filter(p) {
			continue
		}
		if _, err := fmt.Fprintln(w, f.FormatProduct(p)); err != nil {
			return err
		}
	}
	return nil
}

// Discounts sums the current discount of all products sharing a rating and
// returns the formatted totals keyed by the rating's star label.
func (m *Manager) Discounts() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	totals := make(map[string]decimal.Decimal)
	for _, e := range m.entries {
		stars := e.product.Rating().Stars()
		totals[stars] = totals[stars].Add(e.product.DiscountAt(now))
	}

	out := make(map[string]string, len(totals))
	for stars, total := range totals {
		out[stars] = m.formatter.FormatMoney(total)
	}
	return out
}
