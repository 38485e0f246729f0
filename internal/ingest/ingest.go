// Package ingest imports reviews from gzip-compressed review exports.
//
// Each line of an export is "<productID>,<rating>,<comments>". Files are
// streamed concurrently; reviews are applied in file order once every file
// has been read.
package ingest

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/pm-catalog/internal/domain/product"
	"github.com/xenking/pm-catalog/internal/textformat"
)

const (
	bloomFPR      = 0.001
	progressEvery = 100_000
	ctxCheckEvery = 1024
	maxLineSize   = 1 << 20
)

// Catalog is the part of the product repository the importer needs.
type Catalog interface {
	Products() []product.Product
	ReviewProductByID(id int, rating product.Rating, comments string) (product.Product, bool)
}

// Stats summarizes an import.
type Stats struct {
	Lines     int
	Applied   int
	Unknown   int
	Malformed int
}

func (s *Stats) add(o Stats) {
	s.Lines += o.Lines
	s.Applied += o.Applied
	s.Unknown += o.Unknown
	s.Malformed += o.Malformed
}

type pending struct {
	productID int
	review    product.Review
}

type fileResult struct {
	reviews []pending
	stats   Stats
}

// Reviews imports every review found in paths into c. Lines for products
// the catalog does not hold and malformed lines are counted and skipped; an
// unreadable file aborts the import before any review is applied.
func Reviews(ctx context.Context, lg *zap.Logger, c Catalog, paths []string, workers int) (Stats, error) {
	products := c.Products()
	filter := bloom.NewWithEstimates(uint(max(len(products), 1)), bloomFPR)
	for _, p := range products {
		filter.AddString(strconv.Itoa(p.ID()))
	}

	results := make([]fileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			r, err := scanFile(gctx, lg, path, filter)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	var total Stats
	for _, r := range results {
		total.add(r.stats)
		for _, p := range r.reviews {
			if _, ok := c.ReviewProductByID(p.productID, p.review.Rating, p.review.Comments); !ok {
				total.Unknown++
				continue
			}
			total.Applied++
		}
	}

	lg.Info("Reviews imported",
		zap.Int("files", len(paths)),
		zap.Int("lines", total.Lines),
		zap.Int("applied", total.Applied),
		zap.Int("unknown", total.Unknown),
		zap.Int("malformed", total.Malformed),
	)
	return total, nil
}

// errUnknownProduct marks a line whose product id is not in the catalog.
var errUnknownProduct = errors.New("unknown product")

func scanFile(ctx context.Context, lg *zap.Logger, path string, filter *bloom.BloomFilter) (fileResult, error) {
	var r fileResult
	err := readGzLines(ctx, path, func(line string) {
		r.stats.Lines++
		if r.stats.Lines%progressEvery == 0 {
			lg.Debug("Import progress", zap.String("file", path), zap.Int("lines", r.stats.Lines))
		}
		if line == "" {
			return
		}

		p, err := parseLine(line, filter)
		switch {
		case errors.Is(err, errUnknownProduct):
			r.stats.Unknown++
		case err != nil:
			lg.Debug("Malformed review line", zap.String("file", path), zap.Error(err))
			r.stats.Malformed++
		default:
			r.reviews = append(r.reviews, p)
		}
	})
	return r, err
}

// parseLine splits an export line into its product id and review. The id
// must be numeric before it is checked against the known-id filter.
func parseLine(line string, known *bloom.BloomFilter) (pending, error) {
	idField, rest, ok := strings.Cut(line, ",")
	if !ok {
		return pending{}, errors.Errorf("no product id in %q", line)
	}
	id, err := strconv.Atoi(strings.TrimSpace(idField))
	if err != nil {
		return pending{}, errors.Wrap(err, "product id")
	}
	if !known.TestString(strconv.Itoa(id)) {
		return pending{}, errUnknownProduct
	}
	review, err := textformat.ParseReview(rest)
	if err != nil {
		return pending{}, err
	}
	return pending{productID: id, review: review}, nil
}

// readGzLines calls fn for each line of the gzip file at path. Lines may be
// up to maxLineSize bytes; the context is checked every ctxCheckEvery lines.
func readGzLines(ctx context.Context, path string, fn func(line string)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "decompress %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for n := 0; scanner.Scan(); n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "read %s", path)
	}
	return nil
}
