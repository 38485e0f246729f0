package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pm-catalog/internal/domain/product"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	return Config{
		DataDir:    filepath.Join(root, "data"),
		ReportsDir: filepath.Join(root, "reports"),
		TempDir:    filepath.Join(root, "temp"),
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func assertSameProducts(t *testing.T, want, got []product.Product) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "product %d: want %s, got %s", i, want[i], got[i])
		assert.Equal(t, want[i].Kind(), got[i].Kind())
		assert.Equal(t, want[i].BestBefore(), got[i].BestBefore())
	}
}

func TestLoadAllData(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.DataDir, "product101.txt", "D,101,Tea,1.99,3\n")
	writeFile(t, cfg.DataDir, "product102.txt", "X,102,Broken\n")
	writeFile(t, cfg.DataDir, "product103.txt", "F,103,Cake,3.99,4,2026-10-20\n")
	writeFile(t, cfg.DataDir, "product104.txt", "")
	writeFile(t, cfg.DataDir, "reviews101.txt", "2,Rather weak tea\n4,Fine tea, with milk\nnot a review\n")
	writeFile(t, cfg.DataDir, "reviews999.txt", "1,Nobody ordered this\n")

	m, logs := newObservedManager(t, cfg)
	m.CreateDrink(500, "Leftover", d("1"), product.OneStar)

	require.NoError(t, m.LoadAllData(context.Background()))

	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []int{101, 103}, ids(m.Products()))

	tea, err := m.FindProduct(101)
	require.NoError(t, err)
	assert.Equal(t, "Tea", tea.Name())
	assert.True(t, d("1.99").Equal(tea.Price()))
	assert.Equal(t, product.ThreeStar, tea.Rating())

	reviews, err := m.Reviews(101)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "Rather weak tea", reviews[0].Comments)
	assert.Equal(t, "Fine tea, with milk", reviews[1].Comments)

	cake, err := m.FindProduct(103)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC), cake.BestBefore())

	cakeReviews, err := m.Reviews(103)
	require.NoError(t, err)
	assert.Empty(t, cakeReviews)

	assert.Equal(t, 2, logs.FilterMessage("Error loading product").Len())
	assert.Equal(t, 1, logs.FilterMessage("Error parsing review").Len())
	assert.Equal(t, 1, logs.FilterMessage("Orphan review file").Len())
}

func TestLoadAllDataMissingDir(t *testing.T) {
	m, logs := newObservedManager(t, testConfig(t))
	m.CreateDrink(101, "Tea", d("1.99"), product.ThreeStar)

	err := m.LoadAllData(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, logs.FilterMessage("Error loading data").Len())
}

func TestLoadAllDataCancelled(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.DataDir, "product101.txt", "D,101,Tea,1.99,3\n")

	m := newTestManager(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.LoadAllData(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 0, m.Len())
}

func TestExportData(t *testing.T) {
	cfg := testConfig(t)

	src := newTestManager(t, cfg)
	tea := src.CreateDrink(101, "Tea", d("1.99"), product.NotRated)
	src.CreateFood(103, "Cake", d("3.99"), product.FiveStar, time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC))
	_, err := src.ReviewProduct(tea, product.TwoStar, "Rather weak, but hot")
	require.NoError(t, err)

	require.NoError(t, src.ExportData(context.Background()))

	raw, err := os.ReadFile(filepath.Join(cfg.DataDir, "product101.txt"))
	require.NoError(t, err)
	assert.Equal(t, "D,101,Tea,1.99,2\n", string(raw))

	raw, err = os.ReadFile(filepath.Join(cfg.DataDir, "reviews101.txt"))
	require.NoError(t, err)
	assert.Equal(t, "2,Rather weak, but hot\n", string(raw))

	dst := newTestManager(t, cfg)
	require.NoError(t, dst.LoadAllData(context.Background()))
	assertSameProducts(t, src.Products(), dst.Products())

	reviews, err := dst.Reviews(101)
	require.NoError(t, err)
	assert.Equal(t, []product.Review{product.NewReview(product.TwoStar, "Rather weak, but hot")}, reviews)
}

func TestExportDataUnencodable(t *testing.T) {
	cfg := testConfig(t)

	m, logs := newObservedManager(t, cfg)
	m.CreateDrink(101, "Tea, green", d("1.99"), product.ThreeStar)
	m.CreateDrink(102, "Coffee", d("2.99"), product.FourStar)
	_, ok := m.ReviewProductByID(102, product.FourStar, "line one\nline two")
	require.True(t, ok)

	err := m.ExportData(context.Background())
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(cfg.DataDir, "product101.txt"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
	_, statErr = os.Stat(filepath.Join(cfg.DataDir, "product102.txt"))
	assert.NoError(t, statErr)

	assert.Equal(t, 1, logs.FilterMessage("Error exporting product").Len())
	assert.Equal(t, 1, logs.FilterMessage("Error exporting review").Len())
}

func TestDumpRestore(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	m := newTestManager(t, cfg)
	tea := m.CreateDrink(101, "Tea", d("1.99"), product.NotRated)
	m.CreateFood(103, "Cake", d("3.99"), product.FiveStar, time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC))
	tea, err := m.ReviewProduct(tea, product.FourStar, "Nice hot cup of tea")
	require.NoError(t, err)
	_, err = m.ReviewProduct(tea, product.TwoStar, "Rather weak tea")
	require.NoError(t, err)

	before := m.Products()
	beforeReviews, err := m.Reviews(101)
	require.NoError(t, err)

	require.NoError(t, m.DumpData(ctx))
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, "2026-10-15.tmp", m.SnapshotFileName())
	assert.FileExists(t, filepath.Join(cfg.TempDir, "2026-10-15.tmp"))

	require.NoError(t, m.RestoreData(ctx))
	assertSameProducts(t, before, m.Products())

	afterReviews, err := m.Reviews(101)
	require.NoError(t, err)
	assert.Equal(t, beforeReviews, afterReviews)

	cakeReviews, err := m.Reviews(103)
	require.NoError(t, err)
	assert.Empty(t, cakeReviews)

	assert.NoFileExists(t, filepath.Join(cfg.TempDir, "2026-10-15.tmp"))
	assert.True(t, errors.Is(m.RestoreData(ctx), ErrNoSnapshot))
	assert.Equal(t, 2, m.Len())
}

func TestRestoreDataCorrupt(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, cfg.TempDir, "2026-10-14.tmp", "not gzip")

	m, logs := newObservedManager(t, cfg)
	m.CreateDrink(101, "Tea", d("1.99"), product.ThreeStar)

	require.Error(t, m.RestoreData(context.Background()))
	assert.Equal(t, 1, m.Len())
	assert.FileExists(t, filepath.Join(cfg.TempDir, "2026-10-14.tmp"))
	assert.Equal(t, 1, logs.FilterMessage("Error reading data").Len())
}

func TestRestoreDataMissingDir(t *testing.T) {
	m := newTestManager(t, testConfig(t))
	require.Error(t, m.RestoreData(context.Background()))
}
