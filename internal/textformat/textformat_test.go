package textformat

import (
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pm-catalog/internal/domain/product"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestParseProduct(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantKind   product.Kind
		wantID     int
		wantName   string
		wantPrice  decimal.Decimal
		wantRating product.Rating
		wantDate   time.Time
	}{
		{
			name:       "drink",
			line:       "D,101,Tea,1.99,0",
			wantKind:   product.KindDrink,
			wantID:     101,
			wantName:   "Tea",
			wantPrice:  d("1.99"),
			wantRating: product.NotRated,
		},
		{
			name:       "food",
			line:       "F,103,Cake,3.99,4,2026-10-20",
			wantKind:   product.KindFood,
			wantID:     103,
			wantName:   "Cake",
			wantPrice:  d("3.99"),
			wantRating: product.FourStar,
			wantDate:   time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "trailing newline",
			line:       "D,102,Coffee,2.5,3\r\n",
			wantKind:   product.KindDrink,
			wantID:     102,
			wantName:   "Coffee",
			wantPrice:  d("2.50"),
			wantRating: product.ThreeStar,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProduct(tt.line)
			require.NoError(t, err)

			assert.Equal(t, tt.wantKind, p.Kind())
			assert.Equal(t, tt.wantID, p.ID())
			assert.Equal(t, tt.wantName, p.Name())
			assert.True(t, tt.wantPrice.Equal(p.Price()), "price %s", p.Price())
			assert.Equal(t, tt.wantRating, p.Rating())
			if tt.wantKind == product.KindFood {
				assert.Equal(t, tt.wantDate, p.BestBefore())
			}
		})
	}
}

func TestParseProductErrors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
	}{
		{"empty", "", ErrFieldCount},
		{"too few fields", "D,101,Tea,1.99", ErrFieldCount},
		{"drink with date", "D,101,Tea,1.99,3,2026-10-20", ErrFieldCount},
		{"food without date", "F,103,Cake,3.99,4", ErrFieldCount},
		{"unknown type", "X,101,Tea,1.99,3", ErrUnknownType},
		{"rating out of range", "D,101,Tea,1.99,9", product.ErrInvalidRatingLevel},
		{"bad id", "D,abc,Tea,1.99,3", nil},
		{"bad price", "D,101,Tea,cheap,3", nil},
		{"bad date", "F,103,Cake,3.99,4,20/10/2026", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProduct(tt.line)
			require.Error(t, err)

			var perr *ProductParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.line, perr.Line)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}

func TestParseReview(t *testing.T) {
	r, err := ParseReview("4,Nice hot cup of tea")
	require.NoError(t, err)
	assert.Equal(t, product.FourStar, r.Rating)
	assert.Equal(t, "Nice hot cup of tea", r.Comments)

	r, err = ParseReview("2,Weak, watery, and cold\n")
	require.NoError(t, err)
	assert.Equal(t, product.TwoStar, r.Rating)
	assert.Equal(t, "Weak, watery, and cold", r.Comments)

	r, err = ParseReview("5,")
	require.NoError(t, err)
	assert.Equal(t, product.FiveStar, r.Rating)
	assert.Empty(t, r.Comments)
}

func TestParseReviewErrors(t *testing.T) {
	for _, line := range []string{"", "4", "x,bad level", "8,too good"} {
		t.Run(line, func(t *testing.T) {
			_, err := ParseReview(line)
			var rerr *ReviewParseError
			require.True(t, errors.As(err, &rerr), "got %v", err)
			assert.Equal(t, line, rerr.Line)
		})
	}
}

func TestProductRoundTrip(t *testing.T) {
	products := []product.Product{
		product.NewDrink(101, "Tea", d("1.99"), product.ThreeStar),
		product.NewFood(103, "Cake", d("3.99"), product.FiveStar,
			time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC)),
	}

	for _, p := range products {
		t.Run(p.Name(), func(t *testing.T) {
			line, err := FormatProduct(p)
			require.NoError(t, err)

			got, err := ParseProduct(line)
			require.NoError(t, err)
			assert.True(t, p.Equal(got), "%s != %s", p, got)
			assert.Equal(t, p.Kind(), got.Kind())
			if p.Kind() == product.KindFood {
				assert.Equal(t, p.BestBefore(), got.BestBefore())
			}
		})
	}
}

func TestFormatProduct(t *testing.T) {
	line, err := FormatProduct(product.NewFood(103, "Cake", d("3.99"), product.FiveStar,
		time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, "F,103,Cake,3.99,5,2026-10-20", line)

	_, err = FormatProduct(product.NewDrink(1, "Salt, fine", d("1"), product.NotRated))
	require.True(t, errors.Is(err, ErrUnencodable))
}

func TestFormatReview(t *testing.T) {
	line, err := FormatReview(product.NewReview(product.TwoStar, "Rather weak, tea"))
	require.NoError(t, err)
	assert.Equal(t, "2,Rather weak, tea", line)

	got, err := ParseReview(line)
	require.NoError(t, err)
	assert.Equal(t, product.NewReview(product.TwoStar, "Rather weak, tea"), got)

	_, err = FormatReview(product.NewReview(product.OneStar, "line\nbreak"))
	require.True(t, errors.Is(err, ErrUnencodable))
}
