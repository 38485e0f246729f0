package product

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func at(hour, minute, sec int) time.Time {
	return time.Date(2026, time.October, 15, hour, minute, sec, 0, time.Local)
}

func TestDiscountAt(t *testing.T) {
	bestBefore := time.Date(2026, time.October, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		product Product
		now     time.Time
		want    decimal.Decimal
	}{
		{
			name:    "drink rounds half up",
			product: NewDrink(101, "Tea", d("1.99"), ThreeStar),
			now:     at(9, 0, 0),
			want:    d("0.20"),
		},
		{
			name:    "drink ignores clock",
			product: NewDrink(102, "Coffee", d("2.50"), FourStar),
			now:     at(17, 0, 0),
			want:    d("0.25"),
		},
		{
			name:    "zero value product uses flat rule",
			product: Product{},
			now:     at(9, 0, 0),
			want:    d("0"),
		},
		{
			name:    "food outside window",
			product: NewFood(103, "Cake", d("3.99"), FiveStar, bestBefore),
			now:     at(12, 0, 0),
			want:    d("0"),
		},
		{
			name:    "food inside window",
			product: NewFood(103, "Cake", d("3.99"), FiveStar, bestBefore),
			now:     at(17, 0, 0),
			want:    d("0.40"),
		},
		{
			name:    "food at window start is excluded",
			product: NewFood(103, "Cake", d("3.99"), FiveStar, bestBefore),
			now:     at(16, 30, 0),
			want:    d("0"),
		},
		{
			name:    "food one second into window",
			product: NewFood(103, "Cake", d("3.99"), FiveStar, bestBefore),
			now:     at(16, 30, 1),
			want:    d("0.40"),
		},
		{
			name:    "food at window end is excluded",
			product: NewFood(103, "Cake", d("3.99"), FiveStar, bestBefore),
			now:     at(17, 30, 0),
			want:    d("0"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.product.DiscountAt(tt.now)
			assert.True(t, tt.want.Equal(got), "expected %s, got %s", tt.want, got)
		})
	}
}

func TestFoodDiscountMatchesDrinkInsideWindow(t *testing.T) {
	price := d("7.45")
	drink := NewDrink(1, "Juice", price, NotRated)
	food := NewFood(2, "Pie", price, NotRated, at(0, 0, 0))

	now := at(17, 15, 0)
	assert.True(t, drink.DiscountAt(now).Equal(food.DiscountAt(now)))
	assert.True(t, d("0.75").Equal(food.DiscountAt(now)))
}

func TestApplyRating(t *testing.T) {
	bestBefore := time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC)
	products := []Product{
		NewDrink(101, "Tea", d("1.99"), ThreeStar),
		NewFood(103, "Cake", d("3.99"), NotRated, bestBefore),
	}

	for _, p := range products {
		t.Run(p.Kind().String(), func(t *testing.T) {
			got := p.ApplyRating(FiveStar)

			assert.Equal(t, p.ID(), got.ID())
			assert.Equal(t, p.Name(), got.Name())
			assert.True(t, p.Price().Equal(got.Price()))
			assert.Equal(t, p.Kind(), got.Kind())
			assert.Equal(t, FiveStar, got.Rating())

			now := at(10, 0, 0)
			assert.Equal(t, p.BestBeforeAt(now), got.BestBeforeAt(now))

			// Receiver is untouched.
			assert.NotEqual(t, FiveStar, p.Rating())
		})
	}
}

func TestBestBefore(t *testing.T) {
	now := time.Date(2026, time.October, 15, 18, 45, 0, 0, time.UTC)

	drink := NewDrink(1, "Tea", d("1"), NotRated)
	assert.Equal(t, time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC), drink.BestBeforeAt(now))

	expiry := time.Date(2026, time.October, 17, 13, 0, 0, 0, time.UTC)
	food := NewFood(2, "Cookie", d("1"), NotRated, expiry)
	assert.Equal(t, time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC), food.BestBeforeAt(now))
}

func TestEqual(t *testing.T) {
	base := NewDrink(104, "Chocolate", d("2.99"), FourStar)

	tests := []struct {
		name  string
		other Product
		want  bool
	}{
		{"identical", NewDrink(104, "Chocolate", d("2.99"), FourStar), true},
		{"same price different scale", NewDrink(104, "Chocolate", d("2.990"), FourStar), true},
		{"other variant same identity", NewFood(104, "Chocolate", d("2.99"), FourStar, at(0, 0, 0)), true},
		{"different id", NewDrink(105, "Chocolate", d("2.99"), FourStar), false},
		{"different name", NewDrink(104, "Cocoa", d("2.99"), FourStar), false},
		{"different price", NewDrink(104, "Chocolate", d("3.49"), FourStar), false},
		{"different rating", NewDrink(104, "Chocolate", d("2.99"), TwoStar), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Equal(tt.other))
			assert.Equal(t, tt.want, tt.other.Equal(base))
		})
	}
}

func TestDescribe(t *testing.T) {
	p := NewFood(103, "Cake", d("3.99"), FiveStar, time.Date(2026, time.October, 17, 0, 0, 0, 0, time.UTC))

	got := p.describe(at(9, 0, 0))
	require.Equal(t, "id=103, name='Cake', price=3.99, discount=0.00, rating=★★★★★, bestBefore=2026-10-17", got)
}
