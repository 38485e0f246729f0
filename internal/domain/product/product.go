package product

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// DateLayout is the ISO-8601 calendar date layout used for best-before dates.
const DateLayout = time.DateOnly

// Kind distinguishes the product variants.
type Kind uint8

const (
	// KindDrink is a non-perishable product with a flat discount.
	KindDrink Kind = iota
	// KindFood is a perishable product with a best-before date and a
	// time-window discount.
	KindFood
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindDrink:
		return "drink"
	case KindFood:
		return "food"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Product is an immutable catalog item. The zero value is a drink with no
// name and a zero price.
//
// Use ApplyRating to obtain a re-rated copy; a Product is never mutated.
type Product struct {
	kind       Kind
	id         int
	name       string
	price      decimal.Decimal
	rating     Rating
	bestBefore time.Time
}

// NewDrink returns a drink product.
func NewDrink(id int, name string, price decimal.Decimal, rating Rating) Product {
	return Product{
		kind:   KindDrink,
		id:     id,
		name:   name,
		price:  price,
		rating: rating,
	}
}

// NewFood returns a food product expiring on the calendar day of bestBefore.
func NewFood(id int, name string, price decimal.Decimal, rating Rating, bestBefore time.Time) Product {
	return Product{
		kind:       KindFood,
		id:         id,
		name:       name,
		price:      price,
		rating:     rating,
		bestBefore: dateOf(bestBefore),
	}
}

func (p Product) Kind() Kind             { return p.kind }
func (p Product) ID() int                { return p.id }
func (p Product) Name() string           { return p.name }
func (p Product) Price() decimal.Decimal { return p.price }
func (p Product) Rating() Rating         { return p.rating }

// Discount returns the discount applicable right now. Food discounts depend
// on the wall clock, so two calls may disagree.
func (p Product) Discount() decimal.Decimal {
	return p.DiscountAt(time.Now())
}

// DiscountAt returns the discount applicable at the given instant.
func (p Product) DiscountAt(now time.Time) decimal.Decimal {
	switch p.kind {
	case KindFood:
		return happyHourDiscount(p.price, now)
	default:
		return flatDiscount(p.price)
	}
}

// BestBefore returns the expiry date. Drinks have no real expiry and report
// today's date.
func (p Product) BestBefore() time.Time {
	return p.BestBeforeAt(time.Now())
}

// BestBeforeAt is BestBefore evaluated against the given current time.
func (p Product) BestBeforeAt(now time.Time) time.Time {
	if p.kind == KindFood {
		return p.bestBefore
	}
	return dateOf(now)
}

// ApplyRating returns a copy of p carrying the given rating.
func (p Product) ApplyRating(r Rating) Product {
	out := p
	out.rating = r
	return out
}

// Equal reports whether p and o share id, name, price and rating.
// The variant and best-before date do not take part.
func (p Product) Equal(o Product) bool {
	return p.id == o.id &&
		p.name == o.name &&
		p.price.Equal(o.price) &&
		p.rating == o.rating
}

// String implements fmt.Stringer.
func (p Product) String() string {
	return p.describe(time.Now())
}

func (p Product) describe(now time.Time) string {
	return fmt.Sprintf("id=%d, name='%s', price=%s, discount=%s, rating=%s, bestBefore=%s",
		p.id, p.name, p.price.String(), p.DiscountAt(now).StringFixed(2),
		p.rating.Stars(), p.BestBeforeAt(now).Format(DateLayout))
}

// dateOf truncates t to its calendar date in its own location, expressed
// in UTC so that equal dates compare equal.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
