package product

import (
	"strings"

	"github.com/go-faster/errors"
)

// ErrInvalidRatingLevel is returned when a numeric level has no matching Rating.
var ErrInvalidRatingLevel = errors.New("invalid rating level")

// Rating is the ordered star rating of a product or review.
type Rating int

const (
	NotRated Rating = iota
	OneStar
	TwoStar
	ThreeStar
	FourStar
	FiveStar
)

// MaxLevel is the numeric level of FiveStar.
const MaxLevel = int(FiveStar)

const (
	fullStar  = "★"
	emptyStar = "☆"
)

// FromLevel returns the Rating whose level equals n.
func FromLevel(n int) (Rating, error) {
	if n < 0 || n > MaxLevel {
		return NotRated, errors.Wrapf(ErrInvalidRatingLevel, "level %d", n)
	}
	return Rating(n), nil
}

// MustFromLevel is like FromLevel but panics on an invalid level.
func MustFromLevel(n int) Rating {
	r, err := FromLevel(n)
	if err != nil {
		panic(err)
	}
	return r
}

// Level returns the numeric level, 0 for NotRated up to 5 for FiveStar.
func (r Rating) Level() int {
	return int(r)
}

// Stars returns the display label: one filled star per level, padded with
// empty stars to five glyphs.
func (r Rating) Stars() string {
	return strings.Repeat(fullStar, r.Level()) + strings.Repeat(emptyStar, MaxLevel-r.Level())
}

// String implements fmt.Stringer.
func (r Rating) String() string {
	switch r {
	case NotRated:
		return "NOT_RATED"
	case OneStar:
		return "ONE_STAR"
	case TwoStar:
		return "TWO_STAR"
	case ThreeStar:
		return "THREE_STAR"
	case FourStar:
		return "FOUR_STAR"
	case FiveStar:
		return "FIVE_STAR"
	default:
		return "INVALID"
	}
}

// Average returns the rating nearest to the arithmetic mean of the given
// levels, rounding halves up. An empty input yields NotRated.
func Average(ratings []Rating) Rating {
	if len(ratings) == 0 {
		return NotRated
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Level()
	}
	n := len(ratings)
	// round(sum/n) with halves up, in integers: floor((2*sum + n) / 2n).
	return Rating((2*sum + n) / (2 * n))
}
