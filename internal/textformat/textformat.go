// Package textformat implements the line-oriented text format used to
// persist catalog products and their reviews.
//
// A product line is
//
//	type,id,name,price,ratingLevel[,bestBefore]
//
// where type is "D" (drink) or "F" (food); food lines carry an ISO-8601
// best-before date. A review line is
//
//	ratingLevel,comments
//
// where comments is the remainder of the line and may itself contain commas.
package textformat

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pm-catalog/internal/domain/product"
)

const (
	delimiter = ","

	tagDrink = "D"
	tagFood  = "F"
)

var (
	// ErrFieldCount is returned when a line has the wrong number of fields.
	ErrFieldCount = errors.New("wrong number of fields")
	// ErrUnknownType is returned for a product type tag other than D or F.
	ErrUnknownType = errors.New("unknown product type")
	// ErrUnencodable is returned when a value cannot be written without
	// breaking the line structure.
	ErrUnencodable = errors.New("value cannot be encoded")
)

// ProductParseError describes a product line that could not be parsed.
type ProductParseError struct {
	Line string
	Err  error
}

func (e *ProductParseError) Error() string {
	return fmt.Sprintf("parse product %q: %v", e.Line, e.Err)
}

func (e *ProductParseError) Unwrap() error { return e.Err }

// ReviewParseError describes a review line that could not be parsed.
type ReviewParseError struct {
	Line string
	Err  error
}

func (e *ReviewParseError) Error() string {
	return fmt.Sprintf("parse review %q: %v", e.Line, e.Err)
}

func (e *ReviewParseError) Unwrap() error { return e.Err }

// ParseProduct parses a single product line.
func ParseProduct(line string) (product.Product, error) {
	p, err := parseProduct(strings.TrimRight(line, "\r\n"))
	if err != nil {
		return product.Product{}, &ProductParseError{Line: line, Err: err}
	}
	return p, nil
}

func parseProduct(line string) (product.Product, error) {
	fields := strings.Split(line, delimiter)
	if len(fields) < 5 {
		return product.Product{}, errors.Wrapf(ErrFieldCount, "got %d", len(fields))
	}

	tag := strings.TrimSpace(fields[0])
	id, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return product.Product{}, errors.Wrap(err, "id")
	}
	name := fields[2]
	price, err := decimal.NewFromString(strings.TrimSpace(fields[3]))
	if err != nil {
		return product.Product{}, errors.Wrap(err, "price")
	}
	rating, err := parseRating(fields[4])
	if err != nil {
		return product.Product{}, err
	}

	switch tag {
	case tagDrink:
		if len(fields) != 5 {
			return product.Product{}, errors.Wrapf(ErrFieldCount, "drink has %d", len(fields))
		}
		return product.NewDrink(id, name, price, rating), nil
	case tagFood:
		if len(fields) != 6 {
			return product.Product{}, errors.Wrapf(ErrFieldCount, "food has %d", len(fields))
		}
		bestBefore, err := time.Parse(product.DateLayout, strings.TrimSpace(fields[5]))
		if err != nil {
			return product.Product{}, errors.Wrap(err, "best before")
		}
		return product.NewFood(id, name, price, rating, bestBefore), nil
	default:
		return product.Product{}, errors.Wrapf(ErrUnknownType, "%q", tag)
	}
}

// ParseReview parses a single review line.
func ParseReview(line string) (product.Review, error) {
	level, comments, ok := strings.Cut(strings.TrimRight(line, "\r\n"), delimiter)
	if !ok {
		return product.Review{}, &ReviewParseError{Line: line, Err: errors.Wrap(ErrFieldCount, "got 1")}
	}
	rating, err := parseRating(level)
	if err != nil {
		return product.Review{}, &ReviewParseError{Line: line, Err: err}
	}
	return product.NewReview(rating, comments), nil
}

func parseRating(field string) (product.Rating, error) {
	n, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return product.NotRated, errors.Wrap(err, "rating")
	}
	return product.FromLevel(n)
}

// FormatProduct renders p as a product line.
func FormatProduct(p product.Product) (string, error) {
	if strings.Contains(p.Name(), delimiter) || hasLineBreak(p.Name()) {
		return "", errors.Wrapf(ErrUnencodable, "product %d name %q", p.ID(), p.Name())
	}

	fields := []string{
		"",
		strconv.Itoa(p.ID()),
		p.Name(),
		p.Price().String(),
		strconv.Itoa(p.Rating().Level()),
	}
	switch p.Kind() {
	case product.KindFood:
		fields[0] = tagFood
		fields = append(fields, p.BestBefore().Format(product.DateLayout))
	default:
		fields[0] = tagDrink
	}
	return strings.Join(fields, delimiter), nil
}

// FormatReview renders r as a review line.
func FormatReview(r product.Review) (string, error) {
	if hasLineBreak(r.Comments) {
		return "", errors.Wrapf(ErrUnencodable, "review comments %q", r.Comments)
	}
	return strconv.Itoa(r.Rating.Level()) + delimiter + r.Comments, nil
}

func hasLineBreak(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}
