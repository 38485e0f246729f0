// Package snapshot encodes the whole catalog as a single compressed blob.
//
// The blob is gzip-compressed JSON:
//
//	{"version":1,"products":[{"type":"F","id":103,"name":"Cake","price":"3.99",
//	  "rating":4,"best_before":"2026-10-20","reviews":[{"rating":4,"comments":"Tasty"}]}]}
package snapshot

import (
	"io"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/xenking/pm-catalog/internal/domain/product"
)

// Version is the snapshot format version written by Encode.
const Version = 1

// ErrVersion is returned when decoding a snapshot of an unknown version.
var ErrVersion = errors.New("unsupported snapshot version")

// Entry is a product together with its reviews.
type Entry struct {
	Product product.Product
	Reviews []product.Review
}

// Encode writes entries to w as a compressed snapshot.
func Encode(w io.Writer, entries []Entry) error {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.Obj(func(e *jx.Encoder) {
		e.Field("version", func(e *jx.Encoder) { e.Int(Version) })
		e.Field("products", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, entry := range entries {
					encodeEntry(e, entry)
				}
			})
		})
	})

	gz := pgzip.NewWriter(w)
	if _, err := gz.Write(e.Bytes()); err != nil {
		_ = gz.Close()
		return errors.Wrap(err, "write snapshot")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "flush snapshot")
	}
	return nil
}

func encodeEntry(e *jx.Encoder, entry Entry) {
	p := entry.Product
	e.Obj(func(e *jx.Encoder) {
		e.Field("type", func(e *jx.Encoder) {
			if p.Kind() == product.KindFood {
				e.Str("F")
			} else {
				e.Str("D")
			}
		})
		e.Field("id", func(e *jx.Encoder) { e.Int(p.ID()) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name()) })
		e.Field("price", func(e *jx.Encoder) { e.Str(p.Price().String()) })
		e.Field("rating", func(e *jx.Encoder) { e.Int(p.Rating().Level()) })
		if p.Kind() == product.KindFood {
			e.Field("best_before", func(e *jx.Encoder) {
				e.Str(p.BestBefore().Format(product.DateLayout))
			})
		}
		e.Field("reviews", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, r := range entry.Reviews {
					e.Obj(func(e *jx.Encoder) {
						e.Field("rating", func(e *jx.Encoder) { e.Int(r.Rating.Level()) })
						e.Field("comments", func(e *jx.Encoder) { e.Str(r.Comments) })
					})
				}
			})
		})
	})
}

// Decode reads a compressed snapshot from r.
func Decode(r io.Reader) ([]Entry, error) {
	gz, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open snapshot")
	}
	defer func() { _ = gz.Close() }()

	var (
		entries []Entry
		version int
	)
	d := jx.Decode(gz, 4096)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "version":
			v, err := d.Int()
			if err != nil {
				return errors.Wrap(err, "version")
			}
			if v != Version {
				return errors.Wrapf(ErrVersion, "%d", v)
			}
			version = v
			return nil
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				entry, err := decodeEntry(d)
				if err != nil {
					return errors.Wrapf(err, "product %d", len(entries))
				}
				entries = append(entries, entry)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	if version == 0 {
		return nil, errors.Wrap(ErrVersion, "missing version")
	}
	return entries, nil
}

type rawProduct struct {
	tag        string
	id         int
	name       string
	price      decimal.Decimal
	rating     product.Rating
	bestBefore time.Time
}

func decodeEntry(d *jx.Decoder) (Entry, error) {
	var (
		raw     rawProduct
		reviews []product.Review
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "type":
			raw.tag, err = d.Str()
		case "id":
			raw.id, err = d.Int()
		case "name":
			raw.name, err = d.Str()
		case "price":
			var s string
			if s, err = d.Str(); err == nil {
				raw.price, err = decimal.NewFromString(s)
			}
		case "rating":
			raw.rating, err = decodeRating(d)
		case "best_before":
			var s string
			if s, err = d.Str(); err == nil {
				raw.bestBefore, err = time.Parse(product.DateLayout, s)
			}
		case "reviews":
			err = d.Arr(func(d *jx.Decoder) error {
				r, err := decodeReview(d)
				if err != nil {
					return err
				}
				reviews = append(reviews, r)
				return nil
			})
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	}); err != nil {
		return Entry{}, err
	}

	var p product.Product
	switch raw.tag {
	case "D":
		p = product.NewDrink(raw.id, raw.name, raw.price, raw.rating)
	case "F":
		if raw.bestBefore.IsZero() {
			return Entry{}, errors.Errorf("food %d has no best_before", raw.id)
		}
		p = product.NewFood(raw.id, raw.name, raw.price, raw.rating, raw.bestBefore)
	default:
		return Entry{}, errors.Errorf("unknown product type %q", raw.tag)
	}
	if reviews == nil {
		reviews = []product.Review{}
	}
	return Entry{Product: p, Reviews: reviews}, nil
}

func decodeReview(d *jx.Decoder) (product.Review, error) {
	var r product.Review
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "rating":
			r.Rating, err = decodeRating(d)
		case "comments":
			r.Comments, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	})
	return r, err
}

func decodeRating(d *jx.Decoder) (product.Rating, error) {
	n, err := d.Int()
	if err != nil {
		return product.NotRated, err
	}
	return product.FromLevel(n)
}
