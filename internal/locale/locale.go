// Package locale renders products, reviews and money for a given language
// tag. Templates, date layouts and UI texts come from an embedded resource
// bundle; numbers and currency symbols come from golang.org/x/text.
package locale

import (
	_ "embed"
	"maps"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"gopkg.in/yaml.v3"

	"github.com/xenking/pm-catalog/internal/domain/product"
)

// Text keys understood by Formatter.Text.
const (
	TextNoReviews = "no.reviews"
)

// ErrUnsupported is returned for a locale tag missing from the bundle.
var ErrUnsupported = errors.New("unsupported locale")

//go:embed resources.yaml
var bundleYAML []byte

type resources struct {
	Date    string            `yaml:"date"`
	Money   string            `yaml:"money"`
	Product string            `yaml:"product"`
	Review  string            `yaml:"review"`
	Texts   map[string]string `yaml:"texts"`
}

func loadBundle() (map[string]resources, error) {
	var bundle map[string]resources
	if err := yaml.Unmarshal(bundleYAML, &bundle); err != nil {
		return nil, errors.Wrap(err, "parse locale bundle")
	}
	return bundle, nil
}

// Formatter renders catalog values for a single locale.
type Formatter struct {
	tag     string
	printer *message.Printer
	unit    currency.Unit
	res     resources
}

const defaultMoney = "%[1]s%[2]s"

func newFormatter(tag string, res resources) (*Formatter, error) {
	if res.Money == "" {
		res.Money = defaultMoney
	}
	lt, err := language.Parse(tag)
	if err != nil {
		return nil, errors.Wrapf(err, "parse tag %q", tag)
	}
	unit, _ := currency.FromTag(lt)
	return &Formatter{
		tag:     tag,
		printer: message.NewPrinter(lt),
		unit:    unit,
		res:     res,
	}, nil
}

// Tag returns the language tag of the formatter.
func (f *Formatter) Tag() string { return f.tag }

// FormatMoney renders an amount with two fraction digits, placing the
// locale's currency symbol as its money template says.
func (f *Formatter) FormatMoney(v decimal.Decimal) string {
	// Rounded first so the float conversion only affects display.
	amount := v.Round(2).InexactFloat64()
	symbol := f.printer.Sprintf("%v", currency.Symbol(f.unit))
	digits := f.printer.Sprintf("%v", number.Decimal(amount, number.Scale(2)))
	return f.printer.Sprintf(f.res.Money, symbol, digits)
}

// FormatDate renders t in the locale's short date style.
func (f *Formatter) FormatDate(t time.Time) string {
	return t.Format(f.res.Date)
}

// FormatProduct renders the product line of a report.
func (f *Formatter) FormatProduct(p product.Product) string {
	return f.printer.Sprintf(f.res.Product,
		p.Name(),
		f.FormatMoney(p.Price()),
		p.Rating().Stars(),
		f.FormatDate(p.BestBefore()),
	)
}

// FormatReview renders a review line of a report.
func (f *Formatter) FormatReview(r product.Review) string {
	return f.printer.Sprintf(f.res.Review, r.Rating.Stars(), r.Comments)
}

// Text returns the named UI text, or the key itself when it is unknown.
func (f *Formatter) Text(key string) string {
	if s, ok := f.res.Texts[key]; ok {
		return s
	}
	return key
}

// Registry holds one Formatter per supported locale and resolves unknown
// tags to a fallback locale.
type Registry struct {
	formatters map[string]*Formatter
	fallback   *Formatter
}

// DefaultTags lists every locale shipped in the resource bundle.
var DefaultTags = []string{"en-US", "en-GB", "es-US", "fr-FR", "fr-CA", "ru-RU", "zh-CN", "nl-NL"}

// DefaultFallback is the locale used for tags that are not supported.
const DefaultFallback = "en-GB"

// NewRegistry builds formatters for tags. The fallback must be one of them.
func NewRegistry(fallback string, tags ...string) (*Registry, error) {
	bundle, err := loadBundle()
	if err != nil {
		return nil, err
	}

	r := &Registry{formatters: make(map[string]*Formatter, len(tags))}
	for _, tag := range tags {
		res, ok := bundle[tag]
		if !ok {
			return nil, errors.Wrapf(ErrUnsupported, "%q", tag)
		}
		f, err := newFormatter(tag, res)
		if err != nil {
			return nil, err
		}
		r.formatters[tag] = f
	}

	fb, ok := r.formatters[fallback]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "fallback %q is not registered", fallback)
	}
	r.fallback = fb
	return r, nil
}

// NewDefaultRegistry returns a registry of DefaultTags falling back to
// DefaultFallback.
func NewDefaultRegistry() (*Registry, error) {
	return NewRegistry(DefaultFallback, DefaultTags...)
}

// Lookup returns the formatter for tag, or the fallback formatter.
func (r *Registry) Lookup(tag string) *Formatter {
	if f, ok := r.formatters[tag]; ok {
		return f
	}
	return r.fallback
}

// Supported returns the registered tags, sorted.
func (r *Registry) Supported() []string {
	return slices.Sorted(maps.Keys(r.formatters))
}
