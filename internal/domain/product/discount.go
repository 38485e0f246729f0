package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountRate is the fraction of the price taken off by every discount rule.
var DiscountRate = decimal.RequireFromString("0.1")

// The food discount window, as offsets from local midnight. Both bounds are
// exclusive.
const (
	happyHourStart = 16*time.Hour + 30*time.Minute
	happyHourEnd   = 17*time.Hour + 30*time.Minute
)

// flatDiscount returns price * DiscountRate rounded half-up to cents.
func flatDiscount(price decimal.Decimal) decimal.Decimal {
	return price.Mul(DiscountRate).Round(2)
}

// happyHourDiscount applies the flat discount only while now falls strictly
// inside the daily window, and returns zero otherwise.
func happyHourDiscount(price decimal.Decimal, now time.Time) decimal.Decimal {
	if !InHappyHour(now) {
		return decimal.Zero
	}
	return flatDiscount(price)
}

// InHappyHour reports whether the local time of day of t lies strictly
// between 16:30 and 17:30.
func InHappyHour(t time.Time) bool {
	tod := sinceMidnight(t)
	return tod > happyHourStart && tod < happyHourEnd
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond())
}
