package inventory

import "github.com/shopspring/decimal"

// Recommendation is the suggested markdown for stock close to expiry.
type Recommendation struct {
	DiscountPercent int                 `json:"discount_percent"`
	DiscountedPrice decimal.NullDecimal `json:"discounted_price"`
}

var hundred = decimal.NewFromInt(100)

// DiscountPercent maps days-left to a discount tier. Already expired stock
// falls into the steepest tier.
func DiscountPercent(daysLeft int) int {
	switch {
	case daysLeft <= 5:
		return 50
	case daysLeft <= 10:
		return 30
	default:
		return 15
	}
}

// Recommend computes the tier and the discounted price rounded to cents.
// The price is null when absent or negative.
func Recommend(daysLeft int, price decimal.NullDecimal) Recommendation {
	pct := DiscountPercent(daysLeft)
	rec := Recommendation{DiscountPercent: pct}
	if !price.Valid || price.Decimal.IsNegative() {
		return rec
	}
	factor := hundred.Sub(decimal.NewFromInt(int64(pct))).Div(hundred)
	rec.DiscountedPrice = decimal.NewNullDecimal(price.Decimal.Mul(factor).Round(2))
	return rec
}

// WithDiscount fills the discount fields of v. Views with unknown days-left
// are returned unchanged.
func WithDiscount(v MedicineView) MedicineView {
	if v.DaysLeft == nil {
		return v
	}
	rec := Recommend(*v.DaysLeft, v.Price)
	pct := rec.DiscountPercent
	v.DiscountPercent = &pct
	v.DiscountedPrice = rec.DiscountedPrice
	return v
}
