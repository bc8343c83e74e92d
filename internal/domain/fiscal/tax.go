package fiscal

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// RateCategory is the authority's identifier for a VAT rate band
type RateCategory int

const (
	RateCategoryZero     RateCategory = 3 // 0%
	RateCategoryReduced  RateCategory = 4 // 10.5%
	RateCategoryGeneral  RateCategory = 5 // 21%
	RateCategoryIncrease RateCategory = 6 // 27%
)

var (
	hundred = decimal.NewFromInt(100)

	rateCategories = map[string]RateCategory{
		"0":    RateCategoryZero,
		"10.5": RateCategoryReduced,
		"21":   RateCategoryGeneral,
		"27":   RateCategoryIncrease,
	}
)

// DefaultTaxRate applies to products with no explicit rate
var DefaultTaxRate = decimal.NewFromInt(21)

// CategoryForRate maps a percentage rate to the authority's category id
func CategoryForRate(rate decimal.Decimal) (RateCategory, error) {
	// String trims trailing zeros, so 21, 21.0 and 21.0000 share a key
	category, ok := rateCategories[rate.String()]
	if !ok {
		return 0, fmt.Errorf("unsupported tax rate %s%%", rate.String())
	}
	return category, nil
}

// TaxableLine is one priced item: gross already includes VAT at Rate percent
type TaxableLine struct {
	Gross decimal.Decimal
	Rate  decimal.Decimal
}

// RateLine is the aggregated breakdown for one rate category.
// Base, Tax and Gross are kept at full precision.
type RateLine struct {
	Category RateCategory
	Rate     decimal.Decimal
	Base     decimal.Decimal
	Tax      decimal.Decimal
	Gross    decimal.Decimal
}

// Breakdown is the VAT decomposition of a sale at full precision
type Breakdown struct {
	Lines []RateLine
}

// ComputeBreakdown splits each gross amount into net and tax
// (net = gross / (1 + r/100), tax = gross - net) and sums per rate category.
// No rounding happens here.
func ComputeBreakdown(lines []TaxableLine) (*Breakdown, error) {
	byCategory := make(map[RateCategory]*RateLine)
	for _, l := range lines {
		if l.Gross.IsNegative() {
			return nil, fmt.Errorf("negative gross amount %s", l.Gross.String())
		}
		category, err := CategoryForRate(l.Rate)
		if err != nil {
			return nil, err
		}

		divisor := decimal.NewFromInt(1).Add(l.Rate.Div(hundred))
		net := l.Gross.Div(divisor)
		tax := l.Gross.Sub(net)

		rl, ok := byCategory[category]
		if !ok {
			rl = &RateLine{Category: category, Rate: l.Rate}
			byCategory[category] = rl
		}
		rl.Base = rl.Base.Add(net)
		rl.Tax = rl.Tax.Add(tax)
		rl.Gross = rl.Gross.Add(l.Gross)
	}

	b := &Breakdown{Lines: make([]RateLine, 0, len(byCategory))}
	for _, rl := range byCategory {
		b.Lines = append(b.Lines, *rl)
	}
	sort.Slice(b.Lines, func(i, j int) bool { return b.Lines[i].Category < b.Lines[j].Category })
	return b, nil
}

// Totals are the 2-decimal figures reported to the authority
type Totals struct {
	Net   decimal.Decimal
	Tax   decimal.Decimal
	Total decimal.Decimal
	Lines []RateLine
}

// Rounded produces the output figures. Each category's gross and tax are
// rounded to cents and the base is derived as their difference, so that
// base + tax equals the rounded gross on every line and in the header.
func (b *Breakdown) Rounded() Totals {
	t := Totals{
		Net:   decimal.Zero,
		Tax:   decimal.Zero,
		Total: decimal.Zero,
		Lines: make([]RateLine, 0, len(b.Lines)),
	}
	for _, l := range b.Lines {
		gross := l.Gross.Round(2)
		tax := l.Tax.Round(2)
		base := gross.Sub(tax)
		t.Lines = append(t.Lines, RateLine{
			Category: l.Category,
			Rate:     l.Rate,
			Base:     base,
			Tax:      tax,
			Gross:    gross,
		})
		t.Net = t.Net.Add(base)
		t.Tax = t.Tax.Add(tax)
		t.Total = t.Total.Add(gross)
	}
	return t
}
