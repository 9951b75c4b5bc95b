package vat

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
)

// TaxConvention selects how VAT is derived from stored order totals.
type TaxConvention string

const (
	// TaxInclusive treats totals as gross amounts the buyer paid; VAT is
	// extracted out of the total. This matches storefront order totals and
	// is the default.
	TaxInclusive TaxConvention = "inclusive"
	// TaxExclusive treats totals as net amounts; VAT is added on top.
	TaxExclusive TaxConvention = "exclusive"
)

// JurisdictionAggregate is one report row: summed eligible order value and
// VAT owed for a single member state. OrderCount is diagnostic only and
// never appears in the rendered report.
type JurisdictionAggregate struct {
	CountryCode   string
	Rate          decimal.Decimal // percent
	TaxableAmount decimal.Decimal
	TaxAmount     decimal.Decimal
	OrderCount    int
}

// AggregateOptions bound and parameterize one aggregation pass.
type AggregateOptions struct {
	From        *time.Time
	To          *time.Time
	Convention  TaxConvention
	DefaultRate decimal.Decimal // applied when a member state is missing from the rate table
}

// Aggregate groups eligible orders by destination member state and computes
// the taxable and VAT amounts per jurisdiction, rounded to 2 decimal places
// half-up. Rows come back sorted by country code. The second return value
// lists member states that fell back to the default rate; a non-empty list
// means the rate table has a gap and should be treated as a data-integrity
// warning by the caller.
func Aggregate(orders []*domain.Order, opts AggregateOptions) ([]JurisdictionAggregate, []string) {
	convention := opts.Convention
	if convention == "" {
		convention = TaxInclusive
	}

	byCountry := make(map[string]*JurisdictionAggregate)
	var fallbacks []string
	for _, order := range orders {
		if !order.Eligible {
			continue
		}
		if opts.From != nil && order.RemoteCreatedAt.Before(*opts.From) {
			continue
		}
		if opts.To != nil && order.RemoteCreatedAt.After(*opts.To) {
			continue
		}
		code := normalizeCode(order.DestinationCountry)
		agg, ok := byCountry[code]
		if !ok {
			rate, found := StandardRate(code)
			if !found {
				rate = opts.DefaultRate
				fallbacks = append(fallbacks, code)
			}
			agg = &JurisdictionAggregate{CountryCode: code, Rate: rate}
			byCountry[code] = agg
		}
		agg.TaxableAmount = agg.TaxableAmount.Add(order.TotalPrice)
		agg.OrderCount++
	}

	rows := make([]JurisdictionAggregate, 0, len(byCountry))
	for _, agg := range byCountry {
		agg.TaxAmount = vatAmount(agg.TaxableAmount, agg.Rate, convention).Round(2)
		agg.TaxableAmount = agg.TaxableAmount.Round(2)
		rows = append(rows, *agg)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CountryCode < rows[j].CountryCode })
	return rows, fallbacks
}

func vatAmount(amount, rate decimal.Decimal, convention TaxConvention) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if convention == TaxExclusive {
		return amount.Mul(rate).Div(hundred)
	}
	divisor := decimal.NewFromInt(1).Add(rate.Div(hundred))
	return amount.Sub(amount.Div(divisor))
}
