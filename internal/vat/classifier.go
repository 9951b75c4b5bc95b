package vat

import "github.com/shopspring/decimal"

// Qualifying consignment value bounds in the reporting currency, inclusive
// on both ends.
var (
	eligibleFloor   = decimal.NewFromInt(22)
	eligibleCeiling = decimal.NewFromInt(150)
)

// Classification holds the compliance flags derived for one order. Eligible
// and TaxApplicable imply InBloc by construction.
type Classification struct {
	InBloc             bool
	Eligible           bool
	TaxApplicable      bool
	RequiresDutyReview bool
}

// Classify derives the compliance flags for an order shipped to countryCode
// with the given total value. Values are in the reporting currency; any
// conversion happens before classification. A missing or unknown destination
// yields all-false flags, which keeps the order out of every report.
func Classify(countryCode string, total decimal.Decimal) Classification {
	if !IsMember(countryCode) {
		return Classification{}
	}
	return Classification{
		InBloc:             true,
		Eligible:           total.GreaterThanOrEqual(eligibleFloor) && total.LessThanOrEqual(eligibleCeiling),
		TaxApplicable:      total.GreaterThan(decimal.Zero),
		RequiresDutyReview: total.GreaterThan(eligibleCeiling),
	}
}
