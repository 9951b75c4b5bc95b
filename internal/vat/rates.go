// Package vat holds the pure compliance rules: the member state rate table,
// the consignment classifier and the per-jurisdiction aggregation that feeds
// VAT return reports. Nothing in here does I/O.
package vat

import (
	"strings"

	"github.com/shopspring/decimal"
)

// memberStates is the set of jurisdictions participating in the reporting
// scheme, keyed by ISO 3166-1 alpha-2 code. It answers both directions:
// qualifying destination and non-qualifying origin.
var memberStates = map[string]struct{}{
	"AT": {}, "BE": {}, "BG": {}, "HR": {}, "CY": {}, "CZ": {}, "DK": {},
	"EE": {}, "FI": {}, "FR": {}, "DE": {}, "GR": {}, "HU": {}, "IE": {},
	"IT": {}, "LV": {}, "LT": {}, "LU": {}, "MT": {}, "NL": {}, "PL": {},
	"PT": {}, "RO": {}, "SK": {}, "SI": {}, "ES": {}, "SE": {},
}

// standardRates maps member state codes to the standard VAT rate in percent.
// Maintained by hand; rates move rarely and a release accompanies each
// change.
var standardRates = map[string]decimal.Decimal{
	"AT": decimal.NewFromInt(20),
	"BE": decimal.NewFromInt(21),
	"BG": decimal.NewFromInt(20),
	"HR": decimal.NewFromInt(25),
	"CY": decimal.NewFromInt(19),
	"CZ": decimal.NewFromInt(21),
	"DK": decimal.NewFromInt(25),
	"EE": decimal.NewFromInt(22),
	"FI": decimal.NewFromFloat(25.5),
	"FR": decimal.NewFromInt(20),
	"DE": decimal.NewFromInt(19),
	"GR": decimal.NewFromInt(24),
	"HU": decimal.NewFromInt(27),
	"IE": decimal.NewFromInt(23),
	"IT": decimal.NewFromInt(22),
	"LV": decimal.NewFromInt(21),
	"LT": decimal.NewFromInt(21),
	"LU": decimal.NewFromInt(17),
	"MT": decimal.NewFromInt(18),
	"NL": decimal.NewFromInt(21),
	"PL": decimal.NewFromInt(23),
	"PT": decimal.NewFromInt(23),
	"RO": decimal.NewFromInt(19),
	"SK": decimal.NewFromInt(23),
	"SI": decimal.NewFromInt(22),
	"ES": decimal.NewFromInt(21),
	"SE": decimal.NewFromInt(25),
}

// IsMember reports whether the country code belongs to the bloc. Codes are
// matched case-insensitively; unknown and empty codes are not members.
func IsMember(code string) bool {
	_, ok := memberStates[normalizeCode(code)]
	return ok
}

// StandardRate returns the standard VAT rate in percent for a member state.
// The second return value is false when the code is missing from the table.
func StandardRate(code string) (decimal.Decimal, bool) {
	rate, ok := standardRates[normalizeCode(code)]
	return rate, ok
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
