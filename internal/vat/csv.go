package vat

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// csvHeader is the column layout the regulator template expects; order and
// spelling are load-bearing.
var csvHeader = []string{"Member State", "VAT Rate", "Taxable Amount (EUR)", "VAT Amount (EUR)"}

// RenderCSV serializes aggregates into the regulator CSV layout: one header
// row, one row per jurisdiction, LF line endings. Rows keep the order they
// were given; Aggregate already sorts by country code.
func RenderCSV(aggregates []JurisdictionAggregate) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("failed to write report header: %w", err)
	}
	for _, row := range aggregates {
		record := []string{
			row.CountryCode,
			FormatRate(row.Rate),
			row.TaxableAmount.StringFixed(2),
			row.TaxAmount.StringFixed(2),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write report row for %s: %w", row.CountryCode, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush report: %w", err)
	}
	return buf.String(), nil
}

// FormatRate renders a percent rate as "19%" or "25.5%", trimming
// insignificant trailing zeros.
func FormatRate(rate decimal.Decimal) string {
	s := rate.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return s + "%"
}
