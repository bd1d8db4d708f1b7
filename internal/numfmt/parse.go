// Package numfmt parses and renders the decimal strings stored in the sales
// tables. Values are kept as exact decimals; precision is always taken from
// the text the user typed, never from the arithmetic result.
package numfmt

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	trailingDecimals = regexp.MustCompile(`\.(\d+)$`)
	nonNumeric       = regexp.MustCompile(`[^0-9.\-]+`)
	whitespace       = regexp.MustCompile(`\s+`)
)

// Number is the result of Parse.
type Number struct {
	Value     decimal.Decimal
	Precision int
	// Ambiguous is set when the separator convention had to be guessed
	// (a comma with no dot).
	Ambiguous bool
	// Valid is false when the normalized text was not a number and Value
	// fell back to zero.
	Valid bool
}

// Parse reads a numeric string that may use either "." or "," as thousands
// or decimal separator.
//
// When both separators occur, the one appearing last is the decimal point.
// A lone comma is a decimal point only if at most two digits follow it.
// Anything that does not parse yields zero.
func Parse(raw string) Number {
	v := whitespace.ReplaceAllString(raw, "")
	if v == "" {
		return Number{Value: decimal.Zero, Valid: true}
	}

	hasDot := strings.Contains(v, ".")
	hasComma := strings.Contains(v, ",")
	normalized := v
	ambiguous := false

	switch {
	case hasDot && hasComma:
		if strings.LastIndex(v, ",") > strings.LastIndex(v, ".") {
			normalized = strings.ReplaceAll(strings.ReplaceAll(v, ".", ""), ",", ".")
		} else {
			normalized = strings.ReplaceAll(v, ",", "")
		}
	case hasComma:
		ambiguous = true
		parts := strings.Split(v, ",")
		if len(parts) == 2 && utf8.RuneCountInString(parts[1]) <= 2 {
			normalized = strings.ReplaceAll(v, ",", ".")
		} else {
			normalized = strings.ReplaceAll(v, ",", "")
		}
	}

	cleaned := nonNumeric.ReplaceAllString(normalized, "")
	value, ok := parseDecimal(cleaned)
	return Number{
		Value:     value,
		Precision: Precision(cleaned),
		Ambiguous: ambiguous,
		Valid:     ok,
	}
}

// LooseParse drops every character that is not a digit, "." or "-" and
// parses the rest. It does no separator disambiguation, so "1,5" reads as 15.
func LooseParse(s string) decimal.Decimal {
	value, _ := parseDecimal(nonNumeric.ReplaceAllString(s, ""))
	return value
}

// Precision returns the number of digits after a trailing ".", or 0.
func Precision(s string) int {
	m := trailingDecimals.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	return len(m[1])
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
