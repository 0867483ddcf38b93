// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings
// and converting between decimal amounts and integer cents.
package core

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest amount a transaction may carry, the range of a
// NUMERIC(12,2) column.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// ErrCentsOverflow is returned by ToCents for amounts outside int64 cents.
var ErrCentsOverflow = errors.New("amount out of range for cents")

var (
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

func init() {
	// Amounts travel as JSON numbers, matching what browser clients send.
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseAmount converts a decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// exponents and non-numeric input are rejected; zero is returned as a value
// and left to the caller to refuse.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "+-eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// numberCeiling is where ParseNumber stops expanding: anything larger fails
// the MaxAmount check exactly like the ceiling does.
var numberCeiling = decimal.New(1, 11)

// ParseNumber reads the text of a JSON number, exponents included, and
// returns its plain decimal form for ParseAmount. Magnitudes of 10^12 and
// above are clamped to ±10^11 and those below 10^-3 become "0", so an
// exponent like 1e-999999999 is never expanded digit by digit.
func ParseNumber(s string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidAmount
	}
	// |d| < 10^mag
	mag := int64(d.Exponent()) + int64(d.NumDigits())
	switch {
	case d.IsZero() || mag < -3:
		return "0", nil
	case mag > 12:
		return numberCeiling.Mul(decimal.NewFromInt(int64(d.Sign()))).String(), nil
	}
	return d.String(), nil
}

// RoundAmount rounds half away from zero to two decimal places.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ToCents converts an amount to integer cents with half-up rounding.
func ToCents(d decimal.Decimal) (int64, error) {
	c := d.Shift(2).Round(0)
	if c.LessThan(minCents) || c.GreaterThan(maxCents) {
		return 0, ErrCentsOverflow
	}
	return c.IntPart(), nil
}

// FromCents is the inverse of ToCents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatAmount renders an amount with exactly two decimals and no grouping,
// e.g. "1000.00".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Sum adds amounts.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
