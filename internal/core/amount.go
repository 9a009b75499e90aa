// Package core holds the meal-planning domain model: recipes, ingredients,
// the fixed vocabularies, and the shopping-list aggregation rules.
//
// This file contains amount parsing and formatting. Quantities are plain
// float64 values; display formatting drops the decimal point for whole
// numbers and keeps exactly one decimal digit otherwise.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// FormatAmount renders a quantity for display.
//
// Whole values render as integers with no decimal point, everything else is
// rounded to exactly one decimal digit. No thousands separators, no locale
// handling.
//
// Examples:
//
//	FormatAmount(4)    -> "4"
//	FormatAmount(4.0)  -> "4"
//	FormatAmount(4.5)  -> "4.5"
//	FormatAmount(0.25) -> "0.2"
func FormatAmount(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatInt(int64(v), 10)
	}
	s := strconv.FormatFloat(v, 'f', 1, 64)
	// Rounding to one decimal can land on a whole value (e.g. 3.99).
	if strings.HasSuffix(s, ".0") {
		return strings.TrimSuffix(s, ".0")
	}
	return s
}

// ParseAmount converts a user-entered quantity to a float64.
//
// It accepts both dot (2.5) and comma (2,5) decimal separators and rejects
// negative values, signs, and anything non-numeric. A fixed-point entry like
// "4.00" parses to the same value as "4", so both format back as "4".
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return v, nil
}
