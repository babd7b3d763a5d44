// Package core provides the domain model for the expense tracker.
//
// This file contains amount parsing for user-submitted form values.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts a user-supplied decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected: only strictly positive amounts are valid.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-5")    -> error
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalidField("amount", "amount is required")
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, invalidField("amount", "amount must be greater than 0")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalidField("amount", "amount is not a valid number")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, invalidField("amount", "amount must be greater than 0")
	}
	return v, nil
}
