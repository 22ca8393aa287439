// Package core holds the domain types shared by the ledger, the amortization
// engine and the storage layer.
//
// This file parses user-entered amounts and percentages into decimals.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered amount into a positive decimal.
//
// Both dot (12.5) and comma (12,5) decimal separators are accepted. Signs,
// thousands separators and anything that is not a digit are rejected.
//
// Examples:
//
//	ParseAmount("5000000")  -> 5000000, nil
//	ParseAmount("1250,50")  -> 1250.5, nil
//	ParseAmount("-1")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseUnsigned(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParsePercent is like ParseAmount but allows zero, for rates and fees.
func ParsePercent(s string) (decimal.Decimal, error) {
	d, err := parseUnsigned(s)
	if err != nil {
		return decimal.Zero, ErrNegativeRate
	}
	return d, nil
}

func parseUnsigned(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for i, p := range parts {
		if p == "" && i == 0 && len(parts) == 2 {
			continue // ".5"
		}
		if p == "" {
			return decimal.Zero, ErrInvalidAmount
		}
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	return decimal.NewFromString(s)
}
