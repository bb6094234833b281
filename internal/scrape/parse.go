package scrape

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseError reports price text that did not parse. Raw preserves the
// original text so an operator can see exactly what the page rendered.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse price %q: %s", e.Raw, e.Reason)
}

// ParsePrice parses a currency-prefixed decimal such as "₹15,621.84".
// It returns the amount and the non-numeric label around the number: the
// symbol prefix joined with any unit suffix, e.g. "₹" or "₹/g". The label
// may be empty when the text is a bare number.
//
// Amounts are non-negative by construction; anything that looks negative,
// empty, or non-numeric fails with *ParseError.
func ParsePrice(raw string) (decimal.Decimal, string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, "", &ParseError{Raw: raw, Reason: "empty text"}
	}

	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return decimal.Zero, "", &ParseError{Raw: raw, Reason: "no digits"}
	}
	prefix := strings.TrimSpace(s[:start])
	if strings.ContainsRune(prefix, '-') {
		return decimal.Zero, "", &ParseError{Raw: raw, Reason: "negative amount"}
	}

	rest := s[start:]
	end := strings.IndexFunc(rest, func(r rune) bool {
		return !unicode.IsDigit(r) && r != ',' && r != '.'
	})
	num, suffix := rest, ""
	if end >= 0 {
		num, suffix = rest[:end], strings.TrimSpace(rest[end:])
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(num, ",", ""))
	if err != nil {
		return decimal.Zero, "", &ParseError{Raw: raw, Reason: "not a decimal"}
	}
	if amount.IsNegative() {
		return decimal.Zero, "", &ParseError{Raw: raw, Reason: "negative amount"}
	}

	label := prefix
	if suffix != "" {
		label += suffix
	}
	return amount, label, nil
}
