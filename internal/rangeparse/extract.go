// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rangeparse turns free-form clinical reference-range strings such
// as "3.5-5.5 mmol/L", "<100 ng/mL" or "10 to 20 %" into a ParsedRange: an
// optional low bound, an optional high bound, and a unit.
//
// Extraction never fails. Unusable input degrades to a range with no
// bounds, which callers treat as an entry to skip.
package rangeparse

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pdiddy/labref/pkg/types"
)

var numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+(?:[eE][-+]?\d+)?`)

// Extractor extracts a ParsedRange from a raw range string.
type Extractor interface {
	Extract(raw string) types.ParsedRange
}

// ExtractorFunc adapts a plain function to the Extractor interface.
type ExtractorFunc func(raw string) types.ParsedRange

// Extract calls f(raw).
func (f ExtractorFunc) Extract(raw string) types.ParsedRange {
	return f(raw)
}

// Default is the uncached extractor.
var Default Extractor = ExtractorFunc(Extract)

// token is one numeric match in normalized text.
type token struct {
	value      float64
	start, end int
}

// Extract parses raw into low, high, and unit.
//
// A string containing "<" yields only a high bound and one containing ">"
// only a low bound, taken from the first number. Otherwise the first two
// numbers become low and high; a lone number becomes both. Extra numbers
// are ignored but counted in Tokens.
func Extract(raw string) types.ParsedRange {
	if strings.TrimSpace(raw) == "" {
		return types.ParsedRange{}
	}

	n := normalize(raw)
	tokens := scanNumbers(n.text)
	unit := extractUnit(raw, n, tokens)

	pr := types.ParsedRange{Unit: unit, Tokens: len(tokens)}

	switch {
	case strings.Contains(n.text, "<"):
		if len(tokens) > 0 {
			pr.High = ptr(tokens[0].value)
		}
	case strings.Contains(n.text, ">"):
		if len(tokens) > 0 {
			pr.Low = ptr(tokens[0].value)
		}
	case len(tokens) >= 2:
		pr.Low = ptr(tokens[0].value)
		pr.High = ptr(tokens[1].value)
	case len(tokens) == 1:
		pr.Low = ptr(tokens[0].value)
		pr.High = ptr(tokens[0].value)
	}
	return pr
}

// scanNumbers returns the numeric tokens of s left to right. A sign that
// directly follows a digit or decimal point (spaces aside) is read as the
// low/high separator, so "3.5-5.5" gives 3.5 and 5.5. Numbers beyond the
// float64 range are kept as ±Inf.
func scanNumbers(s string) []token {
	var tokens []token
	for _, loc := range numberPattern.FindAllStringIndex(s, -1) {
		start, end := loc[0], loc[1]
		if c := s[start]; (c == '-' || c == '+') && followsNumber(s, start) {
			start++
		}
		v, err := strconv.ParseFloat(s[start:end], 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			continue
		}
		tokens = append(tokens, token{value: v, start: start, end: end})
	}
	return tokens
}

func followsNumber(s string, pos int) bool {
	prev := strings.TrimRight(s[:pos], " \t")
	if prev == "" {
		return false
	}
	c := prev[len(prev)-1]
	return (c >= '0' && c <= '9') || c == '.'
}

// extractUnit finds the first run of letters, "/" or "%" at or after the
// end of the last numeric token and returns the source text from there to
// the end, trimmed.
func extractUnit(raw string, n normalized, tokens []token) string {
	from := 0
	if len(tokens) > 0 {
		from = tokens[len(tokens)-1].end
	}
	for i := from; i < len(n.text); {
		r, size := utf8.DecodeRuneInString(n.text[i:])
		if unicode.IsLetter(r) || r == '/' || r == '%' {
			return strings.TrimSpace(raw[n.sourceOffset(i):])
		}
		i += size
	}
	return ""
}

func ptr(v float64) *float64 {
	return &v
}
