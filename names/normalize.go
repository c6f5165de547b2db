/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// combiningMarks covers the Combining Diacritical Marks block only.
var combiningMarks = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0300, Hi: 0x036f, Stride: 1},
	},
}

var punctuationReplacer = strings.NewReplacer("-", " ", ".", "")

// Normalize returns the comparison key for a name: lowercased, diacritics
// stripped, hyphens turned into spaces, periods removed, trimmed, with runs of
// internal whitespace collapsed to a single space.
func Normalize(raw string) string {
	s := strings.ToLower(raw)

	// A fresh chain per call: transform.Chain is stateful.
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(combiningMarks))), s)
	if err == nil {
		s = stripped
	}

	s = punctuationReplacer.Replace(s)

	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits raw input on whitespace.
func Tokens(raw string) []string {
	return strings.Fields(raw)
}

// IsSingleToken reports whether raw is exactly one whitespace-delimited word.
func IsSingleToken(raw string) bool {
	return len(Tokens(raw)) == 1
}
