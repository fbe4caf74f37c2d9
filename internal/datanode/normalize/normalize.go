// Package normalize applies the text transforms a Data Node uses to make
// address components comparable before they go into the radix trie:
// uppercasing, trimming, and collapsing internal whitespace.
package normalize

import "strings"

// Normalize uppercases text, trims leading/trailing whitespace, and
// collapses runs of internal whitespace to a single space.
func Normalize(text string) string {
	upper := strings.ToUpper(text)
	return collapseWhitespace(strings.TrimSpace(upper))
}

func collapseWhitespace(text string) string {
	if text == "" {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		if isSpace(r) {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		b.WriteRune(r)
		prevSpace = false
	}
	return b.String()
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}

// streetSuffixes maps common street-type abbreviations to their expansion.
// Matched only against the last word of a normalized street name.
var streetSuffixes = map[string]string{
	"ST":   "STREET",
	"AVE":  "AVENUE",
	"RD":   "ROAD",
	"BLVD": "BOULEVARD",
	"DR":   "DRIVE",
	"LN":   "LANE",
	"CT":   "COURT",
	"PL":   "PLACE",
	"CIR":  "CIRCLE",
	"WAY":  "WAY",
	"PKWY": "PARKWAY",
	"TER":  "TERRACE",
	"SQ":   "SQUARE",
	"HWY":  "HIGHWAY",
	"EXPY": "EXPRESSWAY",
}

// NormalizeStreetSuffix normalizes a street name and, if its final word is a
// known abbreviation, expands it to the full street-type word.
func NormalizeStreetSuffix(street string) string {
	normalized := Normalize(street)
	words := strings.Fields(normalized)
	if len(words) == 0 {
		return normalized
	}
	if expansion, ok := streetSuffixes[words[len(words)-1]]; ok {
		words[len(words)-1] = expansion
	}
	return strings.Join(words, " ")
}
