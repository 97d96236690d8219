package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var weekdayAbbreviations = []struct {
	abbr string
	name string
}{
	{"пн", "Monday"},
	{"вт", "Tuesday"},
	{"ср", "Wednesday"},
	{"чт", "Thursday"},
	{"пт", "Friday"},
	{"сб", "Saturday"},
	{"вс", "Sunday"},
}

// NFC first so decomposed letters (и + U+0306) go away as a whole.
var stripCyrillic = transform.Chain(norm.NFC, runes.Remove(runes.In(unicode.Cyrillic)))

// WeekdayNames returns the English weekday names recognised in day headers.
func WeekdayNames() []string {
	out := make([]string, 0, len(weekdayAbbreviations))
	for _, d := range weekdayAbbreviations {
		out = append(out, d.name)
	}
	return out
}

// NormalizeDayName translates a leading lower-case Russian weekday abbreviation
// and drops every remaining Cyrillic character: "пн, 15.03.25 г." -> "Monday, 15.03.25 .".
func NormalizeDayName(text string) string {
	normalized := text
	for _, d := range weekdayAbbreviations {
		if rest, ok := strings.CutPrefix(text, d.abbr); ok {
			normalized = d.name + rest
			break
		}
	}

	out, _, err := transform.String(stripCyrillic, normalized)
	if err != nil {
		out = normalized
	}
	return strings.TrimSpace(out)
}

// IsDayHeader reports whether an already normalized place names a weekday.
func IsDayHeader(place string) bool {
	for _, d := range weekdayAbbreviations {
		if strings.Contains(place, d.name) {
			return true
		}
	}
	return false
}
