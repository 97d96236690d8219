package util

import (
	"regexp"
	"strings"
)

var (
	reSpaces           = regexp.MustCompile(`\s+`)
	reHorizontalSpaces = regexp.MustCompile(`[^\S\n]+`)
)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// NormalizeLines collapses whitespace within each line and drops blank lines.
// Line breaks survive: "09:00 \n\n 11:00" -> "09:00\n11:00".
func NormalizeLines(input string) string {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	lines := []string{}
	for _, line := range strings.Split(input, "\n") {
		if line = strings.TrimSpace(reHorizontalSpaces.ReplaceAllString(line, " ")); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// DecisionKey is the lookup key for remembered classifications: case and
// whitespace differences between sheets do not matter.
func DecisionKey(excursion string) string {
	return strings.ToLower(NormalizeSpaces(excursion))
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
