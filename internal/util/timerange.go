package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	clockPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	rangeSeparators = strings.NewReplacer("\n", "-", "–", "-")
)

// ConvertTimeRange rewrites 24h clock values in a free-text time cell to 12h
// form. "14:00-16:00" -> "2:00 PM – 4:00 PM". Parts that are not a clock value
// are kept as they are.
func ConvertTimeRange(value string) string {
	if value == "" || value == "undefined" {
		return ""
	}

	parts := strings.Split(rangeSeparators.Replace(value), "-")
	for i, part := range parts {
		parts[i] = convertClock(strings.TrimSpace(part))
	}
	return strings.Join(parts, " – ")
}

func convertClock(t string) string {
	m := clockPattern.FindStringSubmatch(t)
	if m == nil {
		return t
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour > 23 {
		return t
	}
	if minute, err := strconv.Atoi(m[2]); err != nil || minute > 59 {
		return t
	}

	hour12 := hour
	switch {
	case hour == 0:
		hour12 = 12
	case hour > 12:
		hour12 = hour - 12
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:%s %s", hour12, m[2], suffix)
}
