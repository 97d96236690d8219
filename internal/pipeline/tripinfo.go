package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"tripvoucher/internal"
)

var (
	datedPlacePattern = regexp.MustCompile(`\d{2}\.\d{2}\.\d{2}`)
	dateFragment      = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4}|\d{2})`)
	leadingInt        = regexp.MustCompile(`^[+-]?\d+`)
)

func ExtractTripInfo(records []RawRecord) internal.TripInfo {
	tripRef := firstValue(records, internal.ColTripRef)
	if tripRef == "" {
		tripRef = internal.NotAvailable
	}
	return internal.TripInfo{
		TripRef:      tripRef,
		Participants: parseParticipants(firstValue(records, internal.ColPAX)),
		TripDates:    ExtractTripDates(records),
		Destinations: ExtractDestinations(records),
	}
}

// ExtractTripDates formats the first and last dated Place values as
// "15 Mar 2025 – 22 Mar 2025".
func ExtractTripDates(records []RawRecord) string {
	dated := []string{}
	for _, rec := range records {
		if place := rec.Field(internal.ColPlace); datedPlacePattern.MatchString(place) {
			dated = append(dated, place)
		}
	}
	if len(dated) == 0 {
		return internal.NotAvailable
	}
	first := formatTripDate(lastSegment(dated[0]))
	last := formatTripDate(lastSegment(dated[len(dated)-1]))
	return first + " – " + last
}

// ExtractDestinations joins the undated Place values in first-seen order.
func ExtractDestinations(records []RawRecord) string {
	seen := map[string]struct{}{}
	places := []string{}
	for _, rec := range records {
		place := strings.TrimSpace(rec.Field(internal.ColPlace))
		if place == "" || datedPlacePattern.MatchString(place) {
			continue
		}
		if _, ok := seen[place]; ok {
			continue
		}
		seen[place] = struct{}{}
		places = append(places, place)
	}
	return strings.Join(places, " – ")
}

func firstValue(records []RawRecord, column string) string {
	for _, rec := range records {
		if v := strings.TrimSpace(rec.Field(column)); v != "" {
			return v
		}
	}
	return ""
}

func parseParticipants(value string) int {
	n, err := strconv.Atoi(leadingInt.FindString(value))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func lastSegment(place string) string {
	parts := strings.Split(place, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}

// formatTripDate turns "15.03.25 г." into "15 Mar 2025". Anything it cannot
// read comes back unchanged.
func formatTripDate(raw string) string {
	clean := strings.TrimSpace(strings.ReplaceAll(raw, "г.", ""))
	m := dateFragment.FindStringSubmatch(clean)
	if m == nil {
		return raw
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return raw
	}
	return t.Format("2 Jan 2006")
}
