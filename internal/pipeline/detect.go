package pipeline

import (
	"regexp"
	"strings"
)

type DetectResult struct {
	IsItinerary bool
	Score       float64
	Reason      string
}

var (
	detectKeywords = []string{"itinerary", "trip", "voucher", "excursion", "pax", "маршрут", "программа", "тур", "ваучер"}
	detectDates    = regexp.MustCompile(`\b\d{2}\.\d{2}\.\d{2,4}\b`)
)

// DetectItinerary scores whether a mail carries a trip sheet. Keywords in the
// subject weigh more than in the body; a spreadsheet attachment or an HTML
// table pushes the score up.
func DetectItinerary(subject, text, html string, attachmentNames []string) DetectResult {
	subject = strings.ToLower(subject)
	text = strings.ToLower(text)
	html = strings.ToLower(html)

	score := 0.0
	for _, kw := range detectKeywords {
		if strings.Contains(subject, kw) {
			score += 0.2
		}
		if strings.Contains(text, kw) || strings.Contains(html, kw) {
			score += 0.1
		}
	}

	dateHits := len(detectDates.FindAllString(text, -1)) + len(detectDates.FindAllString(html, -1))
	if dateHits >= 2 {
		score += 0.4
	} else if dateHits == 1 {
		score += 0.2
	}

	for _, name := range attachmentNames {
		ln := strings.ToLower(name)
		if strings.HasSuffix(ln, ".xlsx") || strings.HasSuffix(ln, ".csv") {
			score += 0.25
			break
		}
	}

	if strings.Contains(html, "<table") {
		score += 0.25
	}
	if score > 1 {
		score = 1
	}

	isItinerary := score >= 0.45
	reason := "rules_negative"
	if isItinerary {
		reason = "rules_positive"
	}
	return DetectResult{IsItinerary: isItinerary, Score: score, Reason: reason}
}
