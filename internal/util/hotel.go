package util

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	hotelKeywords   = []string{"hotel", "lodge", "resort"}
	bookingKeywords = []string{"BB", "HB", "DBL", "Superior", "Deluxe"}
)

// ExtractHotelName finds the first hotel/lodge/resort token and glues up to two
// capitalized words before it and one after it: "at the Grand Hotel Stockholm"
// -> "Grand Hotel Stockholm".
func ExtractHotelName(text string) string {
	tokens := strings.Fields(text)
	for i, token := range tokens {
		if !isHotelKeyword(token) {
			continue
		}
		parts := make([]string, 0, 4)
		if i >= 2 && startsUpper(tokens[i-2]) {
			parts = append(parts, tokens[i-2])
		}
		if i >= 1 && startsUpper(tokens[i-1]) {
			parts = append(parts, tokens[i-1])
		}
		parts = append(parts, capitalize(token))
		if i+1 < len(tokens) && startsUpper(tokens[i+1]) {
			parts = append(parts, tokens[i+1])
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// ExtractBookingCode returns the first room/rate keyword found in text, in its
// canonical spelling.
func ExtractBookingCode(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range bookingKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return kw
		}
	}
	return ""
}

func isHotelKeyword(token string) bool {
	lower := strings.ToLower(token)
	for _, kw := range hotelKeywords {
		if lower == kw {
			return true
		}
	}
	return false
}

func startsUpper(token string) bool {
	r, _ := utf8.DecodeRuneInString(token)
	return r != utf8.RuneError && unicode.IsUpper(r)
}

func capitalize(token string) string {
	r, size := utf8.DecodeRuneInString(token)
	if r == utf8.RuneError {
		return token
	}
	return string(unicode.ToUpper(r)) + token[size:]
}
