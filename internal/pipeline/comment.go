package pipeline

import (
	"strings"

	"tripvoucher/internal"
)

var commentTemplates = map[internal.Category]string{
	internal.CategoryTransfer: "{time} – Meet your driver in the {start_poi}",
	internal.CategoryCityTour: "{time} – Meet your guide in the lobby of {start_poi}",
	internal.CategoryPrivTour: "{time} – Meet your driver-guide in the lobby of {start_poi}",
	internal.CategorySafari:   "{time} – Get ready for the safari at: {start_poi}",
	internal.CategoryGroupTix: "{time} – Please arrive to the start point ({start_poi}) in advance.",
}

// GenerateComment fills the template of category. Each placeholder is replaced
// once; an unknown category yields "".
func GenerateComment(category internal.Category, timeLabel, startPOI string) string {
	tmpl, ok := commentTemplates[category]
	if !ok {
		return ""
	}
	out := strings.Replace(tmpl, "{time}", timeLabel, 1)
	return strings.Replace(out, "{start_poi}", startPOI, 1)
}
