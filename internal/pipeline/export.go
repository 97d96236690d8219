package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tripvoucher/internal"
)

const (
	sheetTrip       = "Trip"
	sheetActivities = "Activities"
	sheetHotels     = "Hotels"
)

// ItineraryWorkbook lays an itinerary out over three sheets: trip facts as
// key/value pairs, one row per activity and one row per hotel stay.
func ItineraryWorkbook(it internal.Itinerary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetTrip); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetActivities, sheetHotels} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	writeRows(f, sheetTrip, [][]any{
		{"key", "value"},
		{"trip_ref", it.TripRef},
		{"participants", it.Participants},
		{"trip_dates", it.TripDates},
		{"destinations", it.Destinations},
		{"emergency_number", it.EmergencyNumber},
		{"company_name", it.CompanyName},
	})

	activities := [][]any{{"day_number", "day_name", "page_break", "time", "name", "comment"}}
	hotels := [][]any{{"day_number", "hotel_name", "reference", "booking"}}
	for _, day := range it.Days {
		for _, a := range day.Activities {
			activities = append(activities, []any{day.DayNumber, day.DayName, day.PageBreak, a.Time, a.Name, a.Comment})
		}
		if day.HotelInfo != nil {
			hotels = append(hotels, []any{day.DayNumber, day.HotelInfo.Name, day.HotelInfo.Reference, day.HotelInfo.Booking})
		}
	}
	writeRows(f, sheetActivities, activities)
	writeRows(f, sheetHotels, hotels)

	return f, nil
}

func ExportItineraryToXLSX(it internal.Itinerary, outputPath string) error {
	f, err := ItineraryWorkbook(it)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) {
	for r, row := range rows {
		for c, value := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
}
