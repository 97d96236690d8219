package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripvoucher/internal"
)

func rulesOnly() *Classifier {
	return NewClassifier(DeciderFunc(func(context.Context, string) (internal.Category, error) {
		return internal.CategoryGroupTix, nil
	}), nil)
}

func header() []string {
	return []string{internal.ColTripRef, internal.ColPAX, internal.ColPlace, internal.ColTime, internal.ColExcursion, internal.ColStartPOI}
}

func TestBuildEndToEndAirportTransfer(t *testing.T) {
	grid := [][]string{
		header(),
		{"SCN-2025-001", "4", "Monday 15.03.25", "", "", ""},
		{"", "", "", "09:00", "Airport Transfer", "Arrival Hall"},
	}

	it, err := BuildItinerary(context.Background(), grid, rulesOnly())
	require.NoError(t, err)
	require.Len(t, it.Days, 1)

	day := it.Days[0]
	assert.Equal(t, 1, day.DayNumber)
	assert.Contains(t, day.DayName, "Monday")
	assert.False(t, day.PageBreak)
	require.Len(t, day.Activities, 1)
	assert.Equal(t, internal.Activity{
		Time:    "9:00 AM",
		Name:    "Airport Transfer",
		Comment: "9:00 AM – Meet your driver in the Arrival Hall",
	}, day.Activities[0])
	assert.Nil(t, day.HotelInfo)

	assert.Equal(t, "SCN-2025-001", it.TripRef)
	assert.Equal(t, 4, it.Participants)
	assert.Equal(t, "15 Mar 2025 – 15 Mar 2025", it.TripDates)
	assert.Equal(t, internal.EmergencyNumber, it.EmergencyNumber)
	assert.Equal(t, internal.CompanyName, it.CompanyName)
}

func TestBuildDayNumbersAndPageBreaks(t *testing.T) {
	weekdays := []string{"пн", "вт", "ср", "чт", "пт", "сб", "вс"}
	grid := [][]string{header()}
	for i := 0; i < 13; i++ {
		grid = append(grid, []string{"", "", fmt.Sprintf("%s, %02d.03.25", weekdays[i%7], i+1), "", "", ""})
		grid = append(grid, []string{"", "", "", "10:00", "Old town walking tickets", "Square"})
	}

	it, err := BuildItinerary(context.Background(), grid, rulesOnly())
	require.NoError(t, err)
	require.Len(t, it.Days, 13)
	for i, day := range it.Days {
		n := i + 1
		assert.Equal(t, n, day.DayNumber)
		assert.Equal(t, n > 1 && (n-1)%4 == 0, day.PageBreak, "day %d", n)
		assert.Len(t, day.Activities, 1)
	}
	assert.True(t, it.Days[4].PageBreak)
	assert.True(t, it.Days[8].PageBreak)
	assert.True(t, it.Days[12].PageBreak)
	assert.Equal(t, "Monday, 01.03.25", it.Days[0].DayName)
}

func TestBuildHotelAttachesToClosingDay(t *testing.T) {
	grid := [][]string{
		header(),
		{"REF-7", "2", "пн, 15.03.25", "", "", ""},
		{"", "", "", "14:00", "Check-in Hotel Kämp DBL superior", ""},
		{"", "", "", "18:00", "Helsinki city tour", "Lobby of Seaside Hotel Helsinki"},
		{"", "", "вт, 16.03.25", "", "", ""},
		{"", "", "", "10:00", "Ferry tickets", "West Terminal"},
		{"", "", "ср, 17.03.25", "", "", ""},
		{"", "", "", "09:00", "Stockholm private tour", "Grand Hotel Stockholm"},
	}

	it, err := BuildItinerary(context.Background(), grid, rulesOnly())
	require.NoError(t, err)
	require.Len(t, it.Days, 3)

	require.NotNil(t, it.Days[0].HotelInfo)
	assert.Equal(t, internal.HotelBooking{Name: "Seaside Hotel Helsinki", Reference: "REF-7", Booking: ""}, *it.Days[0].HotelInfo)
	assert.Nil(t, it.Days[1].HotelInfo)
	require.NotNil(t, it.Days[2].HotelInfo)
	assert.Equal(t, "Grand Hotel Stockholm", it.Days[2].HotelInfo.Name)
	assert.Equal(t, "REF-7", it.Days[2].HotelInfo.Reference)
	assert.Equal(t, "9:00 AM – Meet your driver-guide in the lobby of Grand Hotel Stockholm", it.Days[2].Activities[0].Comment)
}

func TestBuildBookingCodeComesFromExcursion(t *testing.T) {
	grid := [][]string{
		header(),
		{"R", "1", "Friday 19.03.25", "", "", ""},
		{"", "", "", "", "stay at lodge hb", ""},
	}
	it, err := BuildItinerary(context.Background(), grid, rulesOnly())
	require.NoError(t, err)
	require.NotNil(t, it.Days[0].HotelInfo)
	assert.Equal(t, "Lodge", it.Days[0].HotelInfo.Name)
	assert.Equal(t, "HB", it.Days[0].HotelInfo.Booking)
}

func TestBuildIgnoresRowsBeforeFirstDayAndEmptyExcursions(t *testing.T) {
	asked := 0
	classifier := NewClassifier(DeciderFunc(func(context.Context, string) (internal.Category, error) {
		asked++
		return internal.CategorySafari, nil
	}), nil)

	grid := [][]string{
		header(),
		{"", "", "Helsinki", "09:00", "Welcome drink", "Bar"},
		{"", "", "Thursday 18.03.25", "", "", ""},
		{"", "", "", "10:00", "   ", "Nowhere"},
		{"", "", "", "11:00", "Reindeer farm", "Farm gate"},
	}
	it, err := BuildItinerary(context.Background(), grid, classifier)
	require.NoError(t, err)
	require.Len(t, it.Days, 1)
	require.Len(t, it.Days[0].Activities, 1)
	assert.Equal(t, "11:00 AM – Get ready for the safari at: Farm gate", it.Days[0].Activities[0].Comment)
	assert.Equal(t, 1, asked)
	assert.Equal(t, "Helsinki", it.Destinations)
}

func TestBuildNoDayHeaders(t *testing.T) {
	it, err := BuildItinerary(context.Background(), [][]string{header(), {"R", "1", "Helsinki", "", "Walk", ""}}, rulesOnly())
	require.NoError(t, err)
	assert.NotNil(t, it.Days)
	assert.Empty(t, it.Days)
}

func TestBuildEmptyGrid(t *testing.T) {
	_, err := BuildItinerary(context.Background(), [][]string{header()}, rulesOnly())
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestBuilderStates(t *testing.T) {
	b := NewBuilder(rulesOnly(), "R")
	ctx := context.Background()
	assert.Equal(t, AwaitingFirstDay, b.State())

	require.NoError(t, b.Step(ctx, RawRecord{internal.ColExcursion: "Airport transfer"}))
	assert.Equal(t, AwaitingFirstDay, b.State())

	require.NoError(t, b.Step(ctx, RawRecord{internal.ColPlace: "Tuesday"}))
	assert.Equal(t, InDay, b.State())

	days := b.Finish()
	assert.Equal(t, Done, b.State())
	assert.Len(t, days, 1)
	assert.ErrorIs(t, b.Step(ctx, RawRecord{internal.ColPlace: "Wednesday"}), ErrBuildFinished)
	assert.Len(t, b.Finish(), 1)
}

func TestBuildStopsWhenDecisionFails(t *testing.T) {
	classifier := NewClassifier(DeciderFunc(func(ctx context.Context, _ string) (internal.Category, error) {
		return "", context.Canceled
	}), nil)
	grid := [][]string{
		header(),
		{"", "", "Monday", "", "", ""},
		{"", "", "", "", "Dinner cruise", ""},
	}
	_, err := BuildItinerary(context.Background(), grid, classifier)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnresolvedExcursions(t *testing.T) {
	table, err := Tabularize([][]string{
		header(),
		{"", "", "", "", "Before any day", ""},
		{"", "", "Monday", "", "", ""},
		{"", "", "", "", "Dinner cruise", ""},
		{"", "", "", "", "Airport transfer", ""},
		{"", "", "", "", "dinner  CRUISE", ""},
		{"", "", "", "", "Sauna evening", ""},
		{"", "", "", "", "Opera night", ""},
	})
	require.NoError(t, err)

	got := UnresolvedExcursions(table, func(excursion string) bool { return excursion == "Opera night" })
	assert.Equal(t, []string{"Dinner cruise", "Sauna evening"}, got)
}
