package pipeline

import (
	"context"
	"errors"
	"strings"

	"tripvoucher/internal"
	"tripvoucher/internal/util"
)

var ErrBuildFinished = errors.New("itinerary build already finished")

type BuildState int

const (
	AwaitingFirstDay BuildState = iota
	InDay
	Done
)

func (s BuildState) String() string {
	switch s {
	case AwaitingFirstDay:
		return "awaiting_first_day"
	case InDay:
		return "in_day"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Builder folds records into days. It is not safe for concurrent use; one
// builder serves one pass over one sheet.
type Builder struct {
	classifier   *Classifier
	tripRef      string
	state        BuildState
	days         []internal.Day
	pendingHotel *internal.HotelBooking
}

func NewBuilder(classifier *Classifier, tripRef string) *Builder {
	return &Builder{classifier: classifier, tripRef: tripRef, days: []internal.Day{}}
}

func (b *Builder) State() BuildState { return b.state }

// Step consumes one record. It blocks while the classifier waits for a
// decision on this record's excursion.
func (b *Builder) Step(ctx context.Context, rec RawRecord) error {
	if b.state == Done {
		return ErrBuildFinished
	}

	place := util.NormalizeDayName(strings.TrimSpace(rec.Field(internal.ColPlace)))
	if util.IsDayHeader(place) {
		b.openDay(place)
		return nil
	}

	excursion := strings.TrimSpace(rec.Field(internal.ColExcursion))
	if b.state != InDay || excursion == "" {
		return nil
	}

	timeLabel := util.ConvertTimeRange(rec.Field(internal.ColTime))
	startPOI := strings.TrimSpace(rec.Field(internal.ColStartPOI))
	category, err := b.classifier.Classify(ctx, excursion)
	if err != nil {
		return err
	}

	day := &b.days[len(b.days)-1]
	day.Activities = append(day.Activities, internal.Activity{
		Time:    timeLabel,
		Name:    excursion,
		Comment: GenerateComment(category, timeLabel, startPOI),
	})

	if hotel := util.FirstNonEmpty(util.ExtractHotelName(excursion), util.ExtractHotelName(startPOI)); hotel != "" {
		b.pendingHotel = &internal.HotelBooking{
			Name:      hotel,
			Reference: b.tripRef,
			Booking:   util.ExtractBookingCode(excursion),
		}
	}
	return nil
}

// Finish closes the last day and returns every day built. Further Steps fail.
func (b *Builder) Finish() []internal.Day {
	if b.state != Done {
		b.closeDay()
		b.state = Done
	}
	return b.days
}

func (b *Builder) openDay(name string) {
	b.closeDay()
	number := len(b.days) + 1
	b.days = append(b.days, internal.Day{
		DayNumber:  number,
		DayName:    name,
		Activities: []internal.Activity{},
		PageBreak:  PageBreak(number),
	})
	b.state = InDay
}

func (b *Builder) closeDay() {
	if len(b.days) == 0 {
		return
	}
	b.days[len(b.days)-1].HotelInfo = b.pendingHotel
	b.pendingHotel = nil
}

// PageBreak reports whether a day starts a new printed page (days 5, 9, 13...).
func PageBreak(dayNumber int) bool {
	return dayNumber > 1 && (dayNumber-1)%internal.PageBreakPeriod == 0
}

func BuildItinerary(ctx context.Context, grid [][]string, classifier *Classifier) (internal.Itinerary, error) {
	table, err := Tabularize(grid)
	if err != nil {
		return internal.Itinerary{}, err
	}
	return BuildFromTable(ctx, table, classifier)
}

func BuildFromTable(ctx context.Context, table Table, classifier *Classifier) (internal.Itinerary, error) {
	info := ExtractTripInfo(table.Records)
	b := NewBuilder(classifier, info.TripRef)
	for _, rec := range table.Records {
		if err := b.Step(ctx, rec); err != nil {
			return internal.Itinerary{}, err
		}
	}
	return internal.Itinerary{
		TripInfo:        info,
		Days:            b.Finish(),
		EmergencyNumber: internal.EmergencyNumber,
		CompanyName:     internal.CompanyName,
	}, nil
}

// UnresolvedExcursions lists, in sheet order and without repeats, the
// excursions a build would have to ask about. known filters out texts that
// already have an answer.
func UnresolvedExcursions(table Table, known func(excursion string) bool) []string {
	seen := map[string]struct{}{}
	out := []string{}
	inDay := false
	for _, rec := range table.Records {
		if util.IsDayHeader(util.NormalizeDayName(strings.TrimSpace(rec.Field(internal.ColPlace)))) {
			inDay = true
			continue
		}
		excursion := strings.TrimSpace(rec.Field(internal.ColExcursion))
		if !inDay || excursion == "" {
			continue
		}
		if _, ok := ClassifyByRules(excursion); ok {
			continue
		}
		key := util.DecisionKey(excursion)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if known != nil && known(excursion) {
			continue
		}
		out = append(out, excursion)
	}
	return out
}
