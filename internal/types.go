package internal

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CompanyName     = "Scandinavia"
	EmergencyNumber = "+358403581870"
	NotAvailable    = "N/A"
	PageBreakPeriod = 4
)

// Column names expected in the itinerary sheet header.
const (
	ColTripRef   = "Trip / Ref"
	ColPAX       = "PAX"
	ColPlace     = "Place"
	ColTime      = "Time"
	ColExcursion = "Excursion"
	ColStartPOI  = "Start POI"
)

type Category string

const (
	CategoryTransfer Category = "transfer"
	CategoryCityTour Category = "city tour"
	CategoryPrivTour Category = "priv-tour"
	CategorySafari   Category = "safari"
	CategoryGroupTix Category = "group/tix"
)

var ErrUnknownCategory = errors.New("unknown excursion category")

// Categories lists the tags in the order they are offered to a human.
func Categories() []Category {
	return []Category{CategoryTransfer, CategoryCityTour, CategoryPrivTour, CategorySafari, CategoryGroupTix}
}

func ParseCategory(value string) (Category, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, c := range Categories() {
		if v == string(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, value)
}

type ItemSource string

const (
	SourceXLSX      ItemSource = "xlsx"
	SourceCSV       ItemSource = "csv"
	SourceHTMLTable ItemSource = "html_table"
	SourceEmail     ItemSource = "email"
)

type TripInfo struct {
	TripRef      string `json:"tripRef"`
	Participants int    `json:"participants"`
	TripDates    string `json:"tripDates"`
	Destinations string `json:"destinations"`
}

type Activity struct {
	Time    string `json:"time"`
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

type HotelBooking struct {
	Name      string `json:"name"`
	Reference string `json:"reference"`
	Booking   string `json:"booking"`
}

type Day struct {
	DayNumber  int           `json:"dayNumber"`
	DayName    string        `json:"dayName"`
	Activities []Activity    `json:"activities"`
	HotelInfo  *HotelBooking `json:"hotelInfo"`
	PageBreak  bool          `json:"pageBreak"`
}

// Itinerary is the voucher data handed to rendering and export.
type Itinerary struct {
	TripInfo
	Days            []Day  `json:"days"`
	EmergencyNumber string `json:"emergencyNumber"`
	CompanyName     string `json:"companyName"`
}

func (it Itinerary) ActivityCount() int {
	n := 0
	for _, d := range it.Days {
		n += len(d.Activities)
	}
	return n
}

// Email processing states.
const (
	EmailFetched                = "fetched"
	EmailSkipped                = "skipped"
	EmailProcessed              = "processed"
	EmailAwaitingClassification = "awaiting_classification"
	EmailExported               = "exported"
)

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type VoucherRow struct {
	ID            int
	EmailID       *int
	Source        string
	SourceRef     string
	TripRef       string
	Participants  int
	DayCount      int
	ActivityCount int
	CreatedAt     string
	Itinerary     Itinerary
}

// Decision is an operator answer remembered for an excursion text.
type Decision struct {
	Key       string
	Excursion string
	Category  Category
	Origin    string
	UpdatedAt string
}

type PendingDecision struct {
	ID        string
	EmailID   *int
	Key       string
	Excursion string
	CreatedAt string
}
