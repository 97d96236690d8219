package pipeline

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"

	"tripvoucher/internal"
	"tripvoucher/internal/util"
)

var ErrNoItinerary = errors.New("no itinerary table found")

// MailGrid is what an itinerary email yields: its header fields plus the grid
// of the table the itinerary was read from.
type MailGrid struct {
	Subject     string
	Text        string
	HTML        string
	Attachments []string
	Grid        [][]string
	Source      internal.ItemSource
	Origin      string
}

// ReadXLSXGrid returns the cell grid of the first sheet.
func ReadXLSXGrid(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func ReadCSVGrid(content []byte) ([][]string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	grid := [][]string{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return grid, nil
		}
		if err != nil {
			return nil, err
		}
		grid = append(grid, row)
	}
}

// ReadHTMLTableGrid returns the first table that has a header row and at
// least one data row. A table carrying the Place column is preferred.
func ReadHTMLTableGrid(html string) ([][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	var first, itinerary [][]string
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return true
		}
		grid := make([][]string, 0, rows.Length())
		rows.Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cell.Find("br").ReplaceWithHtml("\n")
				cells = append(cells, util.NormalizeLines(cell.Text()))
			})
			grid = append(grid, cells)
		})
		if first == nil {
			first = grid
		}
		if hasItineraryHeader(grid[0]) {
			itinerary = grid
			return false
		}
		return true
	})

	switch {
	case itinerary != nil:
		return itinerary, nil
	case first != nil:
		return first, nil
	default:
		return nil, ErrNoItinerary
	}
}

// ReadEmailGrid takes the first spreadsheet or CSV attachment that parses,
// then falls back to a table in the HTML body.
func ReadEmailGrid(raw []byte) (MailGrid, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return MailGrid{}, err
	}

	out := MailGrid{
		Subject:     env.GetHeader("Subject"),
		Text:        env.Text,
		HTML:        env.HTML,
		Attachments: make([]string, 0, len(env.Attachments)),
	}
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		out.Attachments = append(out.Attachments, filename)
		if out.Grid != nil {
			continue
		}

		var grid [][]string
		var source internal.ItemSource
		switch lower := strings.ToLower(filename); {
		case strings.HasSuffix(lower, ".xlsx"):
			grid, err = ReadXLSXGrid(att.Content)
			source = internal.SourceXLSX
		case strings.HasSuffix(lower, ".csv"):
			grid, err = ReadCSVGrid(att.Content)
			source = internal.SourceCSV
		default:
			continue
		}
		if err != nil || len(grid) < 2 {
			continue
		}
		out.Grid, out.Source, out.Origin = grid, source, filename
	}
	if out.Grid != nil {
		return out, nil
	}

	if env.HTML != "" {
		if grid, err := ReadHTMLTableGrid(env.HTML); err == nil {
			out.Grid, out.Source, out.Origin = grid, internal.SourceHTMLTable, "body"
			return out, nil
		}
	}
	return out, ErrNoItinerary
}

func hasItineraryHeader(header []string) bool {
	for _, h := range header {
		if strings.TrimSpace(h) == internal.ColPlace {
			return true
		}
	}
	return false
}
