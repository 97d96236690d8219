package pipeline

import (
	"errors"
	"strings"
)

var ErrEmptyInput = errors.New("itinerary sheet has no data rows")

// RawRecord maps a header name to the cell value of one data row.
type RawRecord map[string]string

// Field returns "" for columns the sheet does not have.
func (r RawRecord) Field(column string) string {
	return r[column]
}

type Table struct {
	Columns []string
	Records []RawRecord
}

// Tabularize keys every data row by the header row. Short rows are padded with
// empty strings, extra cells are dropped. When two header cells carry the same
// name the rightmost column wins.
func Tabularize(grid [][]string) (Table, error) {
	if len(grid) < 2 {
		return Table{}, ErrEmptyInput
	}

	columns := make([]string, len(grid[0]))
	for i, h := range grid[0] {
		columns[i] = strings.TrimSpace(h)
	}

	records := make([]RawRecord, 0, len(grid)-1)
	for _, row := range grid[1:] {
		rec := make(RawRecord, len(columns))
		for i, name := range columns {
			rec[name] = cellAt(row, i)
		}
		records = append(records, rec)
	}
	return Table{Columns: columns, Records: records}, nil
}

func cellAt(row []string, idx int) string {
	if idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}
