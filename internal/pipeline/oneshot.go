package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tripvoucher/internal"
)

// ReadGridFromInput loads the itinerary grid of a local file. inputType is
// one of xlsx, csv, html or eml.
func ReadGridFromInput(inputType string, path string) ([][]string, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadGrid(inputType, blob)
}

func ReadGrid(inputType string, blob []byte) ([][]string, error) {
	switch inputType {
	case "xlsx":
		return ReadXLSXGrid(blob)
	case "csv":
		return ReadCSVGrid(blob)
	case "html":
		return ReadHTMLTableGrid(string(blob))
	case "eml":
		mail, err := ReadEmailGrid(blob)
		if err != nil {
			return nil, err
		}
		return mail.Grid, nil
	default:
		return nil, fmt.Errorf("unsupported input type: %s", inputType)
	}
}

// InputTypeFromName guesses the input type from a file extension.
func InputTypeFromName(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return "xlsx"
	case ".csv":
		return "csv"
	case ".html", ".htm":
		return "html"
	case ".eml":
		return "eml"
	default:
		return ""
	}
}

func SourceForType(inputType string) internal.ItemSource {
	switch inputType {
	case "csv":
		return internal.SourceCSV
	case "html":
		return internal.SourceHTMLTable
	case "eml":
		return internal.SourceEmail
	default:
		return internal.SourceXLSX
	}
}
