package export

import (
	"fmt"
	"strings"
)

type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var Formats = []Format{FormatText, FormatCSV, FormatJSON}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "txt", "readable":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (valid: text, csv, json)", s)
}

// File is a finished export ready to be downloaded or written to disk.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

func Filename(f Format, year int) string {
	switch f {
	case FormatText:
		return fmt.Sprintf("march_madness_%d_READABLE_BRACKETS.txt", year)
	case FormatCSV:
		return fmt.Sprintf("march_madness_%d_summary.csv", year)
	case FormatJSON:
		return fmt.Sprintf("march_madness_%d_full_data.json", year)
	}
	return ""
}

func BracketFilename(year, id int) string {
	return fmt.Sprintf("march_madness_%d_bracket_%d.txt", year, id)
}

func ContentType(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	}
	return "text/plain"
}
