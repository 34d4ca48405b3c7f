// Package export renders tabular reports as CSV or PDF.
package export

import (
	"fmt"
	"strings"
)

// Format selects the rendered document type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat maps a query value to a Format. An empty value means CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Dataset defines tabular export content. Each row holds one cell per header.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Render produces the document bytes for the dataset.
func Render(format Format, data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("%s export requires at least one header", format)
	}
	for i, row := range data.Rows {
		if len(row) != len(data.Headers) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(data.Headers))
		}
	}
	switch format {
	case FormatCSV:
		return renderCSV(data)
	case FormatPDF:
		return renderPDF(data)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
