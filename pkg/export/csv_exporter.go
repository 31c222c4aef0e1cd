package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// ByteOrderMark prefixes CSV output so spreadsheet tools detect UTF-8.
const ByteOrderMark = "\ufeff"

// Delimiter separates CSV cells; regional spreadsheet defaults expect a semicolon.
const Delimiter = ';'

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Records flattens the dataset rows in header order.
func (d Dataset) Records() [][]string {
	records := make([][]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		record := make([]string, len(d.Headers))
		for i, header := range d.Headers {
			record[i] = row[header]
		}
		records = append(records, record)
	}
	return records
}

// CSVExporter renders Dataset records into semicolon separated CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces BOM-prefixed CSV. Cells holding the delimiter, quotes or line breaks are quoted.
// CRLF inside a cell is written as LF: CSV readers fold it to LF anyway, so LF is what parses back.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	buf.WriteString(ByteOrderMark)

	writer := csv.NewWriter(buf)
	writer.Comma = Delimiter
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	records := data.Records()
	for _, record := range records {
		for i, cell := range record {
			record[i] = strings.ReplaceAll(cell, "\r\n", "\n")
		}
	}
	if err := writer.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}
