package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// Section is one titled table within a PDF document.
type Section struct {
	Title   string
	Dataset Dataset
	// Empty is printed instead of a table when the dataset has no rows.
	Empty string
}

// Document describes a multi-section PDF.
type Document struct {
	Title    string
	Subtitle string
	Sections []Section
}

// PDFExporter renders datasets into tabular PDFs.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a single-table PDF with an optional title.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	return e.RenderDocument(Document{Title: title, Sections: []Section{{Dataset: data}}})
}

// RenderDocument writes every section in order, switching to landscape for wide tables.
func (e *PDFExporter) RenderDocument(doc Document) ([]byte, error) {
	orientation := "P"
	for _, section := range doc.Sections {
		if len(section.Dataset.Headers) > 6 {
			orientation = "L"
			break
		}
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(strings.ToUpper(doc.Title)), "", 1, "C", false, 0, "")
	}
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(doc.Subtitle), "", 1, "C", false, 0, "")
	}
	if doc.Title != "" || doc.Subtitle != "" {
		pdf.Ln(4)
	}

	for _, section := range doc.Sections {
		if section.Title != "" {
			pdf.SetFont("Arial", "B", 11)
			pdf.CellFormat(0, 8, tr(section.Title), "", 1, "L", false, 0, "")
		}
		headers := section.Dataset.Headers
		if len(headers) == 0 {
			continue
		}
		if len(section.Dataset.Rows) == 0 && section.Empty != "" {
			pdf.SetFont("Arial", "I", 9)
			pdf.CellFormat(0, 7, tr(section.Empty), "", 1, "L", false, 0, "")
			pdf.Ln(3)
			continue
		}

		colWidth := usable / float64(len(headers))
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for _, header := range headers {
			pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, record := range section.Dataset.Records() {
			for _, value := range record {
				pdf.CellFormat(colWidth, 7, tr(value), "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
