package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func rosterDataset() Dataset {
	return Dataset{
		Headers: []string{"NIS", "Nama", "Kelas"},
		Rows: []map[string]string{
			{"NIS": "24001", "Nama": "Ahmad", "Kelas": "X TKJ 1"},
			{"NIS": "24002", "Nama": `Budi "Bud"; Santoso`, "Kelas": "X TKJ 1"},
			{"NIS": "24003", "Nama": "Citra\nDewi", "Kelas": "XI RPL 2"},
		},
	}
}

func TestCSVExporterWritesBOMAndSemicolons(t *testing.T) {
	out, err := NewCSVExporter().Render(rosterDataset())
	require.NoError(t, err)

	text := string(out)
	require.True(t, strings.HasPrefix(text, ByteOrderMark))
	lines := strings.SplitN(strings.TrimPrefix(text, ByteOrderMark), "\n", 2)
	assert.Equal(t, "NIS;Nama;Kelas", lines[0])
	assert.Contains(t, text, `"Budi ""Bud""; Santoso"`)
	assert.Contains(t, text, "\"Citra\nDewi\"")
}

func TestCSVExporterRoundTripsThroughStandardParser(t *testing.T) {
	data := rosterDataset()
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, []byte(ByteOrderMark))))
	reader.Comma = Delimiter
	records, err := reader.ReadAll()
	require.NoError(t, err)

	require.Len(t, records, len(data.Rows)+1)
	assert.Equal(t, data.Headers, records[0])
	assert.Equal(t, data.Records(), records[1:])
}

func TestCSVExporterWritesCRLFCellsAsLF(t *testing.T) {
	data := Dataset{
		Headers: []string{"NIS", "Catatan"},
		Rows:    []map[string]string{{"NIS": "24001", "Catatan": "Baris1\r\nBaris2"}},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "\r\n")

	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(out, []byte(ByteOrderMark))))
	reader.Comma = Delimiter
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"24001", "Baris1\nBaris2"}, records[1])
	assert.Equal(t, "Baris1\r\nBaris2", data.Rows[0]["Catatan"])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRendersDocument(t *testing.T) {
	out, err := NewPDFExporter().RenderDocument(Document{
		Title:    "Laporan Bulanan",
		Subtitle: "Juli 2024",
		Sections: []Section{
			{Title: "Poin Pelanggaran", Dataset: rosterDataset()},
			{Title: "Kosong", Dataset: Dataset{Headers: []string{"A"}}, Empty: "Tidak ada data"},
		},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "title")
	assert.Error(t, err)
}

func TestXLSXExporterRoundTrip(t *testing.T) {
	data := rosterDataset()
	out, err := NewXLSXExporter("Siswa").Render(data)
	require.NoError(t, err)

	rows, err := readSheet(t, out)
	require.NoError(t, err)
	require.Len(t, rows, len(data.Rows)+1)
	assert.Equal(t, data.Headers, rows[0])
	assert.Equal(t, []string{"24001", "Ahmad", "X TKJ 1"}, rows[1])
}

func readSheet(t *testing.T, data []byte) ([][]string, error) {
	t.Helper()
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return file.GetRows(file.GetSheetName(0))
}
