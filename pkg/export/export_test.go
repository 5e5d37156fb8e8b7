package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Collections",
		Summary: []Field{{Label: "Total collected", Value: "100.00"}},
		Headers: []string{"Entity", "Paid", "Status"},
		Rows: []map[string]string{
			{"Entity": "Jane Doe", "Paid": "100.00", "Status": "paid"},
			{"Entity": "John Roe", "Paid": "0.00", "Status": "unpaid"},
		},
	}
}

func TestCSVExporterRendersTableOnly(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Entity,Paid,Status", lines[0])
	assert.Equal(t, "Jane Doe,100.00,paid", lines[1])
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporterWritesNumbers(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	label, err := f.GetCellValue(xlsxSheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "Total collected", label)

	header, err := f.GetCellValue(xlsxSheet, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Entity", header)

	paid, err := f.GetCellValue(xlsxSheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "100", paid)
}

func TestRenderersRequireHeaders(t *testing.T) {
	for _, format := range []string{FormatCSV, FormatPDF, FormatXLSX} {
		r, err := ForFormat(format)
		require.NoError(t, err)
		_, err = r.Render(Dataset{})
		assert.Error(t, err, format)
	}
	_, err := ForFormat("docx")
	assert.Error(t, err)
}
