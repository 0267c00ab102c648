package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Class 10A - Academic Reports",
		Headers: []string{"Roll No", "Name", "Math", "Grade"},
		Rows: []map[string]string{
			{"Roll No": "1", "Name": "Asha, K", "Math": "95", "Grade": "A+"},
			{"Roll No": "2", "Name": "Ravi", "Math": "30", "Grade": "F"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Roll No,Name,Math,Grade", lines[0])
	assert.Equal(t, `1,"Asha, K",95,A+`, lines[1])
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestColumnWidthsSumToTotal(t *testing.T) {
	var sum float64
	for _, w := range columnWidths(11, 277) {
		sum += w
	}
	assert.InDelta(t, 277, sum, 0.001)
}
