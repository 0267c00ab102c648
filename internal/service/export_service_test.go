package service

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-teacher-portal/pkg/errors"
	"github.com/noah-isme/sma-teacher-portal/pkg/export"
)

func TestExportServiceRender(t *testing.T) {
	svc := NewExportService(nil, nil)
	svc.now = func() time.Time { return time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC) }
	data := export.Dataset{Title: "Class 10A Report", Headers: []string{"Name"}, Rows: []map[string]string{{"Name": "Asha"}}}

	csvFile, err := svc.Render("", "class 10A/report", data)
	require.NoError(t, err)
	assert.Equal(t, "class_10A-report_20240501_083000.csv", csvFile.Filename)
	assert.Equal(t, "Name\nAsha\n", string(csvFile.Body))

	pdfFile, err := svc.Render("PDF", "class_10A", data)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdfFile.ContentType)
	assert.True(t, bytes.HasPrefix(pdfFile.Body, []byte("%PDF-")))

	_, err = svc.Render("docx", "x", data)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "export", sanitizeFilename(" "))
	assert.Equal(t, "a_b-c", sanitizeFilename("a b/c"))
}
