package service

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/noah-isme/sma-teacher-portal/pkg/errors"
	"github.com/noah-isme/sma-teacher-portal/pkg/export"
)

// Export formats accepted by the report endpoints.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// Renderer turns a dataset into a downloadable document.
type Renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ExportFile is a rendered document ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService selects a renderer by format and names the output.
type ExportService struct {
	renderers map[string]Renderer
	now       func() time.Time
}

// NewExportService constructs the service; nil renderers fall back to the pkg/export defaults.
func NewExportService(csv, pdf Renderer) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		renderers: map[string]Renderer{ExportFormatCSV: csv, ExportFormatPDF: pdf},
		now:       time.Now,
	}
}

// Render produces the file for format. An empty format means CSV.
func (s *ExportService) Render(format, baseName string, data export.Dataset) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	body, err := renderer.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	name := fmt.Sprintf("%s_%s%s", sanitizeFilename(baseName), s.now().UTC().Format("20060102_150405"), renderer.Extension())
	return &ExportFile{Filename: name, ContentType: renderer.ContentType(), Body: body}, nil
}

func sanitizeFilename(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "export"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := replacer.Replace(strings.TrimSpace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
