package export

import (
	"context"
	"fmt"

	"denuncias/api/internal/report"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

type renderer func(ctx context.Context, html string) ([]byte, error)

// Service turns an aggregated report into a downloadable file.
type Service struct {
	pdf  renderer
	docx renderer
}

func NewService() *Service {
	return &Service{pdf: renderPDF, docx: renderDOCX}
}

func (s *Service) Export(ctx context.Context, rep report.Report, format Format) (*Result, error) {
	title := "Reporte de denuncias " + rep.GeneratedAt.Format("2006-01-02")
	html, err := RenderReportHTML(title, rep)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	var (
		render   renderer
		ext      string
		mimeType string
	)
	switch format {
	case FormatPDF:
		render, ext, mimeType = s.pdf, ".pdf", mimePDF
	case FormatDOCX:
		render, ext, mimeType = s.docx, ".docx", mimeDOCX
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	data, err := render(ctx, html)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Filename: sanitizeFilename(title) + ext, MimeType: mimeType}, nil
}
