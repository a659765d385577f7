package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"alfredoptarigan/cv-parser/internal/models"
)

// PlainPDFBackend is the last pure-Go PDF strategy: it asks ledongthuc/pdf
// for each page's plain text.
type PlainPDFBackend struct{}

func NewPlainPDFBackend() *PlainPDFBackend {
	return &PlainPDFBackend{}
}

func (p *PlainPDFBackend) Name() models.BackendID {
	return models.BackendPlainPDF
}

func (p *PlainPDFBackend) Attempt(ctx context.Context, data []byte) (*models.ExtractionResult, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// skip unreadable pages, the rest may still be usable
			continue
		}

		textBuilder.WriteString(text)
		textBuilder.WriteString("\n\n")
	}

	text := textBuilder.String()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text content found in PDF")
	}

	return &models.ExtractionResult{
		Text:      text,
		PageCount: totalPage,
	}, nil
}
