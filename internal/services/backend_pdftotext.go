package services

import (
	"context"
	"fmt"
	"strings"

	"alfredoptarigan/cv-parser/internal/models"
)

// PdftotextBackend shells out to poppler's pdftotext in layout mode.
type PdftotextBackend struct {
	binary string
	runner Runner
}

func NewPdftotextBackend(binary string, runner Runner) *PdftotextBackend {
	if binary == "" {
		binary = "pdftotext"
	}
	return &PdftotextBackend{binary: binary, runner: runner}
}

func (b *PdftotextBackend) Name() models.BackendID {
	return models.BackendPdftotext
}

func (b *PdftotextBackend) Available() bool {
	return b.runner != nil && b.runner.Available(b.binary)
}

func (b *PdftotextBackend) Attempt(ctx context.Context, data []byte) (*models.ExtractionResult, error) {
	if !b.Available() {
		return nil, fmt.Errorf("%s: %w", b.binary, errBackendUnavailable)
	}

	path, cleanup, err := writeTempDocument(data, "cvparser-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to stage PDF: %w", err)
	}
	defer cleanup()

	stdout, stderr, err := b.runner.Run(ctx, b.binary, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w (stderr=%q)", err, truncate(string(stderr), 512))
	}

	raw := string(stdout)
	pages := strings.Count(raw, "\f")
	if pages == 0 && strings.TrimSpace(raw) != "" {
		pages = 1
	}

	return &models.ExtractionResult{
		Text:      strings.ReplaceAll(raw, "\f", "\n\n"),
		PageCount: pages,
		HasTables: looksTabular(raw),
	}, nil
}

// looksTabular reports layout output with at least three lines split into
// several wide-gapped columns.
func looksTabular(text string) bool {
	rows := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.Count(strings.TrimSpace(line), "   ") >= 2 {
			rows++
			if rows >= 3 {
				return true
			}
		}
	}
	return false
}
