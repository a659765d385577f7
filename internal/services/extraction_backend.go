package services

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"alfredoptarigan/cv-parser/internal/models"
)

// ExtractionBackend is one document-to-text strategy. Implementations must not
// retain or mutate data; every attempt reads it from the start.
type ExtractionBackend interface {
	Name() models.BackendID
	Attempt(ctx context.Context, data []byte) (*models.ExtractionResult, error)
}

var errBackendUnavailable = errors.New("backend unavailable")

// Base confidence per backend, ordered by expected fidelity.
var backendRankBase = map[models.BackendID]float64{
	models.BackendPdftotext: 0.95,
	models.BackendDocx:      0.95,
	models.BackendPdfcpu:    0.85,
	models.BackendPlainPDF:  0.75,
	models.BackendOCR:       0.60,
}

// richnessChars is the character count at which output counts as fully rich.
const richnessChars = 1500

// extractionConfidence scales the backend's rank by how much text it produced.
func extractionConfidence(backend models.BackendID, charCount int) float64 {
	base, ok := backendRankBase[backend]
	if !ok {
		base = 0.5
	}
	richness := math.Min(1, float64(charCount)/richnessChars)
	return math.Round(base*(0.5+0.5*richness)*100) / 100
}

func countWords(text string) int {
	return len(strings.Fields(text))
}

func countChars(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

// writeTempDocument spills data to a temporary file for command line tools.
func writeTempDocument(data []byte, pattern string) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	if _, err := f.Write(data); err != nil {
		f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
