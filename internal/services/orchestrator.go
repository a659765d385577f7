package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"alfredoptarigan/cv-parser/internal/metrics"
	"alfredoptarigan/cv-parser/internal/models"
)

// DocumentFormat is the container format picked from the file extension.
type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDOCX DocumentFormat = "docx"
	FormatDOC  DocumentFormat = "doc"
)

// DetectFormat maps a filename extension to a supported format.
func DetectFormat(filename string) (DocumentFormat, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".doc":
		return FormatDOC, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
}

// ImageDetector reports whether a PDF is likely a scan.
type ImageDetector interface {
	HasImageStreams(data []byte) (bool, error)
}

type OrchestratorConfig struct {
	PDFBackends   []ExtractionBackend
	WordBackends  []ExtractionBackend
	OCR           OCREngine
	ImageDetector ImageDetector
	MinTextLength int
	Metrics       *metrics.PipelineMetrics
	Logger        *slog.Logger
}

// ExtractionOrchestrator tries each backend for a format in rank order and
// accepts the first result with enough text.
type ExtractionOrchestrator struct {
	chains    map[DocumentFormat][]ExtractionBackend
	ocr       OCREngine
	images    ImageDetector
	minLength int
	metrics   *metrics.PipelineMetrics
	logger    *slog.Logger
}

func NewExtractionOrchestrator(cfg OrchestratorConfig) *ExtractionOrchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = 50
	}
	if cfg.OCR == nil {
		cfg.OCR = noopOCR{}
	}

	return &ExtractionOrchestrator{
		chains: map[DocumentFormat][]ExtractionBackend{
			FormatPDF:  cfg.PDFBackends,
			FormatDOCX: cfg.WordBackends,
			// legacy .doc files are routinely renamed .docx archives
			FormatDOC: cfg.WordBackends,
		},
		ocr:       cfg.OCR,
		images:    cfg.ImageDetector,
		minLength: cfg.MinTextLength,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Extract runs the backend chain for the file's format. Only the filename
// extension is used for dispatch.
func (o *ExtractionOrchestrator) Extract(ctx context.Context, data []byte, filename string) (*models.ExtractionResult, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	failure := &ExtractionFailure{Filename: filename}

	for _, backend := range o.chains[format] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		res, err := safeAttempt(ctx, backend, data)
		if err == nil {
			res, err = o.accept(backend.Name(), res, filename, len(failure.Attempts)+1)
		}
		o.metrics.ObserveAttempt(string(backend.Name()), err)

		if err != nil {
			o.logger.Debug("extraction strategy rejected",
				"file", filename,
				"backend", backend.Name(),
				"duration_ms", time.Since(start).Milliseconds(),
				"error", err,
			)
			failure.Attempts = append(failure.Attempts, StrategyAttempt{Strategy: string(backend.Name()), Err: err})
			continue
		}

		o.logger.Info("✅ Text extracted",
			"file", filename,
			"backend", res.BackendUsed,
			"chars", res.CharCount,
			"confidence", res.Confidence,
		)
		return res, nil
	}

	if format == FormatPDF {
		res, err := o.tryOCR(ctx, data, filename, len(failure.Attempts)+1)
		if err == nil {
			return res, nil
		}
		failure.Attempts = append(failure.Attempts, StrategyAttempt{Strategy: string(models.BackendOCR), Err: err})
	}

	o.logger.Warn("❌ No extraction strategy succeeded", "file", filename, "attempts", failure.Strategies())
	return nil, failure
}

func (o *ExtractionOrchestrator) tryOCR(ctx context.Context, data []byte, filename string, attempts int) (*models.ExtractionResult, error) {
	if !o.ocr.Available() {
		return nil, fmt.Errorf("ocr: %w", errBackendUnavailable)
	}

	if o.images != nil {
		scanned, err := o.images.HasImageStreams(data)
		switch {
		case err != nil:
			o.logger.Debug("image detection failed, attempting OCR anyway", "file", filename, "error", err)
		case !scanned:
			return nil, errors.New("no image streams, document is not a scan")
		}
	}

	o.logger.Info("🔍 Falling back to OCR", "file", filename)

	text, pages, err := o.ocr.Recognize(ctx, bytes.Clone(data))
	if err == nil {
		var res *models.ExtractionResult
		res, err = o.accept(models.BackendOCR, &models.ExtractionResult{
			Text:      text,
			PageCount: pages,
			HasImages: true,
		}, filename, attempts)
		o.metrics.ObserveAttempt(string(models.BackendOCR), err)
		return res, err
	}
	o.metrics.ObserveAttempt(string(models.BackendOCR), err)
	return nil, err
}

// accept cleans a backend's raw output and builds the final result.
func (o *ExtractionOrchestrator) accept(backend models.BackendID, raw *models.ExtractionResult, filename string, attempts int) (*models.ExtractionResult, error) {
	if raw == nil {
		return nil, errors.New("backend returned no result")
	}

	text := strings.TrimSpace(CleanExtractedText(raw.Text))
	chars := countChars(text)
	if chars < o.minLength {
		return nil, fmt.Errorf("text too short: %d chars, need %d", chars, o.minLength)
	}

	metadata := make(map[string]string, len(raw.Metadata)+3)
	for k, v := range raw.Metadata {
		metadata[k] = v
	}
	metadata["filename"] = filename
	metadata["strategy"] = string(backend)
	metadata["attempts"] = strconv.Itoa(attempts)

	return &models.ExtractionResult{
		Text:        text,
		BackendUsed: backend,
		PageCount:   raw.PageCount,
		CharCount:   chars,
		WordCount:   countWords(text),
		HasImages:   raw.HasImages,
		HasTables:   raw.HasTables,
		Confidence:  extractionConfidence(backend, chars),
		Metadata:    metadata,
	}, nil
}

// safeAttempt gives each backend its own copy of the bytes and turns a
// panic inside a third-party parser into an ordinary failure.
func safeAttempt(ctx context.Context, backend ExtractionBackend, data []byte) (res *models.ExtractionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("backend panicked: %v", r)
		}
	}()
	return backend.Attempt(ctx, bytes.Clone(data))
}
