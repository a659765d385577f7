package services

import (
	"context"
	"log/slog"
	"time"

	"alfredoptarigan/cv-parser/internal/metrics"
	"alfredoptarigan/cv-parser/internal/models"
)

// ParseResult carries every intermediate product of one parse so callers
// can persist or inspect them.
type ParseResult struct {
	Extraction *models.ExtractionResult
	Text       string
	Sections   *models.SectionMap
	Entities   *models.EntityBag
	Record     *models.Resume
	Validation *models.ValidationReport
}

// ResumeParser runs the in-process pipeline: extract, normalize, segment,
// extract entities, build the record and validate it. It performs no
// network calls.
type ResumeParser interface {
	Parse(ctx context.Context, data []byte, filename string) (*ParseResult, error)
	ParseText(text string) *ParseResult
}

type resumeParser struct {
	orchestrator *ExtractionOrchestrator
	normalizer   *TextNormalizer
	segmenter    *SectionSegmenter
	extractor    *EntityExtractor
	builder      *RecordBuilder
	validator    *CompletenessValidator
	metrics      *metrics.PipelineMetrics
	logger       *slog.Logger
}

func NewResumeParser(
	orchestrator *ExtractionOrchestrator,
	vocab *Vocabulary,
	caps Capabilities,
	pipelineMetrics *metrics.PipelineMetrics,
	logger *slog.Logger,
) ResumeParser {
	if logger == nil {
		logger = slog.Default()
	}
	return &resumeParser{
		orchestrator: orchestrator,
		normalizer:   NewTextNormalizer(logger),
		segmenter:    NewSectionSegmenter(vocab, logger),
		extractor:    NewEntityExtractor(vocab, caps, logger),
		builder:      NewRecordBuilder(vocab),
		validator:    NewCompletenessValidator(),
		metrics:      pipelineMetrics,
		logger:       logger,
	}
}

func (p *resumeParser) Parse(ctx context.Context, data []byte, filename string) (*ParseResult, error) {
	start := time.Now()

	extraction, err := p.orchestrator.Extract(ctx, data, filename)
	if err != nil {
		p.metrics.ObserveParse(time.Since(start), err)
		return nil, err
	}

	result := p.ParseText(extraction.Text)
	result.Extraction = extraction

	p.metrics.ObserveParse(time.Since(start), nil)
	p.logger.Info("📄 Résumé parsed",
		"file", filename,
		"backend", extraction.BackendUsed,
		"sections", result.Sections.Len(),
		"completeness", result.Validation.CompletenessScore,
		"missing", result.Validation.MissingFields(),
	)
	return result, nil
}

// ParseText runs everything after extraction on already extracted text.
func (p *resumeParser) ParseText(text string) *ParseResult {
	normalized := p.normalizer.Normalize(text)
	sections := p.segmenter.Segment(normalized)
	entities := p.extractor.Extract(normalized)
	record := p.builder.Build(entities, sections, normalized)
	report := p.validator.Validate(record)

	p.metrics.ObserveCompleteness(report.CompletenessScore)

	return &ParseResult{
		Text:       normalized,
		Sections:   sections,
		Entities:   entities,
		Record:     record,
		Validation: report,
	}
}
