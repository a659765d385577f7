package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"alfredoptarigan/cv-parser/internal/metrics"
	"alfredoptarigan/cv-parser/internal/repositories"
)

// ParseService runs one persisted parse job end to end: parse, optionally
// enrich and merge, store the outcome and index it.
type ParseService interface {
	Process(ctx context.Context, jobID uuid.UUID) error
}

type ParseServiceDeps struct {
	JobRepo  repositories.ParseJobRepository
	DocRepo  repositories.DocumentRepository
	Storage  StorageService
	Parser   ResumeParser
	Enricher Enricher
	Index    CandidateIndex
	Chunker  *SectionChunker
	Metrics  *metrics.PipelineMetrics
	Logger   *slog.Logger
}

type parseService struct {
	ParseServiceDeps
	merge     *MergePolicy
	validator *CompletenessValidator
}

func NewParseService(deps ParseServiceDeps) ParseService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Chunker == nil {
		deps.Chunker = NewSectionChunker(0, 0)
	}
	return &parseService{
		ParseServiceDeps: deps,
		merge:            NewMergePolicy(),
		validator:        NewCompletenessValidator(),
	}
}

func (s *parseService) Process(ctx context.Context, jobID uuid.UUID) error {
	claimed, err := s.JobRepo.Claim(jobID)
	if err != nil {
		return err
	}
	if !claimed {
		s.Logger.Debug("parse job already claimed", "job_id", jobID)
		return nil
	}

	s.Logger.Info("🔄 Starting parse", "job_id", jobID)

	job, err := s.JobRepo.FindByID(jobID)
	if err != nil {
		return s.fail(jobID, err)
	}

	doc, err := s.DocRepo.FindByID(job.DocumentID)
	if err != nil {
		return s.fail(jobID, fmt.Errorf("document not found: %w", err))
	}

	data, err := s.Storage.ReadFile(doc.FilePath)
	if err != nil {
		return s.fail(jobID, err)
	}

	result, err := s.Parser.Parse(ctx, data, doc.OriginalFileName)
	if err != nil {
		return s.fail(jobID, fmt.Errorf("failed to parse résumé: %w", err))
	}

	record, report := result.Record, result.Validation
	enriched := false

	switch {
	case !report.NeedsFallback:
		s.Metrics.ObserveEnrichment("skipped")
	case s.Enricher == nil:
		s.Metrics.ObserveEnrichment("disabled")
	default:
		missing := report.MissingFields()
		s.Logger.Info("🤖 Requesting enrichment", "job_id", jobID, "missing", missing)

		supplement, err := s.Enricher.Complete(ctx, missing, result.Text)
		if err != nil {
			s.Metrics.ObserveEnrichment("unavailable")
			s.Logger.Warn("⚠️ Enrichment unavailable, keeping extracted record",
				"job_id", jobID,
				"error", err,
				"unavailable", errors.Is(err, ErrEnrichmentUnavailable),
			)
			break
		}

		record = s.merge.Merge(record, supplement, missing)
		report = s.validator.Validate(record)
		enriched = true
		s.Metrics.ObserveEnrichment("applied")
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return s.fail(jobID, fmt.Errorf("failed to encode record: %w", err))
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return s.fail(jobID, fmt.Errorf("failed to encode validation: %w", err))
	}

	if err := s.JobRepo.UpdateResult(jobID, &repositories.ParseJobResult{
		Backend:    string(result.Extraction.BackendUsed),
		Confidence: result.Extraction.Confidence,
		Enriched:   enriched,
		Record:     string(recordJSON),
		Validation: string(reportJSON),
	}); err != nil {
		return s.fail(jobID, fmt.Errorf("failed to save results: %w", err))
	}

	if s.Index != nil {
		chunks := s.Chunker.Chunks(result.Sections, result.Text)
		if err := s.Index.IndexResume(ctx, doc.ID, record, chunks); err != nil {
			s.Logger.Warn("⚠️ Failed to index résumé", "job_id", jobID, "error", err)
		}
	}

	s.Logger.Info("✅ Parse completed",
		"job_id", jobID,
		"backend", result.Extraction.BackendUsed,
		"completeness", report.CompletenessScore,
		"enriched", enriched,
	)
	return nil
}

func (s *parseService) fail(jobID uuid.UUID, err error) error {
	if uerr := s.JobRepo.UpdateError(jobID, err.Error()); uerr != nil {
		s.Logger.Error("failed to record job error", "job_id", jobID, "error", uerr)
	}
	return err
}
