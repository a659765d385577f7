package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-parser/internal/models"
	"alfredoptarigan/cv-parser/internal/repositories"
)

type memJobRepo struct {
	jobs      map[uuid.UUID]*models.ParseJob
	claimed   bool
	result    *repositories.ParseJobResult
	errorMsg  string
	updateErr error
}

func (r *memJobRepo) Create(job *models.ParseJob) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *memJobRepo) FindByID(id uuid.UUID) (*models.ParseJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("parse job %s: %w", id, repositories.ErrNotFound)
	}
	return job, nil
}

func (r *memJobRepo) Claim(uuid.UUID) (bool, error) { return r.claimed, nil }

func (r *memJobRepo) UpdateResult(_ uuid.UUID, result *repositories.ParseJobResult) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.result = result
	return nil
}

func (r *memJobRepo) UpdateError(_ uuid.UUID, errorMsg string) error {
	r.errorMsg = errorMsg
	return nil
}

func (r *memJobRepo) FindPendingJobs(int) ([]models.ParseJob, error) { return nil, nil }

type memDocRepo struct {
	docs map[uuid.UUID]*models.Document
}

func (r *memDocRepo) Create(doc *models.Document) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memDocRepo) FindByID(id uuid.UUID) (*models.Document, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, repositories.ErrNotFound)
	}
	return doc, nil
}

func (r *memDocRepo) FindByIDs([]uuid.UUID) ([]models.Document, error) { return nil, nil }

type memStorage struct {
	files map[string][]byte
}

func (s *memStorage) SaveFile(*multipart.FileHeader) (string, string, error) {
	return "", "", errors.New("not supported")
}

func (s *memStorage) ReadFile(path string) ([]byte, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("failed to read file: %s", path)
	}
	return data, nil
}

func (s *memStorage) GetFilePath(filename string) string { return filename }
func (s *memStorage) DeleteFile(string) error            { return nil }
func (s *memStorage) EnsureUploadDir() error             { return nil }

type stubParser struct {
	result *ParseResult
	err    error
	calls  int
}

func (p *stubParser) Parse(context.Context, []byte, string) (*ParseResult, error) {
	p.calls++
	return p.result, p.err
}

func (p *stubParser) ParseText(string) *ParseResult { return p.result }

type stubEnricher struct {
	record  *models.Resume
	err     error
	missing []string
	calls   int
}

func (e *stubEnricher) Complete(_ context.Context, missing []string, _ string) (*models.Resume, error) {
	e.calls++
	e.missing = missing
	return e.record, e.err
}

type stubIndex struct {
	documentID uuid.UUID
	chunks     []Chunk
	err        error
}

func (i *stubIndex) InitCollection(context.Context) error { return nil }

func (i *stubIndex) IndexResume(_ context.Context, documentID uuid.UUID, _ *models.Resume, chunks []Chunk) error {
	i.documentID = documentID
	i.chunks = chunks
	return i.err
}

func (i *stubIndex) Search(context.Context, string, string, int) ([]SearchResult, error) {
	return nil, nil
}

func (i *stubIndex) DeleteDocument(context.Context, uuid.UUID) error { return nil }

type parseFixture struct {
	jobID  uuid.UUID
	doc    *models.Document
	jobs   *memJobRepo
	parser *stubParser
	deps   ParseServiceDeps
}

func newParseFixture(result *ParseResult) *parseFixture {
	doc := &models.Document{ID: uuid.New(), OriginalFileName: "jane.pdf", FilePath: "uploads/cv_jane.pdf"}
	job := &models.ParseJob{ID: uuid.New(), DocumentID: doc.ID, Status: models.StatusQueued}

	jobs := &memJobRepo{jobs: map[uuid.UUID]*models.ParseJob{job.ID: job}, claimed: true}
	parser := &stubParser{result: result}

	return &parseFixture{
		jobID:  job.ID,
		doc:    doc,
		jobs:   jobs,
		parser: parser,
		deps: ParseServiceDeps{
			JobRepo: jobs,
			DocRepo: &memDocRepo{docs: map[uuid.UUID]*models.Document{doc.ID: doc}},
			Storage: &memStorage{files: map[string][]byte{doc.FilePath: []byte("%PDF-1.7")}},
			Parser:  parser,
		},
	}
}

// parsedRecord builds a parse result around record, as the parser would
// report it.
func parsedRecord(record *models.Resume) *ParseResult {
	sections := models.NewSectionMap()
	sections.Set(models.SectionSkills, "Go, Python")

	return &ParseResult{
		Extraction: &models.ExtractionResult{BackendUsed: models.BackendPdftotext, Confidence: 0.95},
		Text:       "Jane Doe\njane@example.com\nSkills\nGo, Python",
		Sections:   sections,
		Record:     record,
		Validation: NewCompletenessValidator().Validate(record),
	}
}

func savedRecord(t *testing.T, result *repositories.ParseJobResult) (*models.Resume, *models.ValidationReport) {
	t.Helper()
	require.NotNil(t, result)

	var record models.Resume
	require.NoError(t, json.Unmarshal([]byte(result.Record), &record))
	var report models.ValidationReport
	require.NoError(t, json.Unmarshal([]byte(result.Validation), &report))
	return &record, &report
}

func TestProcessCompleteRecordSkipsEnrichment(t *testing.T) {
	f := newParseFixture(parsedRecord(&models.Resume{
		Name:  "Jane Doe",
		Email: "jane@example.com",
		Phone: "+1 415 555 2671",
	}))
	enricher := &stubEnricher{}
	index := &stubIndex{}
	f.deps.Enricher = enricher
	f.deps.Index = index

	err := NewParseService(f.deps).Process(context.Background(), f.jobID)

	require.NoError(t, err)
	require.Zero(t, enricher.calls)
	require.Equal(t, "pdftotext", f.jobs.result.Backend)
	require.Equal(t, 0.95, f.jobs.result.Confidence)
	require.False(t, f.jobs.result.Enriched)

	record, report := savedRecord(t, f.jobs.result)
	require.Equal(t, "Jane Doe", record.Name)
	require.True(t, report.IsComplete)

	require.Equal(t, f.doc.ID, index.documentID)
	require.Equal(t, []Chunk{{Section: "skills", Text: "Go, Python"}}, index.chunks)
}

func TestProcessEnrichesMissingCriticalFields(t *testing.T) {
	f := newParseFixture(parsedRecord(&models.Resume{Name: "Jane Doe", Email: "jane@example.com"}))
	enricher := &stubEnricher{record: &models.Resume{
		Name:  "Someone Else",
		Phone: "+1 415 555 2671",
	}}
	f.deps.Enricher = enricher

	err := NewParseService(f.deps).Process(context.Background(), f.jobID)

	require.NoError(t, err)
	require.Equal(t, 1, enricher.calls)
	require.Equal(t, []string{"phone", "skills", "experience", "education"}, enricher.missing)
	require.True(t, f.jobs.result.Enriched)

	record, report := savedRecord(t, f.jobs.result)
	require.Equal(t, "Jane Doe", record.Name)
	require.Equal(t, "+1 415 555 2671", record.Phone)
	require.False(t, report.NeedsFallback)
	require.Empty(t, report.MissingCritical)
}

func TestProcessKeepsRecordWhenEnrichmentUnavailable(t *testing.T) {
	f := newParseFixture(parsedRecord(&models.Resume{Name: "Jane Doe"}))
	f.deps.Enricher = &stubEnricher{err: fmt.Errorf("%w: quota exceeded", ErrEnrichmentUnavailable)}

	err := NewParseService(f.deps).Process(context.Background(), f.jobID)

	require.NoError(t, err)
	require.False(t, f.jobs.result.Enriched)

	record, report := savedRecord(t, f.jobs.result)
	require.Equal(t, "Jane Doe", record.Name)
	require.Empty(t, record.Email)
	require.True(t, report.NeedsFallback)
	require.Equal(t, []string{"email", "phone"}, report.MissingCritical)
}

func TestProcessWithoutEnricher(t *testing.T) {
	f := newParseFixture(parsedRecord(&models.Resume{}))

	require.NoError(t, NewParseService(f.deps).Process(context.Background(), f.jobID))
	require.False(t, f.jobs.result.Enriched)
	require.Empty(t, f.jobs.errorMsg)
}

func TestProcessSkipsUnclaimedJob(t *testing.T) {
	f := newParseFixture(parsedRecord(&models.Resume{}))
	f.jobs.claimed = false

	require.NoError(t, NewParseService(f.deps).Process(context.Background(), f.jobID))
	require.Zero(t, f.parser.calls)
	require.Nil(t, f.jobs.result)
}

func TestProcessRecordsFailures(t *testing.T) {
	t.Run("parse error", func(t *testing.T) {
		f := newParseFixture(nil)
		f.parser.err = &ExtractionFailure{
			Filename: "jane.pdf",
			Attempts: []StrategyAttempt{{Strategy: "pdftotext", Err: errors.New("exit status 1")}},
		}

		err := NewParseService(f.deps).Process(context.Background(), f.jobID)

		require.ErrorIs(t, err, ErrExtractionFailed)
		require.Contains(t, f.jobs.errorMsg, "failed to parse résumé")
		require.Contains(t, f.jobs.errorMsg, "pdftotext: exit status 1")
		require.Nil(t, f.jobs.result)
	})

	t.Run("missing document", func(t *testing.T) {
		f := newParseFixture(nil)
		f.deps.DocRepo = &memDocRepo{docs: map[uuid.UUID]*models.Document{}}

		err := NewParseService(f.deps).Process(context.Background(), f.jobID)

		require.ErrorIs(t, err, repositories.ErrNotFound)
		require.Contains(t, f.jobs.errorMsg, "document not found")
		require.Zero(t, f.parser.calls)
	})

	t.Run("unreadable file", func(t *testing.T) {
		f := newParseFixture(nil)
		f.deps.Storage = &memStorage{files: map[string][]byte{}}

		err := NewParseService(f.deps).Process(context.Background(), f.jobID)

		require.Error(t, err)
		require.Contains(t, f.jobs.errorMsg, "failed to read file")
	})

	t.Run("result not saved", func(t *testing.T) {
		f := newParseFixture(parsedRecord(&models.Resume{Name: "Jane Doe"}))
		f.jobs.updateErr = errors.New("connection reset")

		err := NewParseService(f.deps).Process(context.Background(), f.jobID)

		require.ErrorContains(t, err, "failed to save results")
		require.Contains(t, f.jobs.errorMsg, "failed to save results: connection reset")
		require.Nil(t, f.jobs.result)
	})
}

func TestProcessIgnoresIndexErrors(t *testing.T) {
	f := newParseFixture(parsedRecord(&models.Resume{Name: "Jane Doe"}))
	f.deps.Index = &stubIndex{err: errors.New("qdrant unreachable")}

	require.NoError(t, NewParseService(f.deps).Process(context.Background(), f.jobID))
	require.NotNil(t, f.jobs.result)
	require.Empty(t, f.jobs.errorMsg)
}
