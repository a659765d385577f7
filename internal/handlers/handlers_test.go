package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-parser/internal/models"
	"alfredoptarigan/cv-parser/internal/repositories"
	"alfredoptarigan/cv-parser/internal/services"
)

type memDocs struct {
	docs map[uuid.UUID]*models.Document
}

func (r *memDocs) Create(doc *models.Document) error {
	r.docs[doc.ID] = doc
	return nil
}

func (r *memDocs) FindByID(id uuid.UUID) (*models.Document, error) {
	if doc, ok := r.docs[id]; ok {
		return doc, nil
	}
	return nil, fmt.Errorf("document %s: %w", id, repositories.ErrNotFound)
}

func (r *memDocs) FindByIDs(ids []uuid.UUID) ([]models.Document, error) {
	var out []models.Document
	for _, id := range ids {
		if doc, ok := r.docs[id]; ok {
			out = append(out, *doc)
		}
	}
	return out, nil
}

type memJobs struct {
	jobs map[uuid.UUID]*models.ParseJob
}

func (r *memJobs) Create(job *models.ParseJob) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *memJobs) FindByID(id uuid.UUID) (*models.ParseJob, error) {
	if job, ok := r.jobs[id]; ok {
		return job, nil
	}
	return nil, fmt.Errorf("parse job %s: %w", id, repositories.ErrNotFound)
}

func (r *memJobs) Claim(uuid.UUID) (bool, error)                              { return true, nil }
func (r *memJobs) UpdateResult(uuid.UUID, *repositories.ParseJobResult) error { return nil }
func (r *memJobs) UpdateError(uuid.UUID, string) error                        { return nil }
func (r *memJobs) FindPendingJobs(int) ([]models.ParseJob, error)             { return nil, nil }

type stubWorker struct {
	enqueued []uuid.UUID
}

func (w *stubWorker) Start(context.Context)      {}
func (w *stubWorker) Stop()                      {}
func (w *stubWorker) EnqueueJob(jobID uuid.UUID) { w.enqueued = append(w.enqueued, jobID) }

type stubIndex struct {
	results []services.SearchResult
	err     error
	query   string
	section string
	limit   int
}

func (i *stubIndex) InitCollection(context.Context) error { return nil }

func (i *stubIndex) IndexResume(context.Context, uuid.UUID, *models.Resume, []services.Chunk) error {
	return nil
}

func (i *stubIndex) Search(_ context.Context, query, section string, limit int) ([]services.SearchResult, error) {
	i.query, i.section, i.limit = query, section, limit
	return i.results, i.err
}

func (i *stubIndex) DeleteDocument(context.Context, uuid.UUID) error { return nil }

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v), string(body))
}

func TestErrorHandlerMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: \".txt\"", services.ErrUnsupportedFormat), fiber.StatusUnsupportedMediaType},
		{&services.ExtractionFailure{Filename: "cv.pdf"}, fiber.StatusUnprocessableEntity},
		{fmt.Errorf("document x: %w", repositories.ErrNotFound), fiber.StatusNotFound},
		{fiber.NewError(fiber.StatusTeapot, "short and stout"), fiber.StatusTeapot},
		{errors.New("disk on fire"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			app := newTestApp()
			app.Get("/", func(c *fiber.Ctx) error { return tt.err })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
			require.NoError(t, err)
			require.Equal(t, tt.code, resp.StatusCode)

			var body map[string]any
			decodeBody(t, resp, &body)
			require.Equal(t, tt.err.Error(), body["error"])
			require.EqualValues(t, tt.code, body["code"])
		})
	}
}

func TestHandleParse(t *testing.T) {
	doc := &models.Document{ID: uuid.New()}
	docs := &memDocs{docs: map[uuid.UUID]*models.Document{doc.ID: doc}}

	tests := []struct {
		name string
		body string
		code int
	}{
		{"queued", fmt.Sprintf(`{"document_id":%q}`, doc.ID), fiber.StatusAccepted},
		{"malformed json", `{"document_id":`, fiber.StatusBadRequest},
		{"missing id", `{}`, fiber.StatusBadRequest},
		{"invalid id", `{"document_id":"abc"}`, fiber.StatusBadRequest},
		{"unknown document", fmt.Sprintf(`{"document_id":%q}`, uuid.New()), fiber.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs := &memJobs{jobs: map[uuid.UUID]*models.ParseJob{}}
			worker := &stubWorker{}

			app := newTestApp()
			app.Post("/parse", NewParseHandler(jobs, docs, worker).HandleParse)

			req := httptest.NewRequest("POST", "/parse", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tt.code, resp.StatusCode)

			if tt.code != fiber.StatusAccepted {
				require.Empty(t, worker.enqueued)
				return
			}

			var out models.ParseResponse
			decodeBody(t, resp, &out)
			require.Equal(t, "queued", out.Status)
			require.Len(t, worker.enqueued, 1)
			require.Equal(t, out.ID, worker.enqueued[0].String())
			require.Equal(t, doc.ID, jobs.jobs[worker.enqueued[0]].DocumentID)
		})
	}
}

func TestHandleGetResult(t *testing.T) {
	backend := "pdftotext"
	confidence := 0.95
	record := `{"name":"Jane Doe","email":"jane@example.com","phone":"","skills":["Go"]}`
	validation := `{"is_complete":false,"needs_ai_fallback":true,"missing_critical":["phone"],"missing_important":[],"completeness_score":83.3}`
	failure := "extraction failed for cv.pdf"
	broken := "{"

	completed := &models.ParseJob{ID: uuid.New(), Status: models.StatusCompleted, Backend: &backend, Confidence: &confidence, Record: &record, Validation: &validation}
	failed := &models.ParseJob{ID: uuid.New(), Status: models.StatusFailed, ErrorMessage: &failure}
	corrupt := &models.ParseJob{ID: uuid.New(), Status: models.StatusCompleted, Record: &broken}

	jobs := &memJobs{jobs: map[uuid.UUID]*models.ParseJob{
		completed.ID: completed,
		failed.ID:    failed,
		corrupt.ID:   corrupt,
	}}

	app := newTestApp()
	app.Get("/result/:id", NewResultHandler(jobs, nil).HandleGetResult)

	get := func(id string) *http.Response {
		resp, err := app.Test(httptest.NewRequest("GET", "/result/"+id, nil))
		require.NoError(t, err)
		return resp
	}

	t.Run("completed", func(t *testing.T) {
		resp := get(completed.ID.String())
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out models.ResultResponse
		decodeBody(t, resp, &out)
		require.Equal(t, "completed", out.Status)
		require.Equal(t, "Jane Doe", out.Result.Record.Name)
		require.Equal(t, []string{"Go"}, out.Result.Record.Skills)
		require.Equal(t, "pdftotext", out.Result.Backend)
		require.Equal(t, 0.95, out.Result.Confidence)
		require.Equal(t, 83.3, out.Result.Validation.CompletenessScore)
		require.Nil(t, out.ErrorMessage)
	})

	t.Run("failed", func(t *testing.T) {
		var out models.ResultResponse
		decodeBody(t, get(failed.ID.String()), &out)
		require.Equal(t, "failed", out.Status)
		require.Nil(t, out.Result)
		require.Equal(t, failure, *out.ErrorMessage)
	})

	t.Run("unreadable result", func(t *testing.T) {
		require.Equal(t, fiber.StatusInternalServerError, get(corrupt.ID.String()).StatusCode)
	})

	t.Run("bad id", func(t *testing.T) {
		require.Equal(t, fiber.StatusBadRequest, get("not-a-uuid").StatusCode)
	})

	t.Run("unknown job", func(t *testing.T) {
		require.Equal(t, fiber.StatusNotFound, get(uuid.NewString()).StatusCode)
	})
}

func TestHandleSearch(t *testing.T) {
	t.Run("index disabled", func(t *testing.T) {
		app := newTestApp()
		app.Get("/search", NewSearchHandler(nil, nil, nil).HandleSearch)

		resp, err := app.Test(httptest.NewRequest("GET", "/search?q=go", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("missing query", func(t *testing.T) {
		app := newTestApp()
		app.Get("/search", NewSearchHandler(&stubIndex{}, nil, nil).HandleSearch)

		resp, err := app.Test(httptest.NewRequest("GET", "/search?q=+", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("hits", func(t *testing.T) {
		doc := &models.Document{ID: uuid.New(), OriginalFileName: "jane_doe_cv.pdf"}
		docs := &memDocs{docs: map[uuid.UUID]*models.Document{doc.ID: doc}}
		index := &stubIndex{results: []services.SearchResult{
			{DocumentID: doc.ID.String(), Section: "skills", Name: "Jane Doe", Text: "Go, Kubernetes", Score: 0.9},
			{DocumentID: "not-a-uuid", Section: "skills", Text: "Go", Score: 0.4},
		}}
		app := newTestApp()
		app.Get("/search", NewSearchHandler(index, docs, nil).HandleSearch)

		resp, err := app.Test(httptest.NewRequest("GET", "/search?q=golang&section=Skills&limit=500", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)

		var out models.SearchResponse
		decodeBody(t, resp, &out)
		require.Equal(t, "golang", out.Query)
		require.Equal(t, []models.CandidateHit{
			{DocumentID: doc.ID.String(), Filename: "jane_doe_cv.pdf", Section: "skills", Name: "Jane Doe", Text: "Go, Kubernetes", Score: 0.9},
			{DocumentID: "not-a-uuid", Section: "skills", Text: "Go", Score: 0.4},
		}, out.Hits)
		require.Equal(t, "skills", index.section)
		require.Equal(t, maxSearchLimit, index.limit)
	})

	t.Run("default limit", func(t *testing.T) {
		index := &stubIndex{}
		app := newTestApp()
		app.Get("/search", NewSearchHandler(index, nil, nil).HandleSearch)

		resp, err := app.Test(httptest.NewRequest("GET", "/search?q=golang", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		require.Equal(t, defaultSearchLimit, index.limit)
		require.Equal(t, "", index.section)
	})

	t.Run("index failure", func(t *testing.T) {
		app := newTestApp()
		app.Get("/search", NewSearchHandler(&stubIndex{err: errors.New("timeout")}, nil, nil).HandleSearch)

		resp, err := app.Test(httptest.NewRequest("GET", "/search?q=golang", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	})
}

type memStorage struct {
	saved map[string][]byte
}

func (s *memStorage) SaveFile(file *multipart.FileHeader) (string, string, error) {
	if _, err := services.DetectFormat(file.Filename); err != nil {
		return "", "", err
	}
	src, err := file.Open()
	if err != nil {
		return "", "", err
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return "", "", err
	}
	name := "cv_test" + strings.ToLower(file.Filename[strings.LastIndex(file.Filename, "."):])
	s.saved[name] = data
	return name, "/uploads/" + name, nil
}

func (s *memStorage) ReadFile(string) ([]byte, error)    { return nil, nil }
func (s *memStorage) GetFilePath(filename string) string { return "/uploads/" + filename }
func (s *memStorage) DeleteFile(filename string) error {
	delete(s.saved, filename)
	return nil
}
func (s *memStorage) EnsureUploadDir() error { return nil }

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("cv", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleUpload(t *testing.T) {
	newApp := func(docs *memDocs, storage *memStorage) *fiber.App {
		app := newTestApp()
		app.Post("/upload", NewUploadHandler(docs, storage, 64, nil).HandleUpload)
		return app
	}

	t.Run("pdf", func(t *testing.T) {
		docs := &memDocs{docs: map[uuid.UUID]*models.Document{}}
		storage := &memStorage{saved: map[string][]byte{}}

		resp, err := newApp(docs, storage).Test(uploadRequest(t, "Jane.PDF", []byte("%PDF-1.7")))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var out struct {
			Document models.UploadResponse `json:"document"`
		}
		decodeBody(t, resp, &out)
		require.Equal(t, "pdf", out.Document.Format)
		require.Equal(t, "Jane.PDF", out.Document.OriginalName)
		require.Len(t, docs.docs, 1)
		require.Equal(t, []byte("%PDF-1.7"), storage.saved["cv_test.pdf"])
	})

	t.Run("unsupported format", func(t *testing.T) {
		docs := &memDocs{docs: map[uuid.UUID]*models.Document{}}
		resp, err := newApp(docs, &memStorage{saved: map[string][]byte{}}).Test(uploadRequest(t, "notes.txt", []byte("hi")))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
		require.Empty(t, docs.docs)
	})

	t.Run("too large", func(t *testing.T) {
		resp, err := newApp(&memDocs{docs: map[uuid.UUID]*models.Document{}}, &memStorage{saved: map[string][]byte{}}).
			Test(uploadRequest(t, "cv.docx", bytes.Repeat([]byte("x"), 65)))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("no file", func(t *testing.T) {
		resp, err := newApp(&memDocs{docs: map[uuid.UUID]*models.Document{}}, &memStorage{saved: map[string][]byte{}}).
			Test(httptest.NewRequest("POST", "/upload", nil))
		require.NoError(t, err)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}
