package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-parser/internal/models"
)

type recordingParseService struct {
	processed chan uuid.UUID
	err       error
}

func (s *recordingParseService) Process(_ context.Context, jobID uuid.UUID) error {
	select {
	case s.processed <- jobID:
	default:
	}
	return s.err
}

type pendingJobRepo struct {
	memJobRepo
	pending []models.ParseJob
}

func (r *pendingJobRepo) FindPendingJobs(limit int) ([]models.ParseJob, error) {
	if len(r.pending) > limit {
		return r.pending[:limit], nil
	}
	return r.pending, nil
}

func receiveJob(t *testing.T, ch <-chan uuid.UUID) uuid.UUID {
	t.Helper()
	select {
	case id := <-ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
		return uuid.Nil
	}
}

func TestWorkerProcessesEnqueuedJobs(t *testing.T) {
	svc := &recordingParseService{processed: make(chan uuid.UUID, 4), err: errors.New("boom")}
	w := NewWorker(&pendingJobRepo{}, svc, 2, testLogger())

	w.Start(context.Background())
	defer w.Stop()

	first, second := uuid.New(), uuid.New()
	w.EnqueueJob(first)
	w.EnqueueJob(second)

	got := []uuid.UUID{receiveJob(t, svc.processed), receiveJob(t, svc.processed)}
	require.ElementsMatch(t, []uuid.UUID{first, second}, got)
}

func TestWorkerPollsPendingJobs(t *testing.T) {
	job := models.ParseJob{ID: uuid.New(), Status: models.StatusQueued}
	svc := &recordingParseService{processed: make(chan uuid.UUID, 4)}

	w := NewWorker(&pendingJobRepo{pending: []models.ParseJob{job}}, svc, 1, testLogger()).(*worker)
	w.pollInterval = 10 * time.Millisecond

	w.Start(context.Background())
	defer w.Stop()

	require.Equal(t, job.ID, receiveJob(t, svc.processed))
}

func TestWorkerStop(t *testing.T) {
	svc := &recordingParseService{processed: make(chan uuid.UUID, 1)}
	w := NewWorker(&pendingJobRepo{}, svc, 1, testLogger())

	w.Start(context.Background())
	w.Stop()
	w.Stop()

	w.EnqueueJob(uuid.New())
	select {
	case <-svc.processed:
		t.Fatal("stopped worker processed a job")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWorkerQueueFullDefersToPoller(t *testing.T) {
	w := NewWorker(&pendingJobRepo{}, &recordingParseService{}, 0, testLogger()).(*worker)
	require.Equal(t, 1, w.concurrency)

	for i := 0; i < cap(w.jobQueue)+5; i++ {
		w.EnqueueJob(uuid.New())
	}
	require.Len(t, w.jobQueue, cap(w.jobQueue))
}
