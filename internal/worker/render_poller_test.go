package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"jubily/internal/logsink"
	"jubily/internal/models"
	"jubily/internal/pkg/logger"
	"jubily/internal/render"
)

type pollJobStore struct {
	jobs      []models.VideoJob
	completed map[string]string
	failed    map[string]string
	attempts  map[string]int
	errs      map[string]string
}

func newPollJobStore(jobs ...models.VideoJob) *pollJobStore {
	return &pollJobStore{
		jobs:      jobs,
		completed: map[string]string{},
		failed:    map[string]string{},
		attempts:  map[string]int{},
		errs:      map[string]string{},
	}
}

func (s *pollJobStore) ListRenderable(_ context.Context, attemptCap int) ([]models.VideoJob, error) {
	var out []models.VideoJob
	for _, j := range s.jobs {
		if j.Status == models.JobProcessing && j.RenderID != nil && j.Attempts < attemptCap {
			out = append(out, j)
		}
	}
	return out, nil
}

func (s *pollJobStore) MarkCompleted(_ context.Context, id string, _ int, videoURL string) error {
	s.completed[id] = videoURL
	return nil
}

func (s *pollJobStore) MarkFailed(_ context.Context, id string, _ int, errMsg string) error {
	s.failed[id] = errMsg
	return nil
}

func (s *pollJobStore) IncrementAttempts(_ context.Context, id string, _ int, errMsg string) error {
	s.attempts[id]++
	s.errs[id] = errMsg
	return nil
}

type fakeStatus struct {
	result render.StatusResult
	err    error
}

func (f *fakeStatus) Status(context.Context, string) (render.StatusResult, error) {
	return f.result, f.err
}

type fakeAssets struct {
	url string
	err error
}

func (f *fakeAssets) ReadyURL(context.Context, string) (string, error) {
	return f.url, f.err
}

type recordSink struct {
	entries []logsink.Entry
}

func (r *recordSink) Append(_ context.Context, e logsink.Entry) {
	r.entries = append(r.entries, e)
}

func processingJob(id string) models.VideoJob {
	renderID := "rnd_" + id
	return models.VideoJob{
		ID:        id,
		ScriptID:  "scr_1",
		Status:    models.JobProcessing,
		RenderID:  &renderID,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}
}

func newPoller(jobs *pollJobStore, status *fakeStatus, assets *fakeAssets, sink *recordSink) *RenderPoller {
	return NewRenderPoller(jobs, status, assets, sink, 6, time.Second, logger.NewDefault())
}

func TestPollerCompletesJob(t *testing.T) {
	jobs := newPollJobStore(processingJob("job_1"))
	sink := &recordSink{}
	p := newPoller(jobs, &fakeStatus{result: render.StatusResult{State: render.StateDone}},
		&fakeAssets{url: "https://cdn.example.com/out.mp4"}, sink)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if jobs.completed["job_1"] != "https://cdn.example.com/out.mp4" {
		t.Errorf("job not completed with url: %v", jobs.completed)
	}
	if len(sink.entries) != 1 || sink.entries[0].Status != string(models.JobCompleted) {
		t.Errorf("expected one COMPLETED sink entry, got %+v", sink.entries)
	}
	if jobs.attempts["job_1"] != 0 {
		t.Error("completion must not charge attempts")
	}
}

func TestPollerStillRendering(t *testing.T) {
	jobs := newPollJobStore(processingJob("job_1"))
	sink := &recordSink{}
	p := newPoller(jobs, &fakeStatus{result: render.StatusResult{State: render.StateRendering}}, &fakeAssets{}, sink)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(jobs.completed)+len(jobs.failed)+len(jobs.attempts) != 0 {
		t.Error("in-progress render must not mutate the job")
	}
	if len(sink.entries) != 0 {
		t.Error("in-progress render must not log")
	}
}

func TestPollerRenderFailed(t *testing.T) {
	jobs := newPollJobStore(processingJob("job_1"))
	sink := &recordSink{}
	p := newPoller(jobs, &fakeStatus{result: render.StatusResult{State: render.StateFailed, Error: "encoding error"}}, &fakeAssets{}, sink)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if jobs.failed["job_1"] != "encoding error" {
		t.Errorf("job not failed with provider message: %v", jobs.failed)
	}
	if len(sink.entries) != 1 || sink.entries[0].Status != string(models.JobFailed) || sink.entries[0].Error != "encoding error" {
		t.Errorf("expected one FAILED sink entry, got %+v", sink.entries)
	}
}

func TestPollerTransientErrorChargesAttempt(t *testing.T) {
	jobs := newPollJobStore(processingJob("job_1"))
	sink := &recordSink{}
	p := newPoller(jobs, &fakeStatus{err: errors.New("connection refused")}, &fakeAssets{}, sink)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if jobs.attempts["job_1"] != 1 {
		t.Errorf("attempts = %d, want 1", jobs.attempts["job_1"])
	}
	if jobs.errs["job_1"] != "connection refused" {
		t.Errorf("error not recorded: %q", jobs.errs["job_1"])
	}
	if len(jobs.completed)+len(jobs.failed) != 0 {
		t.Error("transient error must not change status")
	}
	if len(sink.entries) != 0 {
		t.Error("transient retries are not logged to the sink")
	}
}

func TestPollerAssetNotReadyIsFree(t *testing.T) {
	jobs := newPollJobStore(processingJob("job_1"))
	sink := &recordSink{}
	p := newPoller(jobs, &fakeStatus{result: render.StatusResult{State: render.StateDone}},
		&fakeAssets{err: render.ErrAssetNotReady}, sink)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if jobs.attempts["job_1"] != 0 {
		t.Error("asset-not-ready must not charge attempts")
	}
	if len(jobs.completed)+len(jobs.failed) != 0 {
		t.Error("asset-not-ready must not mutate the job")
	}
}

func TestPollerAssetMissingIsFree(t *testing.T) {
	jobs := newPollJobStore(processingJob("job_1"))
	p := newPoller(jobs, &fakeStatus{result: render.StatusResult{State: render.StateDone}},
		&fakeAssets{err: render.ErrAssetMissing}, &recordSink{})

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if jobs.attempts["job_1"] != 0 || len(jobs.completed)+len(jobs.failed) != 0 {
		t.Error("missing asset must leave the job untouched")
	}
}

func TestPollerSkipsJobsAtAttemptCap(t *testing.T) {
	capped := processingJob("job_1")
	capped.Attempts = 6
	jobs := newPollJobStore(capped)
	p := newPoller(jobs, &fakeStatus{err: errors.New("should not be called")}, &fakeAssets{}, &recordSink{})

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if jobs.attempts["job_1"] != 0 {
		t.Error("job at attempt cap must not be selected")
	}
}

func TestPollerFailureDoesNotStopSiblings(t *testing.T) {
	jobs := newPollJobStore(processingJob("job_1"), processingJob("job_2"))
	sink := &recordSink{}
	p := newPoller(jobs, &fakeStatus{result: render.StatusResult{State: render.StateDone}},
		&fakeAssets{url: "https://cdn.example.com/out.mp4"}, sink)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(jobs.completed) != 2 {
		t.Errorf("completed = %d, want 2", len(jobs.completed))
	}
}
