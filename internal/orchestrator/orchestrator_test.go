package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"jubily/internal/models"
	"jubily/internal/pkg/logger"
	"jubily/internal/repositories"
	"jubily/internal/scenes"
)

type fakeSettings struct {
	enabled bool
}

func (f *fakeSettings) Get(context.Context) (*models.Settings, error) {
	return &models.Settings{AutomationEnabled: f.enabled, Timezone: "UTC"}, nil
}

type fakeTopics struct {
	pending *models.Topic
	used    []string
}

func (f *fakeTopics) FindBestPending(context.Context) (*models.Topic, error) {
	if f.pending == nil {
		return nil, repositories.ErrTopicNotFound
	}
	return f.pending, nil
}

func (f *fakeTopics) MarkUsed(_ context.Context, id string) error {
	f.used = append(f.used, id)
	return nil
}

type fakeOffers struct {
	active *models.Offer
}

func (f *fakeOffers) FindActive(context.Context) (*models.Offer, error) {
	if f.active == nil {
		return nil, repositories.ErrOfferNotFound
	}
	return f.active, nil
}

type fakeScripts struct {
	byHash  map[string]*models.Script
	created []*models.Script
}

func (f *fakeScripts) Create(_ context.Context, topicID, content, promptVersion, outputHash string) (*models.Script, error) {
	s := &models.Script{
		ID:            fmt.Sprintf("scr_%d", len(f.created)+1),
		TopicID:       topicID,
		Content:       content,
		PromptVersion: promptVersion,
		OutputHash:    outputHash,
	}
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeScripts) FindByHash(_ context.Context, hash string) (*models.Script, error) {
	if s, ok := f.byHash[hash]; ok {
		return s, nil
	}
	return nil, repositories.ErrScriptNotFound
}

type occurrence struct {
	slot models.Slot
	at   time.Time
}

type fakeJobs struct {
	bySlot     map[occurrence]*models.VideoJob
	processing map[string]string
	errs       map[string]string
	nextID     int
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		bySlot:     map[occurrence]*models.VideoJob{},
		processing: map[string]string{},
		errs:       map[string]string{},
	}
}

func (f *fakeJobs) Create(_ context.Context, scriptID string, offerID *string, slot models.Slot, scheduledFor time.Time) (*models.VideoJob, error) {
	key := occurrence{slot, scheduledFor}
	if _, ok := f.bySlot[key]; ok {
		return nil, repositories.ErrDuplicateSlotRun
	}
	f.nextID++
	j := &models.VideoJob{
		ID:           fmt.Sprintf("job_%d", f.nextID),
		ScriptID:     scriptID,
		OfferID:      offerID,
		Slot:         slot,
		ScheduledFor: scheduledFor,
		Status:       models.JobPending,
		Version:      1,
	}
	f.bySlot[key] = j
	return j, nil
}

func (f *fakeJobs) FindBySlot(_ context.Context, slot models.Slot, scheduledFor time.Time) (*models.VideoJob, error) {
	if j, ok := f.bySlot[occurrence{slot, scheduledFor}]; ok {
		return j, nil
	}
	return nil, repositories.ErrJobNotFound
}

func (f *fakeJobs) MarkProcessing(_ context.Context, id string, _ int, renderID string) error {
	f.processing[id] = renderID
	return nil
}

func (f *fakeJobs) SetError(_ context.Context, id string, _ int, errMsg string) error {
	f.errs[id] = errMsg
	return nil
}

type fakeGenerator struct {
	content string
	err     error
	calls   int
}

func (f *fakeGenerator) Generate(context.Context, string) (string, error) {
	f.calls++
	return f.content, f.err
}

type fakeSubmitter struct {
	renderID string
	err      error
	calls    int
	scenes   []scenes.Scene
}

func (f *fakeSubmitter) Submit(_ context.Context, scs []scenes.Scene) (string, error) {
	f.calls++
	f.scenes = scs
	return f.renderID, f.err
}

type fixture struct {
	settings  *fakeSettings
	topics    *fakeTopics
	offers    *fakeOffers
	scripts   *fakeScripts
	jobs      *fakeJobs
	generator *fakeGenerator
	submitter *fakeSubmitter
	orch      *Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		settings: &fakeSettings{enabled: true},
		topics: &fakeTopics{pending: &models.Topic{
			ID: "top_1", Title: "Hydration Tips", Score: 80, Status: models.TopicPending,
		}},
		offers:    &fakeOffers{},
		scripts:   &fakeScripts{byHash: map[string]*models.Script{}},
		jobs:      newFakeJobs(),
		generator: &fakeGenerator{content: "Drink water before every meal.\nYour body will thank you."},
		submitter: &fakeSubmitter{renderID: "rnd_1"},
	}
	f.orch = New(
		f.settings, f.topics, f.offers, f.scripts, f.jobs,
		f.generator, f.submitter, "v1", logger.NewDefault(),
	)
	return f
}

func TestRunSlotCreatesJob(t *testing.T) {
	f := newFixture()
	at := time.Date(2026, 3, 9, 9, 3, 17, 0, time.UTC)

	res, err := f.orch.RunSlot(context.Background(), models.SlotMorning, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Skipped != "" {
		t.Fatalf("unexpected skip: %s", res.Skipped)
	}
	want := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)
	if !res.ScheduledFor.Equal(want) {
		t.Errorf("scheduledFor = %v, want %v", res.ScheduledFor, want)
	}
	if res.JobID == "" || res.RenderID != "rnd_1" {
		t.Errorf("incomplete result: %+v", res)
	}
	if len(f.topics.used) != 1 || f.topics.used[0] != "top_1" {
		t.Errorf("topic not marked used: %v", f.topics.used)
	}
	if got := f.jobs.processing[res.JobID]; got != "rnd_1" {
		t.Errorf("job not moved to processing with render id, got %q", got)
	}
	if len(f.submitter.scenes) == 0 {
		t.Error("no scenes submitted")
	}
}

func TestRunSlotIdempotent(t *testing.T) {
	f := newFixture()
	at := time.Date(2026, 3, 9, 9, 3, 0, 0, time.UTC)

	first, err := f.orch.RunSlot(context.Background(), models.SlotMorning, at)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	// Different minute, same hour: same occurrence.
	second, err := f.orch.RunSlot(context.Background(), models.SlotMorning, at.Add(40*time.Minute))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if second.Skipped != SkipAlreadyExists {
		t.Fatalf("skipped = %q, want %q", second.Skipped, SkipAlreadyExists)
	}
	if second.JobID != first.JobID {
		t.Errorf("second run references job %s, want %s", second.JobID, first.JobID)
	}
	if len(f.jobs.bySlot) != 1 {
		t.Errorf("expected exactly one job, got %d", len(f.jobs.bySlot))
	}
	if f.generator.calls != 1 {
		t.Errorf("generator called %d times, want 1", f.generator.calls)
	}
}

func TestRunSlotDisabled(t *testing.T) {
	f := newFixture()
	f.settings.enabled = false

	res, err := f.orch.RunSlot(context.Background(), models.SlotEvening, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Skipped != SkipDisabled {
		t.Fatalf("skipped = %q, want %q", res.Skipped, SkipDisabled)
	}
	if f.generator.calls != 0 || len(f.topics.used) != 0 || len(f.jobs.bySlot) != 0 {
		t.Error("disabled run must perform no mutations")
	}
}

func TestRunSlotNoTopics(t *testing.T) {
	f := newFixture()
	f.topics.pending = nil

	res, err := f.orch.RunSlot(context.Background(), models.SlotAfternoon, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Skipped != SkipNoTopics {
		t.Fatalf("skipped = %q, want %q", res.Skipped, SkipNoTopics)
	}
	if len(f.jobs.bySlot) != 0 {
		t.Error("no job should be created without a topic")
	}
}

func TestRunSlotOfferOptional(t *testing.T) {
	f := newFixture()
	f.offers.active = &models.Offer{ID: "off_1", Name: "Course", Active: true}

	res, err := f.orch.RunSlot(context.Background(), models.SlotMorning, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OfferID != "off_1" {
		t.Errorf("offer id = %q, want off_1", res.OfferID)
	}

	key := occurrence{models.SlotMorning, res.ScheduledFor}
	job := f.jobs.bySlot[key]
	if job == nil || job.OfferID == nil || *job.OfferID != "off_1" {
		t.Errorf("job missing offer id: %+v", job)
	}
}

func TestRunSlotSubmitFailureRecordsError(t *testing.T) {
	f := newFixture()
	f.submitter.err = fmt.Errorf("provider rejected timeline")

	_, err := f.orch.RunSlot(context.Background(), models.SlotMorning, time.Now())
	if err == nil {
		t.Fatal("expected error from failed submission")
	}

	if len(f.jobs.bySlot) != 1 {
		t.Fatalf("job should remain for inspection, got %d", len(f.jobs.bySlot))
	}
	var jobID string
	for _, j := range f.jobs.bySlot {
		jobID = j.ID
	}
	if f.jobs.errs[jobID] == "" {
		t.Error("submission error not recorded on job")
	}
	if _, ok := f.jobs.processing[jobID]; ok {
		t.Error("job must not move to processing on submit failure")
	}
	// The topic stays consumed; reconciliation is manual.
	if len(f.topics.used) != 1 {
		t.Errorf("topic used calls = %d, want 1", len(f.topics.used))
	}
}

func TestRunSlotReusesScriptWithSameHash(t *testing.T) {
	f := newFixture()

	first, err := f.orch.RunSlot(context.Background(), models.SlotMorning, time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("first run: %v", err)
	}

	f.scripts.byHash[f.scripts.created[0].OutputHash] = f.scripts.created[0]
	f.topics.pending = &models.Topic{ID: "top_2", Title: "Hydration Tips", Score: 70}

	second, err := f.orch.RunSlot(context.Background(), models.SlotAfternoon, time.Date(2026, 3, 9, 13, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if second.ScriptID != first.ScriptID {
		t.Errorf("script id = %s, want reused %s", second.ScriptID, first.ScriptID)
	}
	if len(f.scripts.created) != 1 {
		t.Errorf("scripts created = %d, want 1", len(f.scripts.created))
	}
}
