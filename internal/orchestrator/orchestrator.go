// Package orchestrator drives one production run: pick a topic, generate a
// script, create the job and hand it to the render provider.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"time"

	"jubily/internal/models"
	"jubily/internal/pkg/errors"
	"jubily/internal/pkg/logger"
	"jubily/internal/repositories"
	"jubily/internal/scenes"
	"jubily/internal/timeutil"
)

// Skip reasons returned on runs that perform no work.
const (
	SkipDisabled      = "disabled"
	SkipAlreadyExists = "already-exists"
	SkipNoTopics      = "no-topics"
)

type SettingsStore interface {
	Get(ctx context.Context) (*models.Settings, error)
}

type TopicStore interface {
	FindBestPending(ctx context.Context) (*models.Topic, error)
	MarkUsed(ctx context.Context, id string) error
}

type OfferStore interface {
	FindActive(ctx context.Context) (*models.Offer, error)
}

type ScriptStore interface {
	Create(ctx context.Context, topicID, content, promptVersion, outputHash string) (*models.Script, error)
	FindByHash(ctx context.Context, outputHash string) (*models.Script, error)
}

type JobStore interface {
	Create(ctx context.Context, scriptID string, offerID *string, slot models.Slot, scheduledFor time.Time) (*models.VideoJob, error)
	FindBySlot(ctx context.Context, slot models.Slot, scheduledFor time.Time) (*models.VideoJob, error)
	MarkProcessing(ctx context.Context, id string, version int, renderID string) error
	SetError(ctx context.Context, id string, version int, errMsg string) error
}

type ScriptGenerator interface {
	Generate(ctx context.Context, topicTitle string) (string, error)
}

type RenderSubmitter interface {
	Submit(ctx context.Context, scs []scenes.Scene) (string, error)
}

// RunResult reports what a slot run did. Skipped is empty on runs that
// created a job.
type RunResult struct {
	Skipped      string      `json:"skipped,omitempty"`
	Slot         models.Slot `json:"slot"`
	ScheduledFor time.Time   `json:"scheduledFor"`
	TopicID      string      `json:"topicId,omitempty"`
	OfferID      string      `json:"offerId,omitempty"`
	ScriptID     string      `json:"scriptId,omitempty"`
	JobID        string      `json:"jobId,omitempty"`
	RenderID     string      `json:"renderId,omitempty"`
}

type Orchestrator struct {
	settings      SettingsStore
	topics        TopicStore
	offers        OfferStore
	scripts       ScriptStore
	jobs          JobStore
	generator     ScriptGenerator
	submitter     RenderSubmitter
	promptVersion string
	log           *logger.Logger
}

func New(
	settings SettingsStore,
	topics TopicStore,
	offers OfferStore,
	scripts ScriptStore,
	jobs JobStore,
	generator ScriptGenerator,
	submitter RenderSubmitter,
	promptVersion string,
	log *logger.Logger,
) *Orchestrator {
	if promptVersion == "" {
		promptVersion = "v1"
	}
	return &Orchestrator{
		settings:      settings,
		topics:        topics,
		offers:        offers,
		scripts:       scripts,
		jobs:          jobs,
		generator:     generator,
		submitter:     submitter,
		promptVersion: promptVersion,
		log:           log.WithComponent("orchestrator"),
	}
}

// RunSlot produces at most one job for the (slot, hour) occurrence. The
// requested time is normalized to the start of its hour and that pair is the
// sole idempotency key: a second call for the same occurrence skips.
func (o *Orchestrator) RunSlot(ctx context.Context, slot models.Slot, requestedTime time.Time) (*RunResult, error) {
	scheduledFor := timeutil.NormalizeToHour(requestedTime)
	res := &RunResult{Slot: slot, ScheduledFor: scheduledFor}
	log := o.log.WithSlot(string(slot))

	st, err := o.settings.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "orchestrator.runslot", "failed to load settings")
	}
	if !st.AutomationEnabled {
		log.Info("automation disabled, skipping run")
		res.Skipped = SkipDisabled
		return res, nil
	}

	if existing, err := o.jobs.FindBySlot(ctx, slot, scheduledFor); err == nil {
		log.Info("job already exists for occurrence", "job_id", existing.ID)
		res.Skipped = SkipAlreadyExists
		res.JobID = existing.ID
		return res, nil
	} else if !stderrors.Is(err, repositories.ErrJobNotFound) {
		return nil, errors.Wrap(err, "orchestrator.runslot", "idempotency lookup failed")
	}

	topic, err := o.topics.FindBestPending(ctx)
	if stderrors.Is(err, repositories.ErrTopicNotFound) {
		log.Info("no pending topics, skipping run")
		res.Skipped = SkipNoTopics
		return res, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "orchestrator.runslot", "topic selection failed")
	}
	res.TopicID = topic.ID

	var offerID *string
	if offer, err := o.offers.FindActive(ctx); err == nil {
		offerID = &offer.ID
		res.OfferID = offer.ID
	} else if !stderrors.Is(err, repositories.ErrOfferNotFound) {
		return nil, errors.Wrap(err, "orchestrator.runslot", "offer selection failed")
	}

	script, err := o.generateScript(ctx, topic)
	if err != nil {
		return nil, err
	}
	res.ScriptID = script.ID

	if err := o.topics.MarkUsed(ctx, topic.ID); err != nil {
		return nil, errors.Wrap(err, "orchestrator.runslot", "failed to mark topic used")
	}

	job, err := o.jobs.Create(ctx, script.ID, offerID, slot, scheduledFor)
	if stderrors.Is(err, repositories.ErrDuplicateSlotRun) {
		// Lost a race with a concurrent run for the same occurrence.
		if existing, findErr := o.jobs.FindBySlot(ctx, slot, scheduledFor); findErr == nil {
			res.Skipped = SkipAlreadyExists
			res.JobID = existing.ID
			return res, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "orchestrator.runslot", "job creation failed")
	}
	res.JobID = job.ID
	log = log.WithJobID(job.ID)

	renderID, err := o.submitRender(ctx, job, script)
	if err != nil {
		// The job stays PENDING without a render id for manual inspection.
		log.Error("render submission failed", "error", err)
		if setErr := o.jobs.SetError(ctx, job.ID, job.Version, err.Error()); setErr != nil {
			log.Error("failed to record submission error", "error", setErr)
		}
		return nil, err
	}
	res.RenderID = renderID

	log.Info("slot run complete",
		"topic_id", topic.ID,
		"script_id", script.ID,
		"render_id", renderID,
	)
	return res, nil
}

// generateScript calls the generator and persists the output, reusing an
// existing script when the generator returns content already on file.
func (o *Orchestrator) generateScript(ctx context.Context, topic *models.Topic) (*models.Script, error) {
	content, err := o.generator.Generate(ctx, topic.Title)
	if err != nil {
		return nil, errors.Wrap(err, "orchestrator.generate", "script generation failed")
	}

	sum := sha256.Sum256([]byte(content))
	hash := hex.EncodeToString(sum[:])

	if existing, err := o.scripts.FindByHash(ctx, hash); err == nil {
		o.log.Info("reusing script with identical content", "script_id", existing.ID)
		return existing, nil
	} else if !stderrors.Is(err, repositories.ErrScriptNotFound) {
		return nil, errors.Wrap(err, "orchestrator.generate", "script dedup lookup failed")
	}

	script, err := o.scripts.Create(ctx, topic.ID, content, o.promptVersion, hash)
	if err != nil {
		return nil, errors.Wrap(err, "orchestrator.generate", "failed to persist script")
	}
	return script, nil
}

func (o *Orchestrator) submitRender(ctx context.Context, job *models.VideoJob, script *models.Script) (string, error) {
	scs, err := scenes.Extract(script.Content)
	if err != nil {
		return "", errors.Wrap(err, "orchestrator.submit", "scene extraction failed")
	}

	renderID, err := o.submitter.Submit(ctx, scs)
	if err != nil {
		return "", errors.Wrap(err, "orchestrator.submit", "render submission failed")
	}

	if err := o.jobs.MarkProcessing(ctx, job.ID, job.Version, renderID); err != nil {
		return "", errors.Wrap(err, "orchestrator.submit", "failed to record render id")
	}
	return renderID, nil
}
