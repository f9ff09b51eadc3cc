package worker

import (
	"context"
	stderrors "errors"
	"time"

	"jubily/internal/logsink"
	"jubily/internal/models"
	"jubily/internal/pkg/logger"
	"jubily/internal/render"
)

// RenderJobStore is the slice of the job store the poller mutates.
type RenderJobStore interface {
	ListRenderable(ctx context.Context, attemptCap int) ([]models.VideoJob, error)
	MarkCompleted(ctx context.Context, id string, version int, videoURL string) error
	MarkFailed(ctx context.Context, id string, version int, errMsg string) error
	IncrementAttempts(ctx context.Context, id string, version int, errMsg string) error
}

// RenderStatusClient polls the provider for render progress.
type RenderStatusClient interface {
	Status(ctx context.Context, renderID string) (render.StatusResult, error)
}

// AssetResolver resolves the served URL of a finished render.
type AssetResolver interface {
	ReadyURL(ctx context.Context, renderID string) (string, error)
}

// RenderPoller advances PROCESSING jobs by polling the render provider.
// Three outcomes per job: still rendering (wait), done (resolve asset and
// complete), failed (terminal). Transient request errors charge the attempt
// budget; a finished render whose asset has not materialized yet does not.
type RenderPoller struct {
	jobs       RenderJobStore
	status     RenderStatusClient
	assets     AssetResolver
	sink       logsink.Sink
	attemptCap int
	callTO     time.Duration
	log        *logger.Logger
}

func NewRenderPoller(jobs RenderJobStore, status RenderStatusClient, assets AssetResolver, sink logsink.Sink, attemptCap int, callTimeout time.Duration, log *logger.Logger) *RenderPoller {
	if attemptCap <= 0 {
		attemptCap = 6
	}
	if callTimeout == 0 {
		callTimeout = 20 * time.Second
	}
	if sink == nil {
		sink = logsink.Nop{}
	}
	return &RenderPoller{
		jobs:       jobs,
		status:     status,
		assets:     assets,
		sink:       sink,
		attemptCap: attemptCap,
		callTO:     callTimeout,
		log:        log.WithComponent("render-poller"),
	}
}

// RunOnce processes every renderable job sequentially. A single job's failure
// never stops its siblings in the same pass.
func (p *RenderPoller) RunOnce(ctx context.Context) error {
	jobs, err := p.jobs.ListRenderable(ctx, p.attemptCap)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		p.process(ctx, job)
	}
	return nil
}

func (p *RenderPoller) process(ctx context.Context, job models.VideoJob) {
	log := p.log.WithJobID(job.ID)
	if job.RenderID == nil {
		return
	}
	renderID := *job.RenderID

	callCtx, cancel := context.WithTimeout(ctx, p.callTO)
	st, err := p.status.Status(callCtx, renderID)
	cancel()
	if err != nil {
		p.chargeAttempt(ctx, job, err, log)
		return
	}

	switch st.State {
	case render.StateRendering:
		log.Debug("render in progress", "render_id", renderID)

	case render.StateDone:
		p.complete(ctx, job, renderID, log)

	case render.StateFailed:
		msg := st.Error
		if msg == "" {
			msg = "render failed"
		}
		if err := p.jobs.MarkFailed(ctx, job.ID, job.Version, msg); err != nil {
			log.Error("failed to mark job failed", "error", err)
			return
		}
		log.Warn("render failed", "render_id", renderID, "error", msg)
		p.sink.Append(ctx, logsink.Entry{
			JobID:        job.ID,
			ScriptID:     job.ScriptID,
			Provider:     "render",
			Status:       string(models.JobFailed),
			Error:        msg,
			JobCreatedAt: job.CreatedAt,
		})

	default:
		p.chargeAttempt(ctx, job, stderrors.New("unrecognized render status"), log)
	}
}

// complete resolves the served asset and transitions the job to COMPLETED.
// "Not ready" and "missing" are wait conditions: the render finished, so the
// job is left untouched and re-checked next cycle at no attempt cost.
func (p *RenderPoller) complete(ctx context.Context, job models.VideoJob, renderID string, log *logger.Logger) {
	callCtx, cancel := context.WithTimeout(ctx, p.callTO)
	url, err := p.assets.ReadyURL(callCtx, renderID)
	cancel()

	if err != nil {
		if stderrors.Is(err, render.ErrAssetNotReady) || stderrors.Is(err, render.ErrAssetMissing) {
			log.Info("render done, asset not served yet", "render_id", renderID)
			return
		}
		p.chargeAttempt(ctx, job, err, log)
		return
	}

	if err := p.jobs.MarkCompleted(ctx, job.ID, job.Version, url); err != nil {
		log.Error("failed to mark job completed", "error", err)
		return
	}
	log.Info("render completed", "render_id", renderID, "video_url", url)
	p.sink.Append(ctx, logsink.Entry{
		JobID:        job.ID,
		ScriptID:     job.ScriptID,
		Provider:     "render",
		Status:       string(models.JobCompleted),
		URL:          url,
		JobCreatedAt: job.CreatedAt,
	})
}

// chargeAttempt books one transient failure. Status is untouched so the job
// is retried next cycle until the cap removes it from selection. These
// retries are not logged to the sink; only terminal outcomes are.
func (p *RenderPoller) chargeAttempt(ctx context.Context, job models.VideoJob, cause error, log *logger.Logger) {
	if err := p.jobs.IncrementAttempts(ctx, job.ID, job.Version, cause.Error()); err != nil {
		log.Error("failed to record attempt", "error", err)
		return
	}
	log.Warn("render poll attempt failed",
		"attempts", job.Attempts+1,
		"attempt_cap", p.attemptCap,
		"error", cause.Error(),
	)
}
