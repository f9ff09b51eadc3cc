package worker

import (
	"context"
	"errors"
	"time"

	"jubily/internal/logsink"
	"jubily/internal/models"
	"jubily/internal/pkg/logger"
)

const titleMaxLen = 90

var errMissingRenderID = errors.New("job has no render id")

// PublishJobStore is the slice of the job store the publisher mutates.
type PublishJobStore interface {
	ListPublishable(ctx context.Context) ([]models.VideoJob, error)
	SetVideoURL(ctx context.Context, id string, version int, videoURL string) error
	MarkPublished(ctx context.Context, id string, version int, youtubeURL string) error
	SetError(ctx context.Context, id string, version int, errMsg string) error
}

type ScriptGetter interface {
	Get(ctx context.Context, id string) (*models.Script, error)
}

type TopicGetter interface {
	Get(ctx context.Context, id string) (*models.Topic, error)
}

type OfferGetter interface {
	Get(ctx context.Context, id string) (*models.Offer, error)
}

// Mirrorer stabilizes a remote asset URL into the durable store.
type Mirrorer interface {
	IsDurable(url string) bool
	Mirror(ctx context.Context, remoteURL, key string) (string, error)
}

// VideoHost publishes a video and returns its public URL.
type VideoHost interface {
	Upload(ctx context.Context, title, description, sourceURL string) (string, error)
}

// Publisher advances COMPLETED, unpublished jobs: stabilize the asset URL in
// the durable store, upload to the video host, flip published. There is no
// attempt cap here; failures leave the job selectable and it is retried every
// cycle until it publishes or someone intervenes.
type Publisher struct {
	jobs    PublishJobStore
	scripts ScriptGetter
	topics  TopicGetter
	offers  OfferGetter
	assets  AssetResolver
	mirror  Mirrorer
	host    VideoHost
	sink    logsink.Sink
	callTO  time.Duration
	log     *logger.Logger
}

func NewPublisher(
	jobs PublishJobStore,
	scripts ScriptGetter,
	topics TopicGetter,
	offers OfferGetter,
	assets AssetResolver,
	mirror Mirrorer,
	host VideoHost,
	sink logsink.Sink,
	callTimeout time.Duration,
	log *logger.Logger,
) *Publisher {
	if callTimeout == 0 {
		callTimeout = 20 * time.Second
	}
	if sink == nil {
		sink = logsink.Nop{}
	}
	return &Publisher{
		jobs:    jobs,
		scripts: scripts,
		topics:  topics,
		offers:  offers,
		assets:  assets,
		mirror:  mirror,
		host:    host,
		sink:    sink,
		callTO:  callTimeout,
		log:     log.WithComponent("publisher"),
	}
}

// RunOnce processes every publishable job sequentially. Per-job failures are
// recorded on the job and logged; they never stop the pass.
func (p *Publisher) RunOnce(ctx context.Context) error {
	jobs, err := p.jobs.ListPublishable(ctx)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		p.publish(ctx, job)
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, job models.VideoJob) {
	log := p.log.WithJobID(job.ID)

	// version tracks the row through this pass; every successful store write
	// bumps it by exactly one.
	version := job.Version

	script, err := p.scripts.Get(ctx, job.ScriptID)
	if err != nil {
		p.fail(ctx, job, version, "", "", err, log)
		return
	}

	topicTitle := ""
	if topic, err := p.topics.Get(ctx, script.TopicID); err == nil {
		topicTitle = topic.Title
	}
	offerName := ""
	if job.OfferID != nil {
		if offer, err := p.offers.Get(ctx, *job.OfferID); err == nil {
			offerName = offer.Name
		}
	}

	stableURL, version, err := p.ensureStableURL(ctx, job, version, log)
	if err != nil {
		p.fail(ctx, job, version, topicTitle, offerName, err, log)
		return
	}

	title := script.Content
	if len(title) > titleMaxLen {
		title = title[:titleMaxLen]
	}

	log.Info("publishing video", "source_url", stableURL)
	youtubeURL, err := p.host.Upload(ctx, title, script.Content, stableURL)
	if err != nil {
		p.fail(ctx, job, version, topicTitle, offerName, err, log)
		return
	}

	if err := p.jobs.MarkPublished(ctx, job.ID, version, youtubeURL); err != nil {
		log.Error("failed to mark job published", "error", err)
		return
	}

	log.Info("video published", "youtube_url", youtubeURL)
	p.sink.Append(ctx, logsink.Entry{
		JobID:        job.ID,
		ScriptID:     job.ScriptID,
		TopicTitle:   topicTitle,
		OfferName:    offerName,
		Provider:     "youtube",
		Status:       "PUBLISHED",
		URL:          youtubeURL,
		JobCreatedAt: job.CreatedAt,
	})
}

// ensureStableURL returns a durable URL for the job's asset, mirroring it into
// the durable store on first need. Once video_url is durable this
// short-circuits, so retries never touch the render provider again.
func (p *Publisher) ensureStableURL(ctx context.Context, job models.VideoJob, version int, log *logger.Logger) (string, int, error) {
	if job.VideoURL != nil && p.mirror.IsDurable(*job.VideoURL) {
		return *job.VideoURL, version, nil
	}

	source := ""
	if job.VideoURL != nil && *job.VideoURL != "" {
		source = *job.VideoURL
	} else {
		if job.RenderID == nil {
			return "", version, errMissingRenderID
		}
		callCtx, cancel := context.WithTimeout(ctx, p.callTO)
		url, err := p.assets.ReadyURL(callCtx, *job.RenderID)
		cancel()
		if err != nil {
			return "", version, err
		}
		source = url
	}

	callCtx, cancel := context.WithTimeout(ctx, p.callTO)
	durable, err := p.mirror.Mirror(callCtx, source, job.ID+".mp4")
	cancel()
	if err != nil {
		return "", version, err
	}

	if err := p.jobs.SetVideoURL(ctx, job.ID, version, durable); err != nil {
		return "", version, err
	}
	log.Info("asset mirrored to durable store", "video_url", durable)
	return durable, version + 1, nil
}

// fail records the error on the job without changing status, leaving it
// eligible for the next pass, and logs a FAILED row.
func (p *Publisher) fail(ctx context.Context, job models.VideoJob, version int, topicTitle, offerName string, cause error, log *logger.Logger) {
	log.Warn("publish failed", "error", cause.Error())

	if err := p.jobs.SetError(ctx, job.ID, version, cause.Error()); err != nil {
		log.Error("failed to record publish error", "error", err)
	}

	p.sink.Append(ctx, logsink.Entry{
		JobID:        job.ID,
		ScriptID:     job.ScriptID,
		TopicTitle:   topicTitle,
		OfferName:    offerName,
		Provider:     "youtube",
		Status:       "FAILED",
		Error:        cause.Error(),
		JobCreatedAt: job.CreatedAt,
	})
}
