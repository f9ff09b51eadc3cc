package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jubily/internal/httpkit"
	"jubily/internal/models"
	"jubily/internal/util"
)

var (
	ErrJobNotFound = errors.New("video job not found")
	// ErrDuplicateSlotRun is the unique (slot, scheduled_for) constraint
	// surfacing: another run already claimed this production occurrence.
	ErrDuplicateSlotRun = errors.New("job already exists for slot and scheduled time")
	// ErrStaleJob means the optimistic version check failed: another loop
	// pass mutated the row since it was read.
	ErrStaleJob = errors.New("video job was modified concurrently")
)

const jobColumns = `id, script_id, offer_id, slot, scheduled_for, status, attempts,
	render_id, video_url, published, youtube_url, error, version, created_at`

type VideoJobRepository struct {
	db *pgxpool.Pool
}

func NewVideoJobRepository(db *pgxpool.Pool) *VideoJobRepository {
	return &VideoJobRepository{db: db}
}

func scanJob(row pgx.Row) (*models.VideoJob, error) {
	var j models.VideoJob
	err := row.Scan(
		&j.ID, &j.ScriptID, &j.OfferID, &j.Slot, &j.ScheduledFor, &j.Status,
		&j.Attempts, &j.RenderID, &j.VideoURL, &j.Published, &j.YoutubeURL,
		&j.Error, &j.Version, &j.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Create inserts a PENDING job for the (slot, scheduledFor) occurrence.
func (r *VideoJobRepository) Create(ctx context.Context, scriptID string, offerID *string, slot models.Slot, scheduledFor time.Time) (*models.VideoJob, error) {
	j := &models.VideoJob{
		ID:           util.NewID("job"),
		ScriptID:     scriptID,
		OfferID:      offerID,
		Slot:         slot,
		ScheduledFor: scheduledFor,
		Status:       models.JobPending,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO video_jobs (id, script_id, offer_id, slot, scheduled_for, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING version, created_at
	`, j.ID, j.ScriptID, j.OfferID, j.Slot, j.ScheduledFor, j.Status).Scan(&j.Version, &j.CreatedAt)
	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return nil, ErrDuplicateSlotRun
		}
		return nil, err
	}
	return j, nil
}

func (r *VideoJobRepository) Get(ctx context.Context, id string) (*models.VideoJob, error) {
	return scanJob(r.db.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM video_jobs WHERE id=$1
	`, id))
}

// FindBySlot looks up the job for a (slot, scheduledFor) occurrence.
// This is the orchestrator's idempotency probe.
func (r *VideoJobRepository) FindBySlot(ctx context.Context, slot models.Slot, scheduledFor time.Time) (*models.VideoJob, error) {
	return scanJob(r.db.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM video_jobs WHERE slot=$1 AND scheduled_for=$2
	`, slot, scheduledFor))
}

// ListRenderable selects jobs the render poller should advance: PROCESSING
// with a render id and attempt budget remaining.
func (r *VideoJobRepository) ListRenderable(ctx context.Context, attemptCap int) ([]models.VideoJob, error) {
	return r.list(ctx, `
		SELECT `+jobColumns+` FROM video_jobs
		WHERE status=$1 AND render_id IS NOT NULL AND attempts < $2
		ORDER BY created_at
	`, models.JobProcessing, attemptCap)
}

// ListPublishable selects jobs the publisher should advance: COMPLETED,
// not yet published, with a render id to fall back on for asset resolution.
func (r *VideoJobRepository) ListPublishable(ctx context.Context) ([]models.VideoJob, error) {
	return r.list(ctx, `
		SELECT `+jobColumns+` FROM video_jobs
		WHERE status=$1 AND NOT published AND render_id IS NOT NULL
		ORDER BY created_at
	`, models.JobCompleted)
}

// ListScheduledBetween returns jobs keyed into [from, to), ordered by
// occurrence, for the workflow rollup.
func (r *VideoJobRepository) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]models.VideoJob, error) {
	return r.list(ctx, `
		SELECT `+jobColumns+` FROM video_jobs
		WHERE scheduled_for >= $1 AND scheduled_for < $2
		ORDER BY scheduled_for
	`, from, to)
}

func (r *VideoJobRepository) List(ctx context.Context, limit int) ([]models.VideoJob, error) {
	return r.list(ctx, `
		SELECT `+jobColumns+` FROM video_jobs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

func (r *VideoJobRepository) list(ctx context.Context, sql string, args ...any) ([]models.VideoJob, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VideoJob
	for rows.Next() {
		var j models.VideoJob
		if err := rows.Scan(
			&j.ID, &j.ScriptID, &j.OfferID, &j.Slot, &j.ScheduledFor, &j.Status,
			&j.Attempts, &j.RenderID, &j.VideoURL, &j.Published, &j.YoutubeURL,
			&j.Error, &j.Version, &j.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// update runs a CAS mutation keyed on (id, version). Every successful update
// bumps version so overlapping loop passes cannot double-apply.
func (r *VideoJobRepository) update(ctx context.Context, id string, version int, set string, args ...any) error {
	sql := `UPDATE video_jobs SET ` + set + `, version=version+1 WHERE id=$1 AND version=$2`
	cmd, err := r.db.Exec(ctx, sql, append([]any{id, version}, args...)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, getErr := r.Get(ctx, id); errors.Is(getErr, ErrJobNotFound) {
			return ErrJobNotFound
		}
		return ErrStaleJob
	}
	return nil
}

// MarkProcessing records the submitted render and moves the job to
// PROCESSING. RenderID is written once and never changed afterwards.
func (r *VideoJobRepository) MarkProcessing(ctx context.Context, id string, version int, renderID string) error {
	return r.update(ctx, id, version, `status=$3, render_id=$4, error=NULL`, models.JobProcessing, renderID)
}

// MarkCompleted transitions PROCESSING -> COMPLETED with the resolved asset
// URL and clears any transient error.
func (r *VideoJobRepository) MarkCompleted(ctx context.Context, id string, version int, videoURL string) error {
	return r.update(ctx, id, version, `status=$3, video_url=$4, error=NULL`, models.JobCompleted, videoURL)
}

// MarkFailed transitions the job to FAILED with the provider's message.
func (r *VideoJobRepository) MarkFailed(ctx context.Context, id string, version int, errMsg string) error {
	return r.update(ctx, id, version, `status=$3, error=$4`, models.JobFailed, errMsg)
}

// IncrementAttempts charges one transient failure against the attempt budget
// without changing status.
func (r *VideoJobRepository) IncrementAttempts(ctx context.Context, id string, version int, errMsg string) error {
	return r.update(ctx, id, version, `attempts=attempts+1, error=$3`, errMsg)
}

// SetVideoURL overwrites the asset URL, used once to move from the provider
// CDN to the durable mirror.
func (r *VideoJobRepository) SetVideoURL(ctx context.Context, id string, version int, videoURL string) error {
	return r.update(ctx, id, version, `video_url=$3`, videoURL)
}

// MarkPublished flips published false->true with the host identifier.
func (r *VideoJobRepository) MarkPublished(ctx context.Context, id string, version int, youtubeURL string) error {
	return r.update(ctx, id, version, `published=TRUE, youtube_url=$3, error=NULL`, youtubeURL)
}

// SetError records a publish failure without changing status, leaving the job
// eligible for the next publisher pass.
func (r *VideoJobRepository) SetError(ctx context.Context, id string, version int, errMsg string) error {
	return r.update(ctx, id, version, `error=$3`, errMsg)
}

// ResetForRetry is the manual escape hatch: a FAILED job goes back to
// PROCESSING with a fresh attempt budget. Autonomous loops never call this.
func (r *VideoJobRepository) ResetForRetry(ctx context.Context, id string) (*models.VideoJob, error) {
	job, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobFailed {
		return nil, errors.New("only failed jobs can be retried")
	}
	if err := r.update(ctx, id, job.Version, `status=$3, attempts=0, error=NULL`, models.JobProcessing); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}
