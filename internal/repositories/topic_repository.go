package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jubily/internal/models"
	"jubily/internal/util"
)

var ErrTopicNotFound = errors.New("topic not found")

type TopicRepository struct {
	db *pgxpool.Pool
}

func NewTopicRepository(db *pgxpool.Pool) *TopicRepository {
	return &TopicRepository{db: db}
}

// Create inserts a topic, deduplicating on title: an existing topic with the
// same title is returned unchanged.
func (r *TopicRepository) Create(ctx context.Context, title, source string, score int) (*models.Topic, error) {
	existing, err := r.findByTitle(ctx, title)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrTopicNotFound) {
		return nil, err
	}

	t := &models.Topic{
		ID:     util.NewID("top"),
		Title:  title,
		Source: source,
		Score:  score,
		Status: models.TopicPending,
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO topics (id, title, source, score, status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, t.ID, t.Title, t.Source, t.Score, t.Status).Scan(&t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TopicRepository) findByTitle(ctx context.Context, title string) (*models.Topic, error) {
	var t models.Topic
	err := r.db.QueryRow(ctx, `
		SELECT id, title, source, score, status, created_at
		FROM topics
		WHERE title=$1
	`, title).Scan(&t.ID, &t.Title, &t.Source, &t.Score, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTopicNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TopicRepository) Get(ctx context.Context, id string) (*models.Topic, error) {
	var t models.Topic
	err := r.db.QueryRow(ctx, `
		SELECT id, title, source, score, status, created_at
		FROM topics
		WHERE id=$1
	`, id).Scan(&t.ID, &t.Title, &t.Source, &t.Score, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTopicNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindBestPending returns the highest-scored PENDING topic, most recent first
// on ties, or ErrTopicNotFound when the backlog is empty.
func (r *TopicRepository) FindBestPending(ctx context.Context) (*models.Topic, error) {
	var t models.Topic
	err := r.db.QueryRow(ctx, `
		SELECT id, title, source, score, status, created_at
		FROM topics
		WHERE status=$1
		ORDER BY score DESC, created_at DESC
		LIMIT 1
	`, models.TopicPending).Scan(&t.ID, &t.Title, &t.Source, &t.Score, &t.Status, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTopicNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TopicRepository) MarkUsed(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE topics SET status=$2 WHERE id=$1
	`, id, models.TopicUsed)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTopicNotFound
	}
	return nil
}

func (r *TopicRepository) List(ctx context.Context) ([]models.Topic, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, title, source, score, status, created_at
		FROM topics
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Topic
	for rows.Next() {
		var t models.Topic
		if err := rows.Scan(&t.ID, &t.Title, &t.Source, &t.Score, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
