package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jubily/internal/models"
	"jubily/internal/util"
)

var ErrScriptNotFound = errors.New("script not found")

type ScriptRepository struct {
	db *pgxpool.Pool
}

func NewScriptRepository(db *pgxpool.Pool) *ScriptRepository {
	return &ScriptRepository{db: db}
}

// Create persists generated script content. Scripts are immutable once
// written.
func (r *ScriptRepository) Create(ctx context.Context, topicID, content, promptVersion, outputHash string) (*models.Script, error) {
	s := &models.Script{
		ID:            util.NewID("scr"),
		TopicID:       topicID,
		Content:       content,
		PromptVersion: promptVersion,
		OutputHash:    outputHash,
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO scripts (id, topic_id, content, prompt_version, output_hash)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, s.ID, s.TopicID, s.Content, s.PromptVersion, s.OutputHash).Scan(&s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *ScriptRepository) Get(ctx context.Context, id string) (*models.Script, error) {
	var s models.Script
	err := r.db.QueryRow(ctx, `
		SELECT id, topic_id, content, prompt_version, output_hash, created_at
		FROM scripts
		WHERE id=$1
	`, id).Scan(&s.ID, &s.TopicID, &s.Content, &s.PromptVersion, &s.OutputHash, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrScriptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByHash returns an existing script with the same content fingerprint,
// used to skip persisting duplicate generator output.
func (r *ScriptRepository) FindByHash(ctx context.Context, outputHash string) (*models.Script, error) {
	var s models.Script
	err := r.db.QueryRow(ctx, `
		SELECT id, topic_id, content, prompt_version, output_hash, created_at
		FROM scripts
		WHERE output_hash=$1
		LIMIT 1
	`, outputHash).Scan(&s.ID, &s.TopicID, &s.Content, &s.PromptVersion, &s.OutputHash, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrScriptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
