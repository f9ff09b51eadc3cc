// Package settings stores the single app-settings row gating automation.
// The row is created lazily on first read so a fresh database never blocks a
// scheduled run on missing configuration.
package settings

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"jubily/internal/models"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// Get returns the current settings, inserting the default row if absent.
func (s *Service) Get(ctx context.Context) (*models.Settings, error) {
	var out models.Settings
	err := s.db.QueryRow(ctx, `
		INSERT INTO app_settings (id) VALUES ('app')
		ON CONFLICT (id) DO UPDATE SET id=EXCLUDED.id
		RETURNING automation_enabled, timezone, updated_at
	`).Scan(&out.AutomationEnabled, &out.Timezone, &out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update overwrites the automation flag and timezone.
func (s *Service) Update(ctx context.Context, automationEnabled bool, timezone string) (*models.Settings, error) {
	var out models.Settings
	err := s.db.QueryRow(ctx, `
		INSERT INTO app_settings (id, automation_enabled, timezone, updated_at)
		VALUES ('app', $1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET automation_enabled=$1, timezone=$2, updated_at=now()
		RETURNING automation_enabled, timezone, updated_at
	`, automationEnabled, timezone).Scan(&out.AutomationEnabled, &out.Timezone, &out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
