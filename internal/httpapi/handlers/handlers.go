// Package handlers implements the control-plane HTTP endpoints: manual slot
// runs, topic and offer ingestion, job inspection and the automation switch.
package handlers

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"jubily/internal/orchestrator"
	"jubily/internal/pkg/logger"
	"jubily/internal/ports"
	"jubily/internal/repositories"
	"jubily/internal/settings"
)

// LogReader exposes the recent rows of the publish log. Optional; the
// workflow endpoint omits log rows when nil.
type LogReader interface {
	Recent(ctx context.Context, limit int) ([][]any, error)
}

type Deps struct {
	Pool         *pgxpool.Pool
	RDB          *redis.Client
	SP           ports.StorageProvider
	Settings     *settings.Service
	Topics       *repositories.TopicRepository
	Offers       *repositories.OfferRepository
	Jobs         *repositories.VideoJobRepository
	Orchestrator *orchestrator.Orchestrator
	Logs         LogReader
	Log          *logger.Logger
}

type Handler struct {
	pool     *pgxpool.Pool
	rdb      *redis.Client
	sp       ports.StorageProvider
	settings *settings.Service
	topics   *repositories.TopicRepository
	offers   *repositories.OfferRepository
	jobs     *repositories.VideoJobRepository
	orch     *orchestrator.Orchestrator
	logs     LogReader
	log      *logger.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	return &Handler{
		pool:     d.Pool,
		rdb:      d.RDB,
		sp:       d.SP,
		settings: d.Settings,
		topics:   d.Topics,
		offers:   d.Offers,
		jobs:     d.Jobs,
		orch:     d.Orchestrator,
		logs:     d.Logs,
		log:      log.WithComponent("httpapi"),
	}
}
