package worker

import (
	"time"

	"github.com/redis/go-redis/v9"

	"jubily/internal/pkg/logger"
)

// Deps wires the worker's loops. Poller and Publisher tick every Interval;
// Scheduler fires slot runs on its own wall-clock timetable.
type Deps struct {
	RDB       *redis.Client
	Poller    *RenderPoller
	Publisher *Publisher
	Scheduler *Scheduler
	Interval  time.Duration
	LeaseTTL  time.Duration
	Log       *logger.Logger
}
