package worker

import (
	"context"
	"time"

	"jubily/internal/models"
	"jubily/internal/orchestrator"
	"jubily/internal/pkg/logger"
)

// SlotRunner is the orchestrator entry point the scheduler fires.
type SlotRunner interface {
	RunSlot(ctx context.Context, slot models.Slot, requestedTime time.Time) (*orchestrator.RunResult, error)
}

// Scheduler fires one production run per slot per day at the configured
// wall-clock hour in the configured timezone. Missed or duplicate firings are
// harmless; the (slot, hour) idempotency key absorbs them.
type Scheduler struct {
	runner SlotRunner
	loc    *time.Location
	hours  map[models.Slot]int
	log    *logger.Logger
}

func NewScheduler(runner SlotRunner, loc *time.Location, hours map[models.Slot]int, log *logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		runner: runner,
		loc:    loc,
		hours:  hours,
		log:    log.WithComponent("scheduler"),
	}
}

// Run blocks until the context is canceled, firing slots as they come due.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		slot, at := s.next(time.Now())
		s.log.Info("next scheduled run", "slot", slot, "at", at.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(at))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if res, err := s.runner.RunSlot(ctx, slot, at); err != nil {
			s.log.Error("scheduled run failed", "slot", slot, "error", err)
		} else if res.Skipped != "" {
			s.log.Info("scheduled run skipped", "slot", slot, "reason", res.Skipped)
		} else {
			s.log.Info("scheduled run created job", "slot", slot, "job_id", res.JobID)
		}
	}
}

// next returns the earliest upcoming slot occurrence strictly after now.
func (s *Scheduler) next(now time.Time) (models.Slot, time.Time) {
	local := now.In(s.loc)

	var bestSlot models.Slot
	var bestAt time.Time
	for slot, hour := range s.hours {
		at := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, s.loc)
		if !at.After(local) {
			at = at.AddDate(0, 0, 1)
		}
		if bestAt.IsZero() || at.Before(bestAt) {
			bestSlot, bestAt = slot, at
		}
	}
	return bestSlot, bestAt
}
