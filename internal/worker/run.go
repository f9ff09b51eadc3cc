package worker

import (
	"context"
	"sync"
	"time"

	"jubily/internal/pkg/logger"
)

// Run starts the render-poll loop, the publish loop and the slot scheduler
// and blocks until the context is canceled. In-flight passes finish their
// current job before exit.
func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	interval := d.Interval
	if interval == 0 {
		interval = 60 * time.Second
	}

	var wg sync.WaitGroup

	runLoop := func(name string, lease *Lease, pass func(context.Context) error) {
		defer wg.Done()
		loopLog := log.WithComponent(name)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			tick(ctx, name, lease, pass, loopLog)

			select {
			case <-ctx.Done():
				loopLog.Info("loop stopping")
				return
			case <-ticker.C:
			}
		}
	}

	wg.Add(2)
	go runLoop("render-poll-loop", NewLease(d.RDB, "jubily:lease:render-poll", d.LeaseTTL), d.Poller.RunOnce)
	go runLoop("publish-loop", NewLease(d.RDB, "jubily:lease:publish", d.LeaseTTL), d.Publisher.RunOnce)

	if d.Scheduler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.Scheduler.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error("scheduler stopped", "error", err)
			}
		}()
	}

	wg.Wait()
	log.Info("worker stopped")
	return ctx.Err()
}

// tick runs one guarded loop pass. A pass-level failure (typically the
// listing query) is logged and the loop continues on its next tick.
func tick(ctx context.Context, name string, lease *Lease, pass func(context.Context) error, log *logger.Logger) {
	if ctx.Err() != nil {
		return
	}

	ok, err := lease.Acquire(ctx)
	if err != nil {
		log.Warn("lease acquire failed, skipping tick", "error", err)
		return
	}
	if !ok {
		log.Debug("lease held elsewhere, skipping tick")
		return
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("lease release failed", "error", err)
		}
	}()

	start := time.Now()
	if err := pass(ctx); err != nil {
		log.Error("loop pass failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	log.Debug("loop pass complete", "duration_ms", time.Since(start).Milliseconds())
}
