package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"jubily/internal/ai"
	"jubily/internal/logsink"
	"jubily/internal/orchestrator"
	"jubily/internal/pkg/logger"
	"jubily/internal/publish"
	"jubily/internal/render"
	"jubily/internal/repositories"
	"jubily/internal/settings"
	"jubily/internal/storage"
	"jubily/internal/timeutil"
	"jubily/internal/util"
	"jubily/internal/videohost"
	"jubily/internal/worker"
)

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "jubily-worker",
	})

	log.Info("starting jubily worker", "version", "0.1.0")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbURL := util.MustEnv("DATABASE_URL")
	redisAddr := util.MustEnv("REDIS_ADDR")

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}

	sp, err := storage.NewProvider(ctx)
	if err != nil {
		log.LogFatal("failed to initialize storage provider", err)
	}
	log.Info("storage provider initialized", "provider", sp.Provider())

	settingsSvc := settings.NewService(pool)
	topics := repositories.NewTopicRepository(pool)
	offers := repositories.NewOfferRepository(pool)
	scripts := repositories.NewScriptRepository(pool)
	jobs := repositories.NewVideoJobRepository(pool)

	callTimeout := util.DurationEnv("EXTERNAL_CALL_TIMEOUT", 20*time.Second)
	interval := util.DurationEnv("LOOP_INTERVAL", 60*time.Second)
	attemptCap := util.IntEnv("RENDER_ATTEMPT_CAP", 6)

	renderBase := util.MustEnv("RENDER_API_BASEURL")
	renderKey := util.MustEnv("RENDER_API_KEY")
	status := render.NewClient(renderBase, renderKey,
		render.WithTimeout(callTimeout),
		render.WithBackgroundImage(util.Env("RENDER_BG_IMAGE_URL", "")),
	)
	serve := render.NewServeClient(
		util.MustEnv("RENDER_SERVE_BASEURL"),
		renderKey,
		render.ServeWithTimeout(callTimeout),
	)

	var sink logsink.Sink = logsink.Nop{}
	if util.Env("GOOGLE_SHEET_ID", "") != "" {
		sheets, err := logsink.NewSheets(ctx, log)
		if err != nil {
			log.LogFatal("failed to initialize sheets log", err)
		}
		sink = sheets
	}

	host, err := videohost.NewYouTube(ctx)
	if err != nil {
		log.LogFatal("failed to initialize video host", err)
	}

	mirror := publish.NewMirror(sp, callTimeout)

	poller := worker.NewRenderPoller(jobs, status, serve, sink, attemptCap, callTimeout, log)
	publisher := worker.NewPublisher(jobs, scripts, topics, offers, serve, mirror, host, sink, callTimeout, log)

	generator := ai.New(
		util.MustEnv("OPENAI_API_KEY"),
		util.Env("OPENAI_MODEL", "gpt-4o-mini"),
	)
	orch := orchestrator.New(
		settingsSvc, topics, offers, scripts, jobs,
		generator, status,
		util.Env("AI_PROMPT_VERSION", "v1"),
		log,
	)

	loc, err := time.LoadLocation(util.Env("TIMEZONE", "America/New_York"))
	if err != nil {
		log.LogFatal("invalid TIMEZONE", err)
	}
	hours := timeutil.DefaultSlotHours
	scheduler := worker.NewScheduler(orch, loc, hours, log)

	deps := worker.Deps{
		RDB:       rdb,
		Poller:    poller,
		Publisher: publisher,
		Scheduler: scheduler,
		Interval:  interval,
		LeaseTTL:  util.DurationEnv("LEASE_TTL", 5*time.Minute),
		Log:       log,
	}

	log.Info("worker loops starting", "interval", interval.String(), "attempt_cap", attemptCap)
	if err := worker.Run(ctx, deps); err != nil && ctx.Err() == nil {
		log.LogFatal("worker stopped unexpectedly", err)
	}
	log.Info("worker shut down cleanly")
}
