package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"jubily/internal/ai"
	"jubily/internal/httpapi"
	"jubily/internal/httpapi/handlers"
	"jubily/internal/logsink"
	"jubily/internal/orchestrator"
	"jubily/internal/pkg/logger"
	"jubily/internal/pkg/shutdown"
	"jubily/internal/render"
	"jubily/internal/repositories"
	"jubily/internal/settings"
	"jubily/internal/storage"
	"jubily/internal/util"
)

func main() {
	_ = godotenv.Load()

	log := logger.New(logger.Config{
		Level:       util.Env("LOG_LEVEL", "info"),
		Format:      util.Env("LOG_FORMAT", "json"),
		ServiceName: "jubily-api",
	})

	log.Info("starting jubily API", "version", "0.1.0")

	httpPort := util.Env("HTTP_PORT", "8080")
	dbURL := util.MustEnv("DATABASE_URL")
	redisAddr := util.MustEnv("REDIS_ADDR")

	ctx := context.Background()

	shutdownMgr := shutdown.NewManager(log, 30*time.Second)

	log.Info("connecting to PostgreSQL")
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.LogFatal("failed to connect to PostgreSQL", err)
	}
	shutdownMgr.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})
	if err := pool.Ping(ctx); err != nil {
		log.LogFatal("failed to ping PostgreSQL", err)
	}
	log.Info("PostgreSQL connected")

	log.Info("connecting to Redis")
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	shutdownMgr.Register("redis", func(ctx context.Context) error {
		return rdb.Close()
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.LogFatal("failed to ping Redis", err)
	}
	log.Info("Redis connected")

	log.Info("initializing storage provider")
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

	generator := ai.New(
		util.MustEnv("OPENAI_API_KEY"),
		util.Env("OPENAI_MODEL", "gpt-4o-mini"),
	)
	submitter := render.NewClient(
		util.MustEnv("RENDER_API_BASEURL"),
		util.MustEnv("RENDER_API_KEY"),
		render.WithTimeout(callTimeout),
		render.WithBackgroundImage(util.Env("RENDER_BG_IMAGE_URL", "")),
	)

	orch := orchestrator.New(
		settingsSvc, topics, offers, scripts, jobs,
		generator, submitter,
		util.Env("AI_PROMPT_VERSION", "v1"),
		log,
	)

	var logs handlers.LogReader
	if util.Env("GOOGLE_SHEET_ID", "") != "" {
		sheets, err := logsink.NewSheets(ctx, log)
		if err != nil {
			log.LogFatal("failed to initialize sheets log", err)
		}
		logs = sheets
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Pool:         pool,
		RDB:          rdb,
		SP:           sp,
		Settings:     settingsSvc,
		Topics:       topics,
		Offers:       offers,
		Jobs:         jobs,
		Orchestrator: orch,
		Logs:         logs,
		Log:          log,
	})

	server := &http.Server{
		Addr:         "0.0.0.0:" + httpPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownMgr.Register("http-server", func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return server.Shutdown(ctx)
	})

	go func() {
		log.Info("HTTP server listening", "addr", server.Addr, "port", httpPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogFatal("HTTP server failed", err)
		}
	}()

	shutdownMgr.Wait()
}
