package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stemsi/examrunner/internal/clock"
	"github.com/stemsi/examrunner/internal/config"
	"github.com/stemsi/examrunner/internal/database"
	"github.com/stemsi/examrunner/internal/handler"
	"github.com/stemsi/examrunner/internal/logger"
	"github.com/stemsi/examrunner/internal/questionbank"
	"github.com/stemsi/examrunner/internal/router"
	"github.com/stemsi/examrunner/internal/service"
	"github.com/stemsi/examrunner/internal/session"
	"github.com/stemsi/examrunner/internal/validator"
	"github.com/stemsi/examrunner/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Dur("time_limit", cfg.TotalTimeLimit).
		Str("question_source", cfg.QuestionSource).
		Msg("Starting exam runner")

	policy, err := session.ParseScoringPolicy(cfg.ScoringPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid SCORING_POLICY")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Question Source ───────────────────────────────────────────────
	var (
		source questionbank.Source
		pool   *pgxpool.Pool
	)
	switch cfg.QuestionSource {
	case config.QuestionSourcePostgres:
		pool, err = database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		source = questionbank.NewPostgresSource(pool)
	case config.QuestionSourceFile:
		source = questionbank.NewFileSource(cfg.QuestionDir)
	default:
		log.Fatal().Str("source", cfg.QuestionSource).Msg("Unknown QUESTION_SOURCE")
	}

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
		cached := questionbank.NewCachedSource(source, rdb, cfg.QuestionCacheTTL, log)

		// Load the default set into Redis BEFORE accepting traffic.
		if err := cached.Warm(ctx, cfg.DefaultQuestionSet); err != nil {
			log.Warn().Err(err).Msg("Cache prewarm failed")
		}
		source = cached
	}

	// ─── Initialize Services ──────────────────────────────────────────
	examService := service.NewExamService(source, clock.Real(), service.ExamConfig{
		TotalTimeLimit: cfg.TotalTimeLimit,
		TickInterval:   cfg.TickInterval,
		ScoringPolicy:  policy,
		DefaultSetID:   cfg.DefaultQuestionSet,
	}, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(examService),
		WS:      handler.NewWSHandler(log, cfg.AllowedOrigins, cfg.TickInterval),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	reaperDone := make(chan struct{})

	reaper := worker.NewReaperWorker(examService, cfg.ReaperInterval, cfg.SessionRetention, log)
	go func() {
		reaper.Start(workerCtx)
		close(reaperDone)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(examService, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the reaper; it finishes every session still in progress.
	workerCancel()
	select {
	case <-reaperDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Reaper did not stop in time")
	}

	log.Info().Int("sessions", examService.Count()).Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
