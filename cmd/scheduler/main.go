package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/threads-agent/internal/analytics"
	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/internal/curation"
	"github.com/threads-agent/internal/generation"
	"github.com/threads-agent/internal/hooks"
	"github.com/threads-agent/internal/jobs"
	"github.com/threads-agent/internal/pipeline"
	"github.com/threads-agent/internal/plans"
	"github.com/threads-agent/internal/prompt"
	"github.com/threads-agent/internal/realtime"
	"github.com/threads-agent/internal/scoring"
	"github.com/threads-agent/internal/server"
	"github.com/threads-agent/internal/stream"
	"github.com/threads-agent/internal/threads"
	"github.com/threads-agent/pkg/logger"
	"github.com/threads-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "threads-scheduler",
		Short: "Background scheduler for the Threads operation agent",
		Long: `Runs the nightly generation batch and the publishing job worker on cron,
and serves the generation stream and plan endpoints over HTTP.
This daemon should be run as a service for autonomous operation.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	log.Info().Msg("Starting Threads agent scheduler")

	// Plan store and job queue share one SQLite connection
	db, err := plans.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	trigger := jobs.NewTrigger(db, log)
	store := plans.NewWithDB(db, trigger, log)
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Analytics store (ClickHouse)
	chDB, err := analytics.Connect(cfg.Analytics, log)
	if err != nil {
		return fmt.Errorf("failed to connect to analytics store: %w", err)
	}
	defer chDB.Close()
	gateway := analytics.NewGateway(chDB, log)

	limiter := buildLimiter(cfg.RateLimit)

	// Generation pipeline
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	selector, err := hooks.NewSelector(cfg.Hooks.Buckets, rng)
	if err != nil {
		return fmt.Errorf("invalid hook configuration: %w", err)
	}
	validator := &generation.Validator{
		EnforcedTheme: cfg.Pipeline.EnforcedTheme,
		ThemeKeywords: cfg.Pipeline.ThemeKeywords,
	}
	pipe := pipeline.New(
		cfg,
		scoring.New(cfg.Scoring),
		curation.New(cfg.Curation, rng),
		selector,
		prompt.NewComposer(),
		generation.NewClient(cfg.Anthropic, validator, limiter, log),
		gateway,
		realtime.New(cfg.Realtime, log),
		store,
		rng,
		log,
	)

	// Job worker publishing through the Threads Graph API
	publisher := threads.NewClient(cfg.Threads, limiter, log)
	worker := jobs.NewWorker(db, store, publisher, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create cron scheduler
	c := cron.New(cron.WithLogger(cronLogger{log}))

	// Schedule the nightly generation batch
	_, err = c.AddFunc(cfg.Scheduler.GenerateCron, func() {
		log.Info().Msg("Running scheduled generation")

		reporter := stream.NewReporter(io.Discard, log)
		result, err := pipe.Run(ctx, reporter)
		if err != nil {
			log.Error().Err(err).Msg("Scheduled generation failed")
			return
		}

		log.Info().
			Str("generation_date", result.GenerationDate).
			Int("plans", len(result.Plans)).
			Bool("persisted", result.Persisted).
			Msg("Scheduled generation completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule generation job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.GenerateCron).Msg("Generation job scheduled")

	// Schedule the publishing worker tick
	_, err = c.AddFunc(cfg.Scheduler.WorkerCron, func() {
		if err := worker.Tick(ctx); err != nil {
			log.Error().Err(err).Msg("Worker tick failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule worker job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.WorkerCron).Msg("Worker job scheduled")

	// HTTP surface: generation stream + plan endpoints
	srv := server.New(*cfg, pipe, store, gateway, log)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run(ctx)
	}()

	// Start scheduler
	c.Start()
	log.Info().Msg("Scheduler started")

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	log.Info().Msg("Shutting down scheduler")
	stop()
	<-c.Stop().Done()

	return nil
}

// buildLimiter creates the shared rate limiter from config
func buildLimiter(cfg config.RateLimitConfig) *ratelimit.MultiLimiter {
	m := ratelimit.NewDefaultLimiter()
	if cfg.AnthropicRequestsPerMinute > 0 {
		m.AddLimiter(ratelimit.LimiterAnthropic, float64(cfg.AnthropicRequestsPerMinute)/60, 2)
	}
	if cfg.AnalyticsRequestsPerSecond > 0 {
		m.AddLimiter(ratelimit.LimiterAnalytics, float64(cfg.AnalyticsRequestsPerSecond), 10)
	}
	if cfg.FeedRequestsPerSecond > 0 {
		m.AddLimiter(ratelimit.LimiterFeeds, float64(cfg.FeedRequestsPerSecond), 5)
	}
	return m
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}
