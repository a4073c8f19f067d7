package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/threads-agent/internal/analytics"
	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/internal/curation"
	"github.com/threads-agent/internal/generation"
	"github.com/threads-agent/internal/hooks"
	"github.com/threads-agent/internal/jobs"
	"github.com/threads-agent/internal/models"
	"github.com/threads-agent/internal/pipeline"
	"github.com/threads-agent/internal/plans"
	"github.com/threads-agent/internal/prompt"
	"github.com/threads-agent/internal/realtime"
	"github.com/threads-agent/internal/scoring"
	"github.com/threads-agent/internal/stream"
	"github.com/threads-agent/pkg/logger"
	"github.com/threads-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	store   *plans.Store
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "threads-agent",
		Short: "Threads content operation agent powered by AI",
		Long: `An autonomous agent that curates growth analytics, generates a daily
batch of Threads posts with Claude and manages the approval pipeline.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(plansCmd())
	rootCmd.AddCommand(summaryCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	// Plan store and job queue share one SQLite connection
	db, err := plans.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	store = plans.NewWithDB(db, jobs.NewTrigger(db, log), log)

	// Run migrations
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// buildPipeline wires the full generation pipeline
func buildPipeline() (*pipeline.Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	chDB, err := analytics.Connect(cfg.Analytics, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to analytics store: %w", err)
	}
	gateway := analytics.NewGateway(chDB, log)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	selector, err := hooks.NewSelector(cfg.Hooks.Buckets, rng)
	if err != nil {
		return nil, fmt.Errorf("invalid hook configuration: %w", err)
	}

	limiter := ratelimit.NewDefaultLimiter()
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
	return pipe, nil
}

// ============ GENERATE COMMANDS ============

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Content generation commands",
	}

	cmd.AddCommand(generateRunCmd())
	cmd.AddCommand(generateOneCmd())
	return cmd
}

func generateRunCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate and persist today's post batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pipe, err := buildPipeline()
			if err != nil {
				return err
			}

			reporter := stream.NewReporter(os.Stdout, log)
			if quiet {
				reporter = stream.NewReporter(io.Discard, log)
			}

			result, err := pipe.Run(ctx, reporter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Generation Results ===\n")
			fmt.Printf("Date:      %s\n", result.GenerationDate)
			fmt.Printf("Plans:     %d\n", len(result.Plans))
			fmt.Printf("Persisted: %v\n", result.Persisted)
			if !result.Persisted {
				fmt.Println("\nWARNING: plans were not saved; review the batch below")
			}
			for _, p := range result.Plans {
				fmt.Printf("\n[%s] %s | %s\n", p.PlanID, p.ScheduledTime, p.Theme)
				fmt.Printf("    %s\n", truncateStr(p.MainText, 100))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Suppress the NDJSON progress stream")
	return cmd
}

func generateOneCmd() *cobra.Command {
	var theme string

	cmd := &cobra.Command{
		Use:   "one",
		Short: "Regenerate a single plan for a given theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pipe, err := buildPipeline()
			if err != nil {
				return err
			}

			reporter := stream.NewReporter(io.Discard, log)
			plan, err := pipe.RunIndividual(ctx, theme, reporter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Generated Plan ===\n")
			fmt.Printf("Plan ID: %s\n", plan.PlanID)
			fmt.Printf("Date:    %s\n", plan.GenerationDate)
			fmt.Printf("Time:    %s\n", plan.ScheduledTime)
			fmt.Printf("Theme:   %s\n", plan.Theme)
			fmt.Printf("\n--- Main Post ---\n%s\n", plan.MainText)
			for _, c := range plan.Comments {
				fmt.Printf("\n--- Comment %d ---\n%s\n", c.Order, c.Text)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&theme, "theme", "", "Theme to generate for (required)")
	cmd.MarkFlagRequired("theme")
	return cmd
}

// ============ PLANS COMMANDS ============

func plansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List and manage content plans",
	}

	cmd.AddCommand(plansListCmd())
	cmd.AddCommand(plansApproveCmd())
	cmd.AddCommand(plansRejectCmd())
	cmd.AddCommand(plansEditCmd())
	cmd.AddCommand(plansSeedCmd())
	return cmd
}

func today() string {
	return time.Now().Format("2006-01-02")
}

func plansListCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List plans for a day with job and posting state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			summaries, err := store.ListDaySummaries(ctx, date)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Plans for %s (%d) ===\n\n", date, len(summaries))
			for _, s := range summaries {
				fmt.Printf("[%s] %s | %s | %s\n", s.PlanID, s.ScheduledTime, s.Status, s.Theme)
				fmt.Printf("    %s\n", truncateStr(s.MainText, 100))
				if s.JobStatus != "" {
					fmt.Printf("    Job: %s", s.JobStatus)
					if s.JobErrorMessage != "" {
						fmt.Printf(" (%s)", s.JobErrorMessage)
					}
					fmt.Println()
				}
				if s.LogPostedThreadID != "" {
					fmt.Printf("    Thread: %s\n", s.LogPostedThreadID)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", today(), "Generation date (YYYY-MM-DD)")
	return cmd
}

func plansApproveCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "approve [plan-id]",
		Short: "Approve a plan and queue its publishing job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			plan, err := store.UpdateStatus(ctx, args[0], date, models.PlanStatusApproved)
			if err != nil {
				return err
			}

			fmt.Printf("Plan %s approved, scheduled for %s %s\n", plan.PlanID, plan.GenerationDate, plan.ScheduledTime)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", today(), "Generation date (YYYY-MM-DD)")
	return cmd
}

func plansRejectCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "reject [plan-id]",
		Short: "Reject a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			plan, err := store.UpdateStatus(ctx, args[0], date, models.PlanStatusRejected)
			if err != nil {
				return err
			}

			fmt.Printf("Plan %s rejected\n", plan.PlanID)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", today(), "Generation date (YYYY-MM-DD)")
	return cmd
}

func plansEditCmd() *cobra.Command {
	var date, text, at, theme string

	cmd := &cobra.Command{
		Use:   "edit [plan-id]",
		Short: "Edit fields of a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			update := models.PlanUpdate{PlanID: args[0], GenerationDate: date}
			if text != "" {
				update.MainText = &text
			}
			if at != "" {
				if _, err := time.Parse("15:04", at); err != nil {
					return fmt.Errorf("invalid time format, use: HH:MM")
				}
				update.ScheduledTime = &at
			}
			if theme != "" {
				update.Theme = &theme
			}
			if update.MainText == nil && update.ScheduledTime == nil && update.Theme == nil {
				return fmt.Errorf("nothing to update: pass --text, --at or --theme")
			}

			plan, err := store.Upsert(ctx, update)
			if err != nil {
				return err
			}

			fmt.Printf("Plan %s updated\n", plan.PlanID)
			fmt.Printf("  Time:  %s\n", plan.ScheduledTime)
			fmt.Printf("  Theme: %s\n", plan.Theme)
			fmt.Printf("  Text:  %s\n", truncateStr(plan.MainText, 100))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", today(), "Generation date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&text, "text", "", "New main text")
	cmd.Flags().StringVar(&at, "at", "", "New scheduled time (HH:MM)")
	cmd.Flags().StringVar(&theme, "theme", "", "New theme")
	return cmd
}

func plansSeedCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed an empty day with plans from past top posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			// Seeding prefers real past posts; fall back to the
			// placeholder when the analytics store is unreachable.
			var ownPosts []models.OwnPost
			chDB, err := analytics.Connect(cfg.Analytics, log)
			if err != nil {
				log.Warn().Err(err).Msg("Analytics store unavailable, seeding with placeholder")
			} else {
				defer chDB.Close()
				gateway := analytics.NewGateway(chDB, log)
				ownPosts, err = gateway.OwnTopPosts(ctx, cfg.Pipeline.TargetPostCount)
				if err != nil {
					log.Warn().Err(err).Msg("Failed to fetch own posts, seeding with placeholder")
				}
			}

			slots := prompt.BuildScheduleSlots(
				cfg.Pipeline.TargetPostCount,
				cfg.Pipeline.ScheduleStartHour,
				cfg.Pipeline.ScheduleIntervalMinutes,
			)

			seeded, didSeed, err := store.SeedDayIfEmpty(ctx, date, ownPosts, slots)
			if err != nil {
				return err
			}

			if !didSeed {
				fmt.Printf("Day %s already has %d plans, nothing seeded\n", date, len(seeded))
				return nil
			}

			fmt.Printf("Seeded %d plans for %s:\n", len(seeded), date)
			for _, p := range seeded {
				fmt.Printf("  [%s] %s | %s\n", p.PlanID, p.ScheduledTime, p.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", today(), "Generation date (YYYY-MM-DD)")
	return cmd
}

// ============ SUMMARY COMMAND ============

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show account trajectory, trending themes and template scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			chDB, err := analytics.Connect(cfg.Analytics, log)
			if err != nil {
				return fmt.Errorf("failed to connect to analytics store: %w", err)
			}
			defer chDB.Close()
			gateway := analytics.NewGateway(chDB, log)

			summary, err := gateway.AccountSummary(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch account summary: %w", err)
			}

			fmt.Printf("\n=== Account Summary (last %d days) ===\n", len(summary.RecentDates))
			fmt.Printf("Avg Followers:     %d (%+d)\n", summary.AverageFollowers, summary.FollowersChange)
			fmt.Printf("Avg Profile Views: %d (%+d)\n", summary.AverageProfileView, summary.ProfileViewsChange)
			fmt.Printf("Total Views:       %d\n", summary.TotalProfileViews)

			trending, err := gateway.TrendingThemes(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch trending themes: %w", err)
			}

			fmt.Printf("\n=== Trending Themes (%d) ===\n", len(trending))
			for _, t := range trending {
				fmt.Printf("%-20s %+8.1f followers/day | %s\n",
					t.ThemeTag, t.AvgFollowersDelta, strings.Join(t.SampleAccounts, ", "))
			}

			templates, err := gateway.TemplateSummaries(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch template summaries: %w", err)
			}

			fmt.Printf("\n=== Template Performance (%d) ===\n", len(templates))
			for _, t := range templates {
				fmt.Printf("%-24s %-12s imp %8.0f | likes %6.1f | posts %d\n",
					t.TemplateID, t.Status, t.ImpressionAvg, t.LikeAvg, t.PostCount)
			}

			return nil
		},
	}

	return cmd
}

// Helper function to truncate strings
func truncateStr(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
