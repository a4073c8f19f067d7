package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/threads-agent/internal/config"
	"github.com/threads-agent/internal/curation"
	"github.com/threads-agent/internal/generation"
	"github.com/threads-agent/internal/hooks"
	"github.com/threads-agent/internal/models"
	"github.com/threads-agent/internal/prompt"
	"github.com/threads-agent/internal/realtime"
	"github.com/threads-agent/internal/scoring"
	"github.com/threads-agent/internal/stream"
	"github.com/threads-agent/pkg/logger"
)

// AnalyticsSource is the read side of the analytics store
type AnalyticsSource interface {
	AccountSummary(ctx context.Context) (models.AccountSummary, error)
	CompetitorPool(ctx context.Context, lookbackDays int) ([]models.Post, error)
	OwnTopPosts(ctx context.Context, limit int) ([]models.OwnPost, error)
	TrendingThemes(ctx context.Context) ([]models.TrendingTheme, error)
	TemplateSummaries(ctx context.Context) ([]models.TemplateSummary, error)
}

// Generator produces validated plans from a composed prompt
type Generator interface {
	GeneratePlans(ctx context.Context, composed string) ([]generation.GeneratedPost, error)
}

// PlanWriter is the write side of the plan store
type PlanWriter interface {
	Upsert(ctx context.Context, update models.PlanUpdate) (*models.Plan, error)
	ReplaceDayBatch(ctx context.Context, generationDate string, updates []models.PlanUpdate) ([]models.Plan, error)
}

// HeadlineSource feeds trend headlines into forced hooks
type HeadlineSource interface {
	FetchHeadlines(ctx context.Context) []realtime.Headline
}

// Result is one pipeline run's outcome. Persisted is false when the plan
// store was unavailable and the plans only exist in memory.
type Result struct {
	GenerationDate string
	Plans          []models.Plan
	Persisted      bool
}

// Pipeline runs one generation batch end to end
type Pipeline struct {
	pipelineCfg config.PipelineConfig
	curationCfg config.CurationConfig
	hooksCfg    config.HooksConfig
	scorer      *scoring.Scorer
	curator     *curation.Curator
	selector    *hooks.Selector
	composer    *prompt.Composer
	generator   Generator
	analytics   AnalyticsSource
	headlines   HeadlineSource
	store       PlanWriter
	rng         *rand.Rand
	clock       func() time.Time
	log         *logger.Logger
}

func New(
	cfg *config.Config,
	scorer *scoring.Scorer,
	curator *curation.Curator,
	selector *hooks.Selector,
	composer *prompt.Composer,
	generator Generator,
	analytics AnalyticsSource,
	headlines HeadlineSource,
	store PlanWriter,
	rng *rand.Rand,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		pipelineCfg: cfg.Pipeline,
		curationCfg: cfg.Curation,
		hooksCfg:    cfg.Hooks,
		scorer:      scorer,
		curator:     curator,
		selector:    selector,
		composer:    composer,
		generator:   generator,
		analytics:   analytics,
		headlines:   headlines,
		store:       store,
		rng:         rng,
		clock:       time.Now,
		log:         log.WithComponent("pipeline"),
	}
}

// analyticsInput is the fan-in of the parallel analytics queries
type analyticsInput struct {
	summary   models.AccountSummary
	pool      []models.Post
	ownPosts  []models.OwnPost
	trending  []models.TrendingTheme
	templates []models.TemplateSummary
}

// Run generates, validates and persists one day's batch, reporting
// progress on the stream. A fatal failure ends the stream with a single
// error event; previously committed plans are never touched.
func (p *Pipeline) Run(ctx context.Context, reporter *stream.Reporter) (*Result, error) {
	startedAt := p.clock()
	generationDate := startedAt.Format("2006-01-02")
	total := p.pipelineCfg.TargetPostCount

	reporter.Stage("initializing", "本日の投稿バッチを準備しています…")

	reporter.Stage("fetching", "アナリティクスからデータを取得中…")
	input, err := p.fetchAnalytics(ctx)
	if err != nil {
		reporter.Error(fmt.Sprintf("アナリティクス取得に失敗しました: %v", err))
		return nil, err
	}
	headlines := p.headlines.FetchHeadlines(ctx)

	reporter.Stage("curating", "高パフォーマンス投稿を選定中…")
	scored := p.scorer.ScoreAll(input.pool)
	exemplars := p.curator.Curate(scored, p.pipelineCfg.ThemeKeywords)

	reporter.Start(total)
	reporter.Stage("generating", fmt.Sprintf("Claudeで投稿を生成中… (%d件)", total))

	composed := p.composer.ComposeBatch(prompt.Input{
		Account:       input.summary,
		Exemplars:     exemplars,
		Trending:      input.trending,
		Templates:     input.templates,
		Requests:      p.buildRequests(total, headlines),
		EnforcedTheme: p.pipelineCfg.EnforcedTheme,
		ThemeKeywords: p.pipelineCfg.ThemeKeywords,
	})

	generated, err := p.generator.GeneratePlans(ctx, composed)
	if err != nil {
		reporter.Error(fmt.Sprintf("生成に失敗しました: %v", err))
		return nil, err
	}
	reporter.Progress("generating", len(generated), total, p.clock().Sub(startedAt))

	reporter.Stage("saving", "プランを保存中…")
	updates := p.buildUpdates(generationDate, generated)

	result := &Result{GenerationDate: generationDate, Persisted: true}
	persisted, err := p.store.ReplaceDayBatch(ctx, generationDate, updates)
	if err != nil {
		// A store outage still yields a usable in-memory batch; this is
		// logged apart from generation failures.
		p.log.Error().Err(err).Str("generation_date", generationDate).Msg("Plan persistence failed, returning in-memory batch")
		reporter.Stage("saving", "保存に失敗したため未保存のプランを返します")
		result.Persisted = false
		result.Plans = p.inMemoryPlans(generationDate, updates)
	} else {
		result.Plans = persisted
	}

	reporter.Complete(len(result.Plans))
	p.log.Info().
		Str("generation_date", generationDate).
		Int("count", len(result.Plans)).
		Bool("persisted", result.Persisted).
		Msg("Pipeline run finished")
	return result, nil
}

// fetchAnalytics fans the five store queries out in parallel
func (p *Pipeline) fetchAnalytics(ctx context.Context) (*analyticsInput, error) {
	var input analyticsInput
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		summary, err := p.analytics.AccountSummary(groupCtx)
		if err != nil {
			return err
		}
		input.summary = summary
		return nil
	})
	group.Go(func() error {
		pool, err := p.analytics.CompetitorPool(groupCtx, p.curationCfg.LookbackDays)
		if err != nil {
			return err
		}
		input.pool = pool
		return nil
	})
	group.Go(func() error {
		ownPosts, err := p.analytics.OwnTopPosts(groupCtx, 10)
		if err != nil {
			return err
		}
		input.ownPosts = ownPosts
		return nil
	})
	group.Go(func() error {
		trending, err := p.analytics.TrendingThemes(groupCtx)
		if err != nil {
			return err
		}
		input.trending = trending
		return nil
	})
	group.Go(func() error {
		templates, err := p.analytics.TemplateSummaries(groupCtx)
		if err != nil {
			return err
		}
		input.templates = templates
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return &input, nil
}

// buildRequests pairs each plan slot with a hooked theme. The first
// forced-count slots get the forced bucket, themed by a trend headline
// when one is available.
func (p *Pipeline) buildRequests(total int, headlines []realtime.Headline) []prompt.ThemedRequest {
	slots := prompt.BuildScheduleSlots(total, p.pipelineCfg.ScheduleStartHour, p.pipelineCfg.ScheduleIntervalMinutes)
	themes := p.pickThemes(total)

	requests := make([]prompt.ThemedRequest, 0, total)
	for i := 0; i < total; i++ {
		theme := themes[i]

		var hook hooks.Hook
		if i < p.hooksCfg.ForcedCount {
			hook = p.selector.SelectForced(p.hooksCfg.ForcedType)
			if i < len(headlines) {
				theme = headlines[i].Title
			}
		} else {
			hook = p.selector.Select()
		}

		requests = append(requests, prompt.ThemedRequest{
			Theme:         hook.Apply(theme),
			HookType:      hook.Type,
			ScheduledTime: slots[i],
		})
	}
	return requests
}

// pickThemes draws without replacement from the theme catalog, cycling
// when the batch is larger than the catalog.
func (p *Pipeline) pickThemes(count int) []string {
	catalog := p.pipelineCfg.Themes
	if len(catalog) == 0 {
		catalog = []string{p.pipelineCfg.EnforcedTheme}
	}

	shuffled := make([]string, len(catalog))
	copy(shuffled, catalog)
	p.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	themes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		themes = append(themes, shuffled[i%len(shuffled)])
	}
	return themes
}

func (p *Pipeline) buildUpdates(generationDate string, generated []generation.GeneratedPost) []models.PlanUpdate {
	updates := make([]models.PlanUpdate, 0, len(generated))
	for i, post := range generated {
		post := post
		planID := post.PlanID
		if planID == "" {
			planID = fmt.Sprintf("gen-%02d", i+1)
		}
		scheduledTime := post.ScheduledTime
		if scheduledTime == "" {
			slots := prompt.BuildScheduleSlots(len(generated), p.pipelineCfg.ScheduleStartHour, p.pipelineCfg.ScheduleIntervalMinutes)
			scheduledTime = slots[i]
		}

		comments := make(models.CommentList, 0, len(post.Comments))
		for j, text := range post.Comments {
			comments = append(comments, models.PlanComment{Order: j + 1, Text: text})
		}

		status := models.PlanStatusDraft
		updates = append(updates, models.PlanUpdate{
			PlanID:         planID,
			GenerationDate: generationDate,
			ScheduledTime:  &scheduledTime,
			TemplateID:     &post.TemplateID,
			Theme:          &post.Theme,
			Status:         &status,
			MainText:       &post.MainPost,
			Comments:       comments,
		})
	}
	return updates
}

func (p *Pipeline) inMemoryPlans(generationDate string, updates []models.PlanUpdate) []models.Plan {
	unsaved := make([]models.Plan, 0, len(updates))
	for _, update := range updates {
		plan := models.Plan{
			PlanID:         update.PlanID,
			GenerationDate: generationDate,
			Comments:       update.Comments,
		}
		if update.ScheduledTime != nil {
			plan.ScheduledTime = *update.ScheduledTime
		}
		if update.TemplateID != nil {
			plan.TemplateID = *update.TemplateID
		}
		if update.Theme != nil {
			plan.Theme = *update.Theme
		}
		if update.Status != nil {
			plan.Status = *update.Status
		}
		if update.MainText != nil {
			plan.MainText = *update.MainText
		}
		unsaved = append(unsaved, plan)
	}
	return unsaved
}

// RunIndividual regenerates a single plan for one theme and upserts it
// into today's batch alongside the existing plans.
func (p *Pipeline) RunIndividual(ctx context.Context, theme string, reporter *stream.Reporter) (*models.Plan, error) {
	startedAt := p.clock()
	generationDate := startedAt.Format("2006-01-02")

	reporter.Stage("initializing", "1件の投稿を再生成しています…")

	input, err := p.fetchAnalytics(ctx)
	if err != nil {
		reporter.Error(fmt.Sprintf("アナリティクス取得に失敗しました: %v", err))
		return nil, err
	}

	scored := p.scorer.ScoreAll(input.pool)
	exemplars := p.curator.Curate(scored, p.pipelineCfg.ThemeKeywords)

	hook := p.selector.Select()
	reporter.Start(1)
	reporter.Stage("generating", "Claudeで投稿を生成中… (1件)")

	composed := p.composer.ComposeBatch(prompt.Input{
		Account:   input.summary,
		Exemplars: exemplars,
		Trending:  input.trending,
		Templates: input.templates,
		Requests: []prompt.ThemedRequest{{
			Theme:         hook.Apply(theme),
			HookType:      hook.Type,
			ScheduledTime: "07:00",
		}},
		EnforcedTheme: p.pipelineCfg.EnforcedTheme,
		ThemeKeywords: p.pipelineCfg.ThemeKeywords,
	})

	generated, err := p.generator.GeneratePlans(ctx, composed)
	if err != nil {
		reporter.Error(fmt.Sprintf("生成に失敗しました: %v", err))
		return nil, err
	}
	if len(generated) == 0 {
		err := fmt.Errorf("generation returned no posts")
		reporter.Error(err.Error())
		return nil, err
	}

	post := generated[0]
	comments := make(models.CommentList, 0, len(post.Comments))
	for j, text := range post.Comments {
		comments = append(comments, models.PlanComment{Order: j + 1, Text: text})
	}

	status := models.PlanStatusDraft
	planID := fmt.Sprintf("threads-op-individual-%d", startedAt.Unix())
	plan, err := p.store.Upsert(ctx, models.PlanUpdate{
		PlanID:         planID,
		GenerationDate: generationDate,
		TemplateID:     &post.TemplateID,
		Theme:          &post.Theme,
		Status:         &status,
		MainText:       &post.MainPost,
		Comments:       comments,
	})
	if err != nil {
		reporter.Error(fmt.Sprintf("保存に失敗しました: %v", err))
		return nil, err
	}

	reporter.Complete(1)
	return plan, nil
}
