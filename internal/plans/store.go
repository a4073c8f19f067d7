package plans

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/threads-agent/internal/models"
	"github.com/threads-agent/pkg/logger"
)

// seedStatuses gives a freshly seeded day a realistic spread of states
var seedStatuses = []models.PlanStatus{
	models.PlanStatusDraft,
	models.PlanStatusApproved,
	models.PlanStatusScheduled,
}

// seedPlaceholderText fills the single seed plan when no own posts exist yet
const seedPlaceholderText = "まだ投稿データがありません。生成を実行すると本日のプランがここに表示されます。"

// JobTrigger ensures a downstream publishing job exists for an approved
// plan. Creation must be idempotent per plan.
type JobTrigger interface {
	EnsureJobForPlan(ctx context.Context, plan *models.Plan) (*models.Job, error)
}

// Store persists plans in SQLite through gorm
type Store struct {
	db      *gorm.DB
	trigger JobTrigger
	log     *logger.Logger
}

// Open opens the SQLite database at the given DSN, creating the data
// directory when needed. The connection is shared between the store and
// the job queue.
func Open(dsn string) (*gorm.DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// New opens the plan store at the given DSN
func New(dsn string, trigger JobTrigger, log *logger.Logger) (*Store, error) {
	db, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	return NewWithDB(db, trigger, log), nil
}

// NewWithDB wraps an existing gorm connection
func NewWithDB(db *gorm.DB, trigger JobTrigger, log *logger.Logger) *Store {
	return &Store{db: db, trigger: trigger, log: log.WithComponent("plans")}
}

// Migrate runs database migrations
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&models.Plan{},
		&models.Job{},
		&models.PostingLog{},
	)
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB exposes the underlying connection for collaborators sharing the store
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Upsert inserts or partially updates a plan keyed by (plan_id,
// generation_date). Only fields set on the update are written; unset
// fields keep their stored values. The write is a single conditional
// insert-or-update, safe under concurrent regeneration.
func (s *Store) Upsert(ctx context.Context, update models.PlanUpdate) (*models.Plan, error) {
	if update.PlanID == "" || update.GenerationDate == "" {
		return nil, fmt.Errorf("upsert requires plan_id and generation_date")
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, fmt.Errorf("unknown plan status %q", *update.Status)
	}

	plan := models.Plan{
		PlanID:         update.PlanID,
		GenerationDate: update.GenerationDate,
	}
	assignments := map[string]interface{}{"updated_at": time.Now()}

	if update.ScheduledTime != nil {
		plan.ScheduledTime = *update.ScheduledTime
		assignments["scheduled_time"] = *update.ScheduledTime
	}
	if update.TemplateID != nil {
		plan.TemplateID = *update.TemplateID
		assignments["template_id"] = *update.TemplateID
	}
	if update.Theme != nil {
		plan.Theme = *update.Theme
		assignments["theme"] = *update.Theme
	}
	if update.Status != nil {
		plan.Status = *update.Status
		assignments["status"] = string(*update.Status)
	}
	if update.MainText != nil {
		plan.MainText = *update.MainText
		assignments["main_text"] = *update.MainText
	}
	if update.Comments != nil {
		plan.Comments = update.Comments
		encoded, err := update.Comments.Value()
		if err != nil {
			return nil, fmt.Errorf("encode comments: %w", err)
		}
		assignments["comments"] = encoded
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "plan_id"}, {Name: "generation_date"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&plan).Error
	if err != nil {
		return nil, fmt.Errorf("upsert plan %s/%s: %w", update.PlanID, update.GenerationDate, err)
	}

	return s.Get(ctx, update.PlanID, update.GenerationDate)
}

// Get loads one plan by its key
func (s *Store) Get(ctx context.Context, planID, generationDate string) (*models.Plan, error) {
	var plan models.Plan
	err := s.db.WithContext(ctx).
		Where("plan_id = ? AND generation_date = ?", planID, generationDate).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListDay returns all plans for a generation date ordered by posting slot
func (s *Store) ListDay(ctx context.Context, generationDate string) ([]models.Plan, error) {
	var dayPlans []models.Plan
	err := s.db.WithContext(ctx).
		Where("generation_date = ?", generationDate).
		Order("scheduled_time, plan_id").
		Find(&dayPlans).Error
	if err != nil {
		return nil, err
	}
	return dayPlans, nil
}

// ReplaceDayBatch writes a regenerated batch as N per-plan upserts. It is
// never a delete-then-insert, so concurrent readers always observe at
// least the previous plans mid-replacement.
func (s *Store) ReplaceDayBatch(ctx context.Context, generationDate string, updates []models.PlanUpdate) ([]models.Plan, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("refusing to replace day %s with an empty batch", generationDate)
	}

	for _, update := range updates {
		update.GenerationDate = generationDate
		if _, err := s.Upsert(ctx, update); err != nil {
			return nil, err
		}
	}

	s.log.Info().Str("generation_date", generationDate).Int("count", len(updates)).Msg("Replaced day batch")
	return s.ListDay(ctx, generationDate)
}

// UpdateStatus applies one transition from the approval state machine.
// Approving a plan also ensures its publishing job exists.
func (s *Store) UpdateStatus(ctx context.Context, planID, generationDate string, next models.PlanStatus) (*models.Plan, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("unknown plan status %q", next)
	}

	plan, err := s.Get(ctx, planID, generationDate)
	if err != nil {
		return nil, err
	}

	if !plan.Status.CanTransitionTo(next) {
		return nil, &models.ErrInvalidTransition{From: plan.Status, To: next}
	}

	if plan.Status != next {
		err = s.db.WithContext(ctx).Model(&models.Plan{}).
			Where("plan_id = ? AND generation_date = ?", planID, generationDate).
			Updates(map[string]interface{}{"status": string(next), "updated_at": time.Now()}).Error
		if err != nil {
			return nil, fmt.Errorf("update status: %w", err)
		}
		plan.Status = next
	}

	if next == models.PlanStatusApproved && s.trigger != nil {
		if _, err := s.trigger.EnsureJobForPlan(ctx, plan); err != nil {
			return nil, fmt.Errorf("ensure job for plan %s: %w", planID, err)
		}
	}

	s.log.Info().Str("plan_id", planID).Str("status", string(next)).Msg("Plan status updated")
	return plan, nil
}

// SeedDayIfEmpty synthesizes a minimal batch from top own posts when the
// day has no plans, so a fresh dashboard is never empty. Inserts use
// do-nothing conflict handling; a batch created concurrently by a real
// generation run is never overwritten.
func (s *Store) SeedDayIfEmpty(ctx context.Context, generationDate string, ownPosts []models.OwnPost, slots []string) ([]models.Plan, bool, error) {
	existing, err := s.ListDay(ctx, generationDate)
	if err != nil {
		return nil, false, err
	}
	if len(existing) > 0 {
		return existing, false, nil
	}

	seeds := buildSeeds(generationDate, ownPosts, slots)
	for i := range seeds {
		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "plan_id"}, {Name: "generation_date"}},
			DoNothing: true,
		}).Create(&seeds[i]).Error
		if err != nil {
			return nil, false, fmt.Errorf("seed plan %s: %w", seeds[i].PlanID, err)
		}
	}

	s.log.Info().Str("generation_date", generationDate).Int("count", len(seeds)).Msg("Seeded empty day")

	seeded, err := s.ListDay(ctx, generationDate)
	return seeded, true, err
}

func buildSeeds(generationDate string, ownPosts []models.OwnPost, slots []string) []models.Plan {
	if len(slots) == 0 {
		slots = []string{"07:00"}
	}

	if len(ownPosts) == 0 {
		return []models.Plan{{
			PlanID:         "seed-placeholder",
			GenerationDate: generationDate,
			ScheduledTime:  slots[0],
			TemplateID:     "seed",
			Theme:          "プレースホルダー",
			Status:         models.PlanStatusDraft,
			MainText:       seedPlaceholderText,
		}}
	}

	count := len(ownPosts)
	if count > len(slots) {
		count = len(slots)
	}

	seeds := make([]models.Plan, 0, count)
	for i := 0; i < count; i++ {
		seeds = append(seeds, models.Plan{
			PlanID:         fmt.Sprintf("seed-%02d", i+1),
			GenerationDate: generationDate,
			ScheduledTime:  slots[i],
			TemplateID:     "seed",
			Theme:          "過去の高パフォーマンス投稿",
			Status:         seedStatuses[i%len(seedStatuses)],
			MainText:       ownPosts[i].Content,
		})
	}
	return seeds
}

// ListDaySummaries decorates the day's plans with their latest job and
// posting log for display.
func (s *Store) ListDaySummaries(ctx context.Context, generationDate string) ([]models.PlanSummary, error) {
	dayPlans, err := s.ListDay(ctx, generationDate)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.PlanSummary, 0, len(dayPlans))
	for _, plan := range dayPlans {
		summary := models.PlanSummary{Plan: plan}

		var job models.Job
		err := s.db.WithContext(ctx).
			Where("plan_id = ?", plan.PlanID).
			Order("updated_at DESC").
			First(&job).Error
		if err == nil {
			summary.JobStatus = string(job.Status)
			updatedAt := job.UpdatedAt
			summary.JobUpdatedAt = &updatedAt
			summary.JobErrorMessage = job.ErrorMessage
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		var postingLog models.PostingLog
		err = s.db.WithContext(ctx).
			Where("plan_id = ?", plan.PlanID).
			Order("created_at DESC").
			First(&postingLog).Error
		if err == nil {
			summary.LogStatus = postingLog.Status
			summary.LogErrorMessage = postingLog.ErrorMessage
			summary.LogPostedThreadID = postingLog.PostedThreadID
			postedAt := postingLog.PostedAt
			summary.LogPostedAt = &postedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}
