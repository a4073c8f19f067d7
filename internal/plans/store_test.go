package plans

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/threads-agent/internal/models"
	"github.com/threads-agent/pkg/logger"
)

type fakeTrigger struct {
	calls []string
}

func (f *fakeTrigger) EnsureJobForPlan(ctx context.Context, plan *models.Plan) (*models.Job, error) {
	f.calls = append(f.calls, plan.PlanID)
	return &models.Job{JobID: "job-" + plan.PlanID, PlanID: plan.PlanID}, nil
}

func newTestStore(t *testing.T) (*Store, *fakeTrigger) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	trigger := &fakeTrigger{}
	store := NewWithDB(db, trigger, logger.New(logger.Config{Level: "disabled", Format: "json"}))
	require.NoError(t, store.Migrate())
	return store, trigger
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.PlanStatus) *models.PlanStatus { return &s }

func TestUpsertInsertsThenPartiallyUpdates(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first, err := store.Upsert(ctx, models.PlanUpdate{
		PlanID:         "p1",
		GenerationDate: "2025-01-01",
		MainText:       strPtr("A"),
	})
	require.NoError(t, err)
	assert.Equal(t, "A", first.MainText)
	assert.Equal(t, models.PlanStatusDraft, first.Status)
	assert.Equal(t, "07:00", first.ScheduledTime)

	second, err := store.Upsert(ctx, models.PlanUpdate{
		PlanID:         "p1",
		GenerationDate: "2025-01-01",
		Status:         statusPtr(models.PlanStatusApproved),
	})
	require.NoError(t, err)

	// Unset fields keep previous values.
	assert.Equal(t, "A", second.MainText)
	assert.Equal(t, models.PlanStatusApproved, second.Status)
	assert.Equal(t, first.ID, second.ID)
}

func TestUpsertIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	update := models.PlanUpdate{
		PlanID:         "p1",
		GenerationDate: "2025-01-01",
		MainText:       strPtr("同じ内容"),
		Theme:          strPtr("Threads運用"),
	}

	first, err := store.Upsert(ctx, update)
	require.NoError(t, err)
	second, err := store.Upsert(ctx, update)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.MainText, second.MainText)

	var count int64
	store.DB().Model(&models.Plan{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestUpsertSameIDDifferentDateIsSeparatePlan(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, models.PlanUpdate{PlanID: "p1", GenerationDate: "2025-01-01", MainText: strPtr("一日目")})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, models.PlanUpdate{PlanID: "p1", GenerationDate: "2025-01-02", MainText: strPtr("二日目")})
	require.NoError(t, err)

	var count int64
	store.DB().Model(&models.Plan{}).Count(&count)
	assert.EqualValues(t, 2, count)
}

func TestUpsertRequiresKey(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Upsert(context.Background(), models.PlanUpdate{PlanID: "p1"})
	assert.Error(t, err)
	_, err = store.Upsert(context.Background(), models.PlanUpdate{GenerationDate: "2025-01-01"})
	assert.Error(t, err)
}

func TestUpsertPersistsComments(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	plan, err := store.Upsert(ctx, models.PlanUpdate{
		PlanID:         "p1",
		GenerationDate: "2025-01-01",
		MainText:       strPtr("本文"),
		Comments: models.CommentList{
			{Order: 1, Text: "コメント1"},
			{Order: 2, Text: "コメント2"},
		},
	})
	require.NoError(t, err)
	require.Len(t, plan.Comments, 2)
	assert.Equal(t, "コメント1", plan.Comments[0].Text)
}

func TestReplaceDayBatchNeverLeavesDayEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.ReplaceDayBatch(ctx, "2025-01-01", []models.PlanUpdate{
		{PlanID: "p1", GenerationDate: "2025-01-01", MainText: strPtr("旧1")},
		{PlanID: "p2", GenerationDate: "2025-01-01", MainText: strPtr("旧2")},
	})
	require.NoError(t, err)

	// Regeneration overwrites by key instead of deleting the day first.
	replaced, err := store.ReplaceDayBatch(ctx, "2025-01-01", []models.PlanUpdate{
		{PlanID: "p1", MainText: strPtr("新1")},
		{PlanID: "p2", MainText: strPtr("新2")},
		{PlanID: "p3", MainText: strPtr("新3")},
	})
	require.NoError(t, err)
	assert.Len(t, replaced, 3)
	assert.Equal(t, "新1", replaced[0].MainText)

	// An empty batch is refused outright.
	_, err = store.ReplaceDayBatch(ctx, "2025-01-01", nil)
	assert.Error(t, err)
	remaining, err := store.ListDay(ctx, "2025-01-01")
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestUpdateStatusFollowsTransitionTable(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, models.PlanUpdate{PlanID: "p1", GenerationDate: "2025-01-01", MainText: strPtr("x")})
	require.NoError(t, err)

	plan, err := store.UpdateStatus(ctx, "p1", "2025-01-01", models.PlanStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusApproved, plan.Status)

	// draft -> posted is not in the table.
	_, err = store.Upsert(ctx, models.PlanUpdate{PlanID: "p2", GenerationDate: "2025-01-01", MainText: strPtr("y")})
	require.NoError(t, err)
	_, err = store.UpdateStatus(ctx, "p2", "2025-01-01", models.PlanStatusPosted)
	require.Error(t, err)

	var transitionErr *models.ErrInvalidTransition
	assert.True(t, errors.As(err, &transitionErr))
}

func TestUpdateStatusApprovalCreatesJobOnce(t *testing.T) {
	store, trigger := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, models.PlanUpdate{PlanID: "p1", GenerationDate: "2025-01-01", MainText: strPtr("x")})
	require.NoError(t, err)

	_, err = store.UpdateStatus(ctx, "p1", "2025-01-01", models.PlanStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, trigger.calls)

	// Re-approving is a no-op transition but still routes through the
	// trigger, which is itself create-if-absent.
	_, err = store.UpdateStatus(ctx, "p1", "2025-01-01", models.PlanStatusApproved)
	require.NoError(t, err)
}

func TestRejectedPlanCanBeRevivedToDraft(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, models.PlanUpdate{PlanID: "p1", GenerationDate: "2025-01-01", MainText: strPtr("x")})
	require.NoError(t, err)
	_, err = store.UpdateStatus(ctx, "p1", "2025-01-01", models.PlanStatusRejected)
	require.NoError(t, err)

	plan, err := store.Upsert(ctx, models.PlanUpdate{
		PlanID:         "p1",
		GenerationDate: "2025-01-01",
		Status:         statusPtr(models.PlanStatusDraft),
		MainText:       strPtr("編集し直した本文"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PlanStatusDraft, plan.Status)
	assert.Equal(t, "編集し直した本文", plan.MainText)
}

func TestSeedDayIfEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ownPosts := []models.OwnPost{
		{PostID: "o1", Content: "過去の人気投稿1"},
		{PostID: "o2", Content: "過去の人気投稿2"},
	}
	slots := []string{"07:00", "08:30", "10:00"}

	seeded, didSeed, err := store.SeedDayIfEmpty(ctx, "2025-01-01", ownPosts, slots)
	require.NoError(t, err)
	assert.True(t, didSeed)
	require.Len(t, seeded, 2)
	assert.Equal(t, "過去の人気投稿1", seeded[0].MainText)

	// A non-empty day is returned untouched.
	again, didSeed, err := store.SeedDayIfEmpty(ctx, "2025-01-01", ownPosts, slots)
	require.NoError(t, err)
	assert.False(t, didSeed)
	assert.Len(t, again, 2)
}

func TestSeedDayIfEmptyPlaceholderWhenNoOwnPosts(t *testing.T) {
	store, _ := newTestStore(t)

	seeded, didSeed, err := store.SeedDayIfEmpty(context.Background(), "2025-01-01", nil, []string{"07:00"})
	require.NoError(t, err)
	assert.True(t, didSeed)
	require.Len(t, seeded, 1)
	assert.Equal(t, seedPlaceholderText, seeded[0].MainText)
	assert.Equal(t, models.PlanStatusDraft, seeded[0].Status)
}

func TestListDaySummariesDecoratesJobAndLog(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Upsert(ctx, models.PlanUpdate{PlanID: "p1", GenerationDate: "2025-01-01", MainText: strPtr("x")})
	require.NoError(t, err)

	require.NoError(t, store.DB().Create(&models.Job{
		JobID: "j1", PlanID: "p1", Status: models.JobStatusSucceeded,
	}).Error)
	require.NoError(t, store.DB().Create(&models.PostingLog{
		LogID: "l1", JobID: "j1", PlanID: "p1", Status: "posted", PostedThreadID: "t123",
	}).Error)

	summaries, err := store.ListDaySummaries(ctx, "2025-01-01")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, string(models.JobStatusSucceeded), summaries[0].JobStatus)
	assert.Equal(t, "posted", summaries[0].LogStatus)
	assert.Equal(t, "t123", summaries[0].LogPostedThreadID)
}
