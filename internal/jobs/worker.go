package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threads-agent/internal/models"
	"github.com/threads-agent/internal/plans"
	"github.com/threads-agent/pkg/logger"
)

// maxJobsPerTick bounds one worker pass so a backlog drains gradually
// instead of bursting through the publish rate limit.
const maxJobsPerTick = 5

// Publisher posts one job's payload to the outside world and returns the
// published thread id.
type Publisher interface {
	Publish(ctx context.Context, job *models.Job) (string, error)
}

// Worker drains due publishing jobs. Each tick claims up to
// maxJobsPerTick pending jobs whose slot has passed.
type Worker struct {
	db        *gorm.DB
	store     *plans.Store
	publisher Publisher
	log       *logger.Logger
}

func NewWorker(db *gorm.DB, store *plans.Store, publisher Publisher, log *logger.Logger) *Worker {
	return &Worker{db: db, store: store, publisher: publisher, log: log.WithComponent("worker")}
}

// Tick processes due jobs once. Individual job failures are recorded on
// the job row and do not stop the pass.
func (w *Worker) Tick(ctx context.Context) error {
	var due []models.Job
	err := w.db.WithContext(ctx).
		Where("status = ? AND scheduled_time <= ?", models.JobStatusPending, time.Now()).
		Order("scheduled_time").
		Limit(maxJobsPerTick).
		Find(&due).Error
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return nil
	}

	w.log.Info().Int("count", len(due)).Msg("Processing due jobs")
	for i := range due {
		w.processJob(ctx, &due[i])
	}
	return nil
}

func (w *Worker) processJob(ctx context.Context, job *models.Job) {
	log := w.log.WithJobID(job.JobID)

	err := w.db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
		"status":        string(models.JobStatusProcessing),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	}).Error
	if err != nil {
		log.Error().Err(err).Msg("Failed to claim job")
		return
	}

	threadID, err := w.publisher.Publish(ctx, job)
	if err != nil {
		log.Error().Err(err).Msg("Publish failed")
		w.markResult(ctx, job, models.JobStatusFailed, "", err.Error())
		return
	}

	w.markResult(ctx, job, models.JobStatusSucceeded, threadID, "")

	// The publishing collaborator owns the scheduled transition.
	if _, err := w.markPlanScheduled(ctx, job.PlanID); err != nil {
		log.Warn().Err(err).Msg("Failed to mark plan scheduled")
	}

	log.Info().Str("thread_id", threadID).Msg("Job published")
}

func (w *Worker) markResult(ctx context.Context, job *models.Job, status models.JobStatus, threadID, errorMessage string) {
	err := w.db.WithContext(ctx).Model(job).Updates(map[string]interface{}{
		"status":        string(status),
		"error_message": errorMessage,
	}).Error
	if err != nil {
		w.log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to update job result")
	}

	entry := models.PostingLog{
		LogID:          uuid.NewString(),
		JobID:          job.JobID,
		PlanID:         job.PlanID,
		Status:         string(status),
		PostedThreadID: threadID,
		ErrorMessage:   errorMessage,
		PostedAt:       time.Now(),
	}
	if err := w.db.WithContext(ctx).Create(&entry).Error; err != nil {
		w.log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to write posting log")
	}
}

func (w *Worker) markPlanScheduled(ctx context.Context, planID string) (*models.Plan, error) {
	var plan models.Plan
	err := w.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("generation_date DESC").
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return w.store.UpdateStatus(ctx, plan.PlanID, plan.GenerationDate, models.PlanStatusScheduled)
}
