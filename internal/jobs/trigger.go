package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/threads-agent/internal/models"
	"github.com/threads-agent/pkg/logger"
)

// Posting slots are interpreted in JST.
var jst = time.FixedZone("JST", 9*60*60)

// jobPayload is the publish payload stored on the job row
type jobPayload struct {
	MainText string   `json:"mainText"`
	Comments []string `json:"comments"`
}

// Trigger creates publishing jobs for approved plans
type Trigger struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrigger(db *gorm.DB, log *logger.Logger) *Trigger {
	return &Trigger{db: db, log: log.WithComponent("jobs")}
}

// EnsureJobForPlan returns the plan's live job, creating one if none
// exists. A live job is pending, processing or failed; a succeeded job
// does not block re-approval of an edited plan.
func (t *Trigger) EnsureJobForPlan(ctx context.Context, plan *models.Plan) (*models.Job, error) {
	var existing models.Job
	err := t.db.WithContext(ctx).
		Where("plan_id = ? AND status IN ?", plan.PlanID, []string{
			string(models.JobStatusPending),
			string(models.JobStatusProcessing),
			string(models.JobStatusFailed),
		}).
		Order("updated_at DESC").
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find job for plan %s: %w", plan.PlanID, err)
	}

	comments := make([]string, 0, len(plan.Comments))
	for _, comment := range plan.Comments {
		comments = append(comments, comment.Text)
	}
	payload, err := json.Marshal(jobPayload{MainText: plan.MainText, Comments: comments})
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}

	scheduledTime, err := parseSlot(plan.GenerationDate, plan.ScheduledTime)
	if err != nil {
		return nil, err
	}

	job := models.Job{
		JobID:         uuid.NewString(),
		PlanID:        plan.PlanID,
		ScheduledTime: scheduledTime,
		Status:        models.JobStatusPending,
		Payload:       string(payload),
	}
	if err := t.db.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, fmt.Errorf("create job for plan %s: %w", plan.PlanID, err)
	}

	t.log.Info().
		Str("job_id", job.JobID).
		Str("plan_id", plan.PlanID).
		Time("scheduled_time", scheduledTime).
		Msg("Created publishing job")
	return &job, nil
}

func parseSlot(generationDate, scheduledTime string) (time.Time, error) {
	if scheduledTime == "" {
		scheduledTime = "07:00"
	}
	parsed, err := time.ParseInLocation("2006-01-02 15:04", generationDate+" "+scheduledTime, jst)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot %s %s: %w", generationDate, scheduledTime, err)
	}
	return parsed, nil
}
