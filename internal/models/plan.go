package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PlanStatus represents the current state of a content plan
type PlanStatus string

const (
	PlanStatusDraft     PlanStatus = "draft"
	PlanStatusApproved  PlanStatus = "approved"
	PlanStatusScheduled PlanStatus = "scheduled"
	PlanStatusPosted    PlanStatus = "posted"
	PlanStatusRejected  PlanStatus = "rejected"
)

// planTransitions is the closed transition table for the approval lifecycle.
// scheduled and posted are driven by the publishing worker; rejected plans
// can be revived back to draft by an explicit edit.
var planTransitions = map[PlanStatus][]PlanStatus{
	PlanStatusDraft:     {PlanStatusApproved, PlanStatusRejected},
	PlanStatusApproved:  {PlanStatusScheduled, PlanStatusRejected},
	PlanStatusScheduled: {PlanStatusPosted},
	PlanStatusRejected:  {PlanStatusDraft},
	PlanStatusPosted:    {},
}

// Valid reports whether s is a known plan status
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusDraft, PlanStatusApproved, PlanStatusScheduled, PlanStatusPosted, PlanStatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether the status change s -> next is allowed
func (s PlanStatus) CanTransitionTo(next PlanStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range planTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ErrInvalidTransition is returned when a status change is not in the table
type ErrInvalidTransition struct {
	From PlanStatus
	To   PlanStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid plan status transition %s -> %s", e.From, e.To)
}

// PlanComment is one ordered comment attached to a plan
type PlanComment struct {
	Order int    `json:"order"`
	Text  string `json:"text"`
}

// CommentList stores ordered plan comments as a JSON-encoded string column
type CommentList []PlanComment

func (c CommentList) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (c *CommentList) Scan(value interface{}) error {
	if value == nil {
		*c = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into CommentList", value)
	}
}

// Plan represents a single unit of schedulable generated content.
// A plan is uniquely identified by (plan_id, generation_date).
type Plan struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	PlanID         string      `gorm:"uniqueIndex:idx_plan_day;not null" json:"plan_id"`
	GenerationDate string      `gorm:"uniqueIndex:idx_plan_day;not null" json:"generation_date"` // yyyy-MM-dd
	ScheduledTime  string      `gorm:"default:'07:00'" json:"scheduled_time"`                    // HH:MM local
	TemplateID     string      `gorm:"default:'auto-generated'" json:"template_id"`
	Theme          string      `json:"theme"`
	Status         PlanStatus  `gorm:"default:'draft';index" json:"status"`
	MainText       string      `gorm:"type:text" json:"main_text"`
	Comments       CommentList `gorm:"type:text" json:"comments"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

// PlanUpdate carries a partial update for an upsert. Nil fields keep the
// stored value.
type PlanUpdate struct {
	PlanID         string
	GenerationDate string
	ScheduledTime  *string
	TemplateID     *string
	Theme          *string
	Status         *PlanStatus
	MainText       *string
	Comments       CommentList
}

// PlanSummary is a plan decorated with the latest job and posting log state
// for display. The job/log fields are read-only collaborator data.
type PlanSummary struct {
	Plan
	JobStatus          string     `json:"job_status,omitempty"`
	JobUpdatedAt       *time.Time `json:"job_updated_at,omitempty"`
	JobErrorMessage    string     `json:"job_error_message,omitempty"`
	LogStatus          string     `json:"log_status,omitempty"`
	LogErrorMessage    string     `json:"log_error_message,omitempty"`
	LogPostedThreadID  string     `json:"log_posted_thread_id,omitempty"`
	LogPostedAt        *time.Time `json:"log_posted_at,omitempty"`
}
