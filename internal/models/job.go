package models

import "time"

// JobStatus represents the current state of a publishing job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
)

// Job is a queued publishing job created when a plan is approved.
// The actual publish is performed by an external transport.
type Job struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	JobID         string    `gorm:"uniqueIndex;not null" json:"job_id"`
	PlanID        string    `gorm:"index;not null" json:"plan_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Status        JobStatus `gorm:"default:'pending';index" json:"status"`
	AttemptCount  int       `gorm:"default:0" json:"attempt_count"`
	ErrorMessage  string    `json:"error_message"`
	Payload       string    `gorm:"type:text" json:"payload"` // main text + comments JSON
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PostingLog records the outcome of one publish attempt
type PostingLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	LogID          string    `gorm:"uniqueIndex;not null" json:"log_id"`
	JobID          string    `gorm:"index" json:"job_id"`
	PlanID         string    `gorm:"index;not null" json:"plan_id"`
	Status         string    `json:"status"`
	PostedThreadID string    `json:"posted_thread_id"`
	ErrorMessage   string    `json:"error_message"`
	PostedAt       time.Time `json:"posted_at"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}
