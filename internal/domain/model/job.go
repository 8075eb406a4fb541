package model

import (
	"fmt"
	"time"

	"lecture-script-service/internal/domain"
)

type JobKind string

const (
	JobKindSlidesToScript JobKind = "slides-to-script"
	JobKindMediaToScript  JobKind = "media-to-script"
)

// ValidJobKind reports whether k is a known job kind.
func ValidJobKind(k JobKind) bool {
	return k == JobKindSlidesToScript || k == JobKindMediaToScript
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Job is a tracked unit of asynchronous work turning one source file into
// a generated script. Progress runs 0-100 and is monotonic while the job
// is processing; completed/failed/cancelled are terminal.
type Job struct {
	ID             string
	Kind           JobKind
	Status         JobStatus
	Progress       int
	SourceFileID   string
	ProjectID      string // optional grouping for batched notification
	ConfigSnapshot string // opaque kind-specific JSON
	ErrorMessage   string
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewJob(kind JobKind, sourceFileID, projectID, configSnapshot string) *Job {
	now := time.Now()
	return &Job{
		Kind:           kind,
		Status:         JobStatusPending,
		SourceFileID:   sourceFileID,
		ProjectID:      projectID,
		ConfigSnapshot: configSnapshot,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Terminal reports whether no further transitions are permitted.
func (j *Job) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Start moves a pending job to processing.
func (j *Job) Start() error {
	if j.Status != JobStatusPending {
		return fmt.Errorf("start from %s: %w", j.Status, domain.ErrInvalidState)
	}
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.UpdatedAt = now
	return nil
}

// Tick records a progress update. Progress never decreases, and a tick
// against a job that is no longer processing is rejected; callers treat
// that rejection as a logged no-op, not a failure.
func (j *Job) Tick(progress int) error {
	if j.Status != JobStatusProcessing {
		return fmt.Errorf("tick in %s: %w", j.Status, domain.ErrInvalidState)
	}
	if progress < j.Progress {
		return fmt.Errorf("progress %d below %d: %w", progress, j.Progress, domain.ErrInvalidArgument)
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
	j.UpdatedAt = time.Now()
	return nil
}

// Complete marks a processing job done. A no-op against a job already in
// a terminal state, so a late completion cannot overwrite a cancel.
func (j *Job) Complete() {
	if j.Status != JobStatusProcessing {
		return
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Progress = 100
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Fail marks a pending or processing job failed and records the reason.
// Pending is allowed so pre-flight validation failures land here too.
// A no-op against terminal states, same race guard as Complete.
func (j *Job) Fail(reason string) {
	if j.Status != JobStatusPending && j.Status != JobStatusProcessing {
		return
	}
	now := time.Now()
	j.Status = JobStatusFailed
	j.ErrorMessage = reason
	j.CompletedAt = &now
	j.UpdatedAt = now
}

// Cancel moves a pending or processing job to cancelled. It does not stop
// in-flight work; a later terminal write loses the race and no-ops.
func (j *Job) Cancel() error {
	if j.Status != JobStatusPending && j.Status != JobStatusProcessing {
		return fmt.Errorf("cancel from %s: %w", j.Status, domain.ErrInvalidState)
	}
	j.Status = JobStatusCancelled
	j.UpdatedAt = time.Now()
	return nil
}

// Duration returns elapsed processing time, zero until both ends are set.
func (j *Job) Duration() time.Duration {
	if j.StartedAt == nil || j.CompletedAt == nil {
		return 0
	}
	return j.CompletedAt.Sub(*j.StartedAt)
}
