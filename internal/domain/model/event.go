package model

import "time"

type EventType string

const (
	EventTypeProgress     EventType = "progress"
	EventTypeStatusChange EventType = "status_change"
	EventTypeComplete     EventType = "complete"
	EventTypeError        EventType = "error"
)

// ProgressEvent is the wire payload pushed to live subscribers. Delivered
// unchanged from publisher to every matching subscriber.
type ProgressEvent struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	ProjectID string    `json:"project_id,omitempty"`
	Status    JobStatus `json:"status,omitempty"`
	Progress  *int      `json:"progress,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewProgressTickEvent(job *Job, progress int, message string) ProgressEvent {
	p := progress
	return ProgressEvent{
		Type:      EventTypeProgress,
		JobID:     job.ID,
		ProjectID: job.ProjectID,
		Status:    JobStatusProcessing,
		Progress:  &p,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewStatusChangeEvent(job *Job) ProgressEvent {
	return ProgressEvent{
		Type:      EventTypeStatusChange,
		JobID:     job.ID,
		ProjectID: job.ProjectID,
		Status:    job.Status,
		Message:   job.ErrorMessage,
		Timestamp: time.Now(),
	}
}

func NewCompleteEvent(job *Job) ProgressEvent {
	p := 100
	return ProgressEvent{
		Type:      EventTypeComplete,
		JobID:     job.ID,
		ProjectID: job.ProjectID,
		Status:    JobStatusCompleted,
		Progress:  &p,
		Timestamp: time.Now(),
	}
}

func NewErrorEvent(job *Job, message string) ProgressEvent {
	return ProgressEvent{
		Type:      EventTypeError,
		JobID:     job.ID,
		ProjectID: job.ProjectID,
		Status:    JobStatusFailed,
		Message:   message,
		Timestamp: time.Now(),
	}
}
