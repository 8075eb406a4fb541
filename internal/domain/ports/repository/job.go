package repository

import (
	"context"
	"time"

	"lecture-script-service/internal/domain/model"
)

// JobRepository persists job records. The Mark* operations are conditional
// state transitions: they only apply when the row is still in an allowed
// source state and report whether anything changed, so concurrent terminal
// writes resolve as "first transition wins" at the storage layer.
type JobRepository interface {
	Save(ctx context.Context, job *model.Job) error
	FindByID(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, status model.JobStatus, offset, limit int) ([]*model.Job, error)

	// MarkStarted applies pending -> processing.
	MarkStarted(ctx context.Context, id string, at time.Time) (bool, error)
	// UpdateProgress applies only while processing and never lowers progress.
	UpdateProgress(ctx context.Context, id string, progress int) (bool, error)
	// MarkCompleted applies processing -> completed and forces progress to 100.
	// Runs on tx when given so completion can commit atomically with the
	// generated output; pass nil to run on the pool.
	MarkCompleted(ctx context.Context, tx Tx, id string, at time.Time) (bool, error)
	// MarkFailed applies pending|processing -> failed and stores the reason.
	MarkFailed(ctx context.Context, id, reason string, at time.Time) (bool, error)
	// MarkCancelled applies pending|processing -> cancelled.
	MarkCancelled(ctx context.Context, id string) (bool, error)
}
