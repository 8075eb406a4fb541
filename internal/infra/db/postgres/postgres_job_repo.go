package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/domain/ports/repository"
)

// JobSnapshotCache sits in front of FindByID for the polling endpoint.
// Implemented by the redis job cache; nil disables caching.
type JobSnapshotCache interface {
	Store(ctx context.Context, job *model.Job) error
	Get(ctx context.Context, id string) (*model.Job, error)
	Invalidate(ctx context.Context, id string) error
}

var _ repository.JobRepository = (*jobRepo)(nil)

type jobRepo struct {
	pool  *pgxpool.Pool
	cache JobSnapshotCache
}

func NewJobRepo(pool *pgxpool.Pool, cache JobSnapshotCache) *jobRepo {
	return &jobRepo{pool: pool, cache: cache}
}

const jobColumns = `id, kind, status, progress, source_file_id, project_id, config_snapshot,
error_message, started_at, completed_at, created_at, updated_at`

func (r *jobRepo) Save(ctx context.Context, job *model.Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.UpdatedAt = time.Now()

	const q = `
INSERT INTO jobs (id, kind, status, progress, source_file_id, project_id, config_snapshot,
                  error_message, started_at, completed_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE SET
  status          = EXCLUDED.status,
  progress        = EXCLUDED.progress,
  error_message   = EXCLUDED.error_message,
  started_at      = EXCLUDED.started_at,
  completed_at    = EXCLUDED.completed_at,
  updated_at      = EXCLUDED.updated_at;`

	_, err := r.pool.Exec(ctx, q,
		job.ID, job.Kind, job.Status, job.Progress, job.SourceFileID, nullable(job.ProjectID),
		job.ConfigSnapshot, nullable(job.ErrorMessage), job.StartedAt, job.CompletedAt,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	r.invalidate(ctx, job.ID)
	return nil
}

func (r *jobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	if r.cache != nil {
		if job, err := r.cache.Get(ctx, id); err == nil && job != nil {
			return job, nil
		}
	}

	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1;`
	job, err := scanJob(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		_ = r.cache.Store(ctx, job)
	}
	return job, nil
}

func (r *jobRepo) List(ctx context.Context, status model.JobStatus, offset, limit int) ([]*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs`
	args := []interface{}{}
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC OFFSET %d LIMIT %d;`, offset, limit)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// The Mark* updates below carry their allowed source states in the WHERE
// clause, so a racing terminal write simply matches zero rows.

func (r *jobRepo) MarkStarted(ctx context.Context, id string, at time.Time) (bool, error) {
	const q = `
UPDATE jobs SET status = 'processing', started_at = $2, updated_at = $2
 WHERE id = $1 AND status = 'pending';`
	return r.conditional(ctx, q, id, at)
}

func (r *jobRepo) UpdateProgress(ctx context.Context, id string, progress int) (bool, error) {
	const q = `
UPDATE jobs SET progress = $2, updated_at = $3
 WHERE id = $1 AND status = 'processing' AND progress <= $2;`
	return r.conditional(ctx, q, id, progress, time.Now())
}

func (r *jobRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	const q = `
UPDATE jobs SET status = 'completed', progress = 100, completed_at = $2, updated_at = $2
 WHERE id = $1 AND status = 'processing';`
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	tag, err := ex.Exec(ctx, q, id, at)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	changed := tag.RowsAffected() > 0
	if changed {
		r.invalidate(ctx, id)
	}
	return changed, nil
}

func (r *jobRepo) MarkFailed(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	const q = `
UPDATE jobs SET status = 'failed', error_message = $2, completed_at = $3, updated_at = $3
 WHERE id = $1 AND status IN ('pending', 'processing');`
	return r.conditional(ctx, q, id, reason, at)
}

func (r *jobRepo) MarkCancelled(ctx context.Context, id string) (bool, error) {
	const q = `
UPDATE jobs SET status = 'cancelled', updated_at = $2
 WHERE id = $1 AND status IN ('pending', 'processing');`
	return r.conditional(ctx, q, id, time.Now())
}

func (r *jobRepo) conditional(ctx context.Context, q string, id string, args ...interface{}) (bool, error) {
	tag, err := r.pool.Exec(ctx, q, append([]interface{}{id}, args...)...)
	if err != nil {
		return false, fmt.Errorf("update job: %w", err)
	}
	changed := tag.RowsAffected() > 0
	if changed {
		r.invalidate(ctx, id)
	}
	return changed, nil
}

func (r *jobRepo) invalidate(ctx context.Context, id string) {
	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, id)
	}
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var projectID, errMsg *string
	err := row.Scan(&j.ID, &j.Kind, &j.Status, &j.Progress, &j.SourceFileID, &projectID,
		&j.ConfigSnapshot, &errMsg, &j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	if projectID != nil {
		j.ProjectID = *projectID
	}
	if errMsg != nil {
		j.ErrorMessage = *errMsg
	}
	return &j, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
