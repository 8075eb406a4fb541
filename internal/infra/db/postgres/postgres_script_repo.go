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

var _ repository.ScriptRepository = (*scriptRepo)(nil)

type scriptRepo struct {
	pool *pgxpool.Pool
}

func NewScriptRepo(pool *pgxpool.Pool) *scriptRepo {
	return &scriptRepo{pool: pool}
}

func (r *scriptRepo) Save(ctx context.Context, tx repository.Tx, s *model.Script) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	const q = `
INSERT INTO scripts (id, job_id, title, content, format, language, segments, word_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
  title      = EXCLUDED.title,
  content    = EXCLUDED.content,
  format     = EXCLUDED.format,
  language   = EXCLUDED.language,
  segments   = EXCLUDED.segments,
  word_count = EXCLUDED.word_count;`

	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	_, err = ex.Exec(ctx, q,
		s.ID, s.JobID, s.Title, s.Content, s.Format, s.Language, nullable(s.SegmentsJSON), s.WordCount, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("save script: %w", err)
	}
	return nil
}

const scriptColumns = `id, job_id, title, content, format, language, segments, word_count, created_at`

func (r *scriptRepo) FindByID(ctx context.Context, id string) (*model.Script, error) {
	q := `SELECT ` + scriptColumns + ` FROM scripts WHERE id = $1;`
	return scanScript(r.pool.QueryRow(ctx, q, id))
}

func (r *scriptRepo) FindByJobID(ctx context.Context, jobID string) (*model.Script, error) {
	q := `SELECT ` + scriptColumns + ` FROM scripts WHERE job_id = $1 ORDER BY created_at DESC LIMIT 1;`
	return scanScript(r.pool.QueryRow(ctx, q, jobID))
}

func scanScript(row pgx.Row) (*model.Script, error) {
	var s model.Script
	var segments *string
	err := row.Scan(&s.ID, &s.JobID, &s.Title, &s.Content, &s.Format, &s.Language, &segments, &s.WordCount, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan script: %w", err)
	}
	if segments != nil {
		s.SegmentsJSON = *segments
	}
	return &s, nil
}
