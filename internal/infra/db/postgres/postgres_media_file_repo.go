package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/domain/ports/repository"
)

var _ repository.MediaFileRepository = (*mediaFileRepo)(nil)

type mediaFileRepo struct {
	pool *pgxpool.Pool
}

func NewMediaFileRepo(pool *pgxpool.Pool) *mediaFileRepo {
	return &mediaFileRepo{pool: pool}
}

func (r *mediaFileRepo) Save(ctx context.Context, f *model.MediaFile) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	const q = `
INSERT INTO media_files (id, original_name, path, kind, size_bytes, duration_sec, project_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  original_name = EXCLUDED.original_name,
  path          = EXCLUDED.path,
  kind          = EXCLUDED.kind,
  size_bytes    = EXCLUDED.size_bytes,
  duration_sec  = EXCLUDED.duration_sec;`

	_, err := r.pool.Exec(ctx, q,
		f.ID, f.OriginalName, f.Path, f.Kind, f.SizeBytes, f.DurationSec, nullable(f.ProjectID), f.CreatedAt)
	if err != nil {
		return fmt.Errorf("save media file: %w", err)
	}
	return nil
}

func (r *mediaFileRepo) FindByID(ctx context.Context, id string) (*model.MediaFile, error) {
	const q = `
SELECT id, original_name, path, kind, size_bytes, duration_sec, project_id, created_at
  FROM media_files
 WHERE id = $1;`

	var f model.MediaFile
	var projectID *string
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&f.ID, &f.OriginalName, &f.Path, &f.Kind, &f.SizeBytes, &f.DurationSec, &projectID, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find media file: %w", err)
	}
	if projectID != nil {
		f.ProjectID = *projectID
	}
	return &f, nil
}
