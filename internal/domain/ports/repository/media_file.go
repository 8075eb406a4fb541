package repository

import (
	"context"

	"lecture-script-service/internal/domain/model"
)

type MediaFileRepository interface {
	FindByID(ctx context.Context, id string) (*model.MediaFile, error)
	Save(ctx context.Context, file *model.MediaFile) error
}
