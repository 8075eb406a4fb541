package repository

import (
	"context"

	"lecture-script-service/internal/domain/model"
)

type ScriptRepository interface {
	// Save persists a script, on tx when given (nil runs on the pool).
	Save(ctx context.Context, tx Tx, script *model.Script) error
	FindByID(ctx context.Context, id string) (*model.Script, error)
	FindByJobID(ctx context.Context, jobID string) (*model.Script, error)
}
